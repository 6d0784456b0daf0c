package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

type userRecord struct {
	user     domain.User
	password []byte
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[int64]*userRecord
	listings  map[int64]*domain.Listing
	favorites []Favorite
	events    map[int64][]domain.Interaction
	revoked   map[string]time.Time

	nextUserID     int64
	nextListingID  int64
	nextFavoriteID int64
	nextImageID    int64
	hashCost       int
	now            func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithHashCost sets the bcrypt cost used for passwords.
func WithHashCost(cost int) MemoryOption {
	return func(s *MemoryStore) {
		s.hashCost = cost
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users:          make(map[int64]*userRecord),
		listings:       make(map[int64]*domain.Listing),
		events:         make(map[int64][]domain.Interaction),
		revoked:        make(map[string]time.Time),
		nextUserID:     1,
		nextListingID:  1,
		nextFavoriteID: 1,
		nextImageID:    1,
		hashCost:       bcrypt.DefaultCost,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Users ---

// CreateUser stores u with a hashed password and assigns its id.
func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Username, u.Username) {
			return fmt.Errorf("username %q: %w", u.Username, ErrConflict)
		}
		if u.Email != "" && strings.EqualFold(rec.user.Email, u.Email) {
			return fmt.Errorf("email %q: %w", u.Email, ErrConflict)
		}
	}

	if u.ID == 0 {
		u.ID = s.nextUserID
	}
	s.nextUserID = max(s.nextUserID, u.ID+1)
	s.users[u.ID] = &userRecord{user: *u, password: hash}
	return nil
}

// Authenticate checks a password against the user whose email or username
// is login.
func (s *MemoryStore) Authenticate(_ context.Context, login, password string) (*domain.User, error) {
	s.mu.RLock()
	var rec *userRecord
	for _, r := range s.users {
		if r.user.Username == login || (r.user.Email != "" && strings.EqualFold(r.user.Email, login)) {
			rec = r
			break
		}
	}
	s.mu.RUnlock()

	if rec == nil {
		return nil, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword(rec.password, []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	u := rec.user
	return &u, nil
}

// GetUser returns a user by id.
func (s *MemoryStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u := rec.user
	return &u, nil
}

// UpdateUser replaces the profile fields of an existing user and refreshes
// the owner embedded in their listings.
func (s *MemoryStore) UpdateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	rec.user = *u
	for _, l := range s.listings {
		if l.User != nil && l.User.ID == u.ID {
			owner := *u
			l.User = &owner
		}
	}
	return nil
}

// --- Listings ---

// ListListings returns one page of matching listings and the total match
// count.
func (s *MemoryStore) ListListings(_ context.Context, q *ListingQuery) ([]domain.Listing, int, error) {
	if q == nil {
		q = &ListingQuery{}
	}
	q.Normalize()

	s.mu.RLock()
	matched := make([]domain.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if q.Matches(l) {
			matched = append(matched, cloneListing(l))
		}
	}
	s.mu.RUnlock()

	q.Sort(matched)

	total := len(matched)
	if q.Offset >= total {
		return []domain.Listing{}, total, nil
	}
	end := min(q.Offset+q.Limit, total)
	return matched[q.Offset:end], total, nil
}

// GetListing returns a listing by id.
func (s *MemoryStore) GetListing(_ context.Context, id int64) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	out := cloneListing(l)
	return &out, nil
}

// CreateListing stores l, assigning its id, image ids, and timestamps.
func (s *MemoryStore) CreateListing(_ context.Context, l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == 0 {
		l.ID = s.nextListingID
	}
	if _, exists := s.listings[l.ID]; exists {
		return fmt.Errorf("listing %d: %w", l.ID, ErrConflict)
	}
	s.nextListingID = max(s.nextListingID, l.ID+1)

	now := s.now().UTC()
	if l.CreatedAt == nil {
		l.CreatedAt = &now
	}
	if l.UpdatedAt == nil {
		l.UpdatedAt = l.CreatedAt
	}
	s.assignImageIDsLocked(l)

	stored := cloneListing(l)
	stored.IsFavorite = nil
	s.listings[l.ID] = &stored
	return nil
}

// UpdateListing replaces an existing listing, keeping its owner and
// creation time.
func (s *MemoryStore) UpdateListing(_ context.Context, l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.listings[l.ID]
	if !ok {
		return fmt.Errorf("listing %d: %w", l.ID, ErrNotFound)
	}

	now := s.now().UTC()
	l.User = cur.User
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = &now
	s.assignImageIDsLocked(l)

	stored := cloneListing(l)
	stored.IsFavorite = nil
	s.listings[l.ID] = &stored
	return nil
}

// DeleteListing removes a listing and every favorite pointing at it.
func (s *MemoryStore) DeleteListing(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	delete(s.listings, id)
	s.favorites = slices.DeleteFunc(s.favorites, func(f Favorite) bool {
		return f.ListingID == id
	})
	return nil
}

func (s *MemoryStore) assignImageIDsLocked(l *domain.Listing) {
	for i := range l.Images {
		if l.Images[i].ID == 0 {
			l.Images[i].ID = s.nextImageID
		}
		s.nextImageID = max(s.nextImageID, l.Images[i].ID+1)
	}
}

// --- Favorites ---

// ToggleFavorite adds the listing to the user's favorites, or removes it
// when already present.
func (s *MemoryStore) ToggleFavorite(_ context.Context, userID, listingID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return false, fmt.Errorf("listing %d: %w", listingID, ErrNotFound)
	}

	for i, f := range s.favorites {
		if f.UserID == userID && f.ListingID == listingID {
			s.favorites = slices.Delete(s.favorites, i, i+1)
			return false, nil
		}
	}

	s.favorites = append(s.favorites, Favorite{
		ID:        s.nextFavoriteID,
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: s.now().UTC(),
	})
	s.nextFavoriteID++
	return true, nil
}

// ListFavorites returns the user's favorites, newest first.
func (s *MemoryStore) ListFavorites(_ context.Context, userID int64) ([]Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Favorite, 0)
	for i := len(s.favorites) - 1; i >= 0; i-- {
		if s.favorites[i].UserID == userID {
			out = append(out, s.favorites[i])
		}
	}
	return out, nil
}

// AllFavorites returns every favorite in creation order.
func (s *MemoryStore) AllFavorites(_ context.Context) ([]Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites), nil
}

// --- Interactions ---

// RecordInteraction stores an interaction for the user. A favorite is
// kept once per listing, and an unfavorite removes it.
func (s *MemoryStore) RecordInteraction(_ context.Context, userID int64, in domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[in.ListingID]; !ok {
		return fmt.Errorf("listing %d: %w", in.ListingID, ErrNotFound)
	}

	isFavorite := func(e domain.Interaction) bool {
		return e.ListingID == in.ListingID && e.Type == domain.InteractionFavorite
	}
	switch in.Type {
	case domain.InteractionUnfavorite:
		s.events[userID] = slices.DeleteFunc(s.events[userID], isFavorite)
		return nil
	case domain.InteractionFavorite:
		if slices.ContainsFunc(s.events[userID], isFavorite) {
			return nil
		}
	}
	s.events[userID] = append(s.events[userID], in)
	return nil
}

// ListInteractions returns the user's interactions in recorded order.
func (s *MemoryStore) ListInteractions(_ context.Context, userID int64) ([]domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events[userID]), nil
}

// AllInteractions returns the interactions of every user, ordered by user
// id and then recorded order.
func (s *MemoryStore) AllInteractions(_ context.Context) ([]UserInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]int64, 0, len(s.events))
	for id := range s.events {
		users = append(users, id)
	}
	slices.Sort(users)

	var out []UserInteraction
	for _, id := range users {
		for _, in := range s.events[id] {
			out = append(out, UserInteraction{UserID: id, Interaction: in})
		}
	}
	return out, nil
}

// --- Tokens ---

// RevokeToken blacklists a token id until it would have expired anyway.
func (s *MemoryStore) RevokeToken(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[id] = until
	return nil
}

// PruneRevoked forgets revocations whose tokens have expired and returns
// how many were dropped.
func (s *MemoryStore) PruneRevoked(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, k)
			n++
		}
	}
	return n, nil
}

// IsRevoked reports whether a token id was revoked.
func (s *MemoryStore) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[id]
	return ok, nil
}

func cloneListing(l *domain.Listing) domain.Listing {
	out := *l
	if l.User != nil {
		u := *l.User
		out.User = &u
	}
	out.Images = slices.Clone(l.Images)
	out.Features = slices.Clone(l.Features)
	if l.IsFavorite != nil {
		v := *l.IsFavorite
		out.IsFavorite = &v
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
