package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/auth"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// TokenIssuer mints and verifies token pairs.
type TokenIssuer interface {
	IssuePair(userID int64) (auth.Pair, error)
	Issue(userID int64, tokenType string) (string, error)
	Validate(token, wantType string) (*auth.Claims, error)
}

// UsersHandler serves registration, login, logout and the profile.
type UsersHandler struct {
	store  store.Store
	tokens TokenIssuer
	log    *slog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(s store.Store, tokens TokenIssuer, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  s,
		tokens: tokens,
		log:    logger.Component(log, "users"),
	}
}

// --- Input/Output types ---

// RegisterInput is the sign-up body.
type RegisterInput struct {
	Body domain.Registration
}

// UserOutput is a single user record.
type UserOutput struct {
	Body domain.User
}

// LoginInput is the login body.
type LoginInput struct {
	Body domain.Credentials
}

// LoginOutput carries the token pair and the signed-in user.
type LoginOutput struct {
	Body domain.LoginResponse
}

// RefreshTokenInput carries a refresh token.
type RefreshTokenInput struct {
	Body struct {
		Refresh string `json:"refresh" doc:"Refresh token"`
	} `required:"false"`
}

// LogoutOutput is an empty response with a status.
type LogoutOutput struct {
	Status int
}

// RefreshOutput carries a new access token.
type RefreshOutput struct {
	Body struct {
		Access string `json:"access"`
	}
}

// UserIDInput addresses one user.
type UserIDInput struct {
	ID string `path:"id" doc:"User id"`
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	Body domain.User
}

// --- Handlers ---

// Register creates an account.
func (h *UsersHandler) Register(ctx context.Context, in *RegisterInput) (*UserOutput, error) {
	r := in.Body

	const required = "This field is required."
	errs := map[string][]string{}
	if strings.TrimSpace(r.Username) == "" {
		errs["username"] = []string{required}
	}
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = []string{required}
	}
	if r.Password == "" {
		errs["password"] = []string{required}
	} else if r.Password != r.Password2 {
		errs["password"] = []string{"Password fields didn't match."}
	}
	if len(errs) > 0 {
		return nil, apierror.Fields(errs)
	}

	u := &domain.User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
	}
	if err := h.store.CreateUser(ctx, u, r.Password); err != nil {
		return nil, storeError(err)
	}
	h.log.Info("user registered", "user_id", u.ID)
	return &UserOutput{Body: *u}, nil
}

// Login exchanges an email or username and password for a token pair.
func (h *UsersHandler) Login(ctx context.Context, in *LoginInput) (*LoginOutput, error) {
	login := in.Body.Email
	if login == "" {
		login = in.Body.Username
	}

	u, err := h.store.Authenticate(ctx, login, in.Body.Password)
	if errors.Is(err, store.ErrInvalidLogin) {
		return nil, apierror.Message(http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	pair, err := h.tokens.IssuePair(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}
	return &LoginOutput{Body: domain.LoginResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    *u,
	}}, nil
}

// Logout blacklists the posted refresh token. Any unusable token is a bare
// 400.
func (h *UsersHandler) Logout(ctx context.Context, in *RefreshTokenInput) (*LogoutOutput, error) {
	bad := &LogoutOutput{Status: http.StatusBadRequest}

	claims, err := h.tokens.Validate(in.Body.Refresh, auth.TypeRefresh)
	if err != nil {
		return bad, nil
	}
	if revoked, err := h.store.IsRevoked(ctx, claims.ID); err != nil || revoked {
		return bad, nil
	}
	if err := h.store.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("revoking token: %w", err)
	}
	return &LogoutOutput{Status: http.StatusResetContent}, nil
}

// Refresh mints a new access token from a refresh token that has not been
// blacklisted.
func (h *UsersHandler) Refresh(ctx context.Context, in *RefreshTokenInput) (*RefreshOutput, error) {
	if in.Body.Refresh == "" {
		return nil, apierror.Fields(map[string][]string{"refresh": {"This field is required."}})
	}
	invalid := apierror.Coded(http.StatusUnauthorized, "Token is invalid or expired", middleware.CodeTokenNotValid)

	claims, err := h.tokens.Validate(in.Body.Refresh, auth.TypeRefresh)
	if err != nil {
		return nil, invalid
	}
	revoked, err := h.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("checking blacklist: %w", err)
	}
	if revoked {
		return nil, invalid
	}

	access, err := h.tokens.Issue(claims.UserID, auth.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	out := &RefreshOutput{}
	out.Body.Access = access
	return out, nil
}

// Detail returns a public user record. Contact fields are hidden from
// everyone but the user.
func (h *UsersHandler) Detail(ctx context.Context, in *UserIDInput) (*UserOutput, error) {
	id, err := parseID(in.ID)
	if err != nil {
		return nil, err
	}
	u, err := h.store.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if caller, ok := middleware.UserID(ctx); !ok || caller != id {
		u.Email = ""
		u.Phone = ""
	}
	return &UserOutput{Body: *u}, nil
}

// Profile returns the caller's profile.
func (h *UsersHandler) Profile(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, _ := middleware.UserID(ctx)
	u, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return &UserOutput{Body: *u}, nil
}

// UpdateProfile changes the caller's contact and name fields. The username
// and staff flag cannot be changed.
func (h *UsersHandler) UpdateProfile(ctx context.Context, in *UpdateProfileInput) (*UserOutput, error) {
	userID, _ := middleware.UserID(ctx)

	u, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	if in.Body.Email != "" {
		u.Email = in.Body.Email
	}
	u.FirstName = in.Body.FirstName
	u.LastName = in.Body.LastName
	u.Phone = in.Body.Phone

	if err := h.store.UpdateUser(ctx, u); err != nil {
		return nil, storeError(err)
	}
	return &UserOutput{Body: *u}, nil
}

// RegisterUserRoutes registers the account endpoints with the Huma API.
// Request bodies are checked by the handlers, not by schema validation.
func RegisterUserRoutes(api huma.API, h *UsersHandler) {
	requireAuth := huma.Middlewares{middleware.RequireAuth(api)}

	huma.Register(api, huma.Operation{
		OperationID:      "register",
		Method:           http.MethodPost,
		Path:             "/api/users/register/",
		Summary:          "Create an account",
		Tags:             []string{"users"},
		DefaultStatus:    http.StatusCreated,
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest},
	}, h.Register)

	huma.Register(api, huma.Operation{
		OperationID:      "login",
		Method:           http.MethodPost,
		Path:             "/api/users/login/",
		Summary:          "Sign in",
		Description:      "Accepts an email or a username with the password.",
		Tags:             []string{"users"},
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.Login)

	huma.Register(api, huma.Operation{
		OperationID:      "logout",
		Method:           http.MethodPost,
		Path:             "/api/users/logout/",
		Summary:          "Sign out",
		Description:      "Blacklists the posted refresh token. Answers 205, or a bare 400 for an unusable token.",
		Tags:             []string{"users"},
		Security:         bearer,
		Middlewares:      requireAuth,
		SkipValidateBody: true,
		Errors:           []int{http.StatusUnauthorized},
	}, h.Logout)

	huma.Register(api, huma.Operation{
		OperationID:      "refresh-token",
		Method:           http.MethodPost,
		Path:             "/api/token/refresh/",
		Summary:          "Refresh the access token",
		Tags:             []string{"users"},
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.Refresh)

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/api/users/profile/",
		Summary:     "Get the caller's profile",
		Tags:        []string{"users"},
		Security:    bearer,
		Middlewares: requireAuth,
		Errors:      []int{http.StatusUnauthorized},
	}, h.Profile)

	huma.Register(api, huma.Operation{
		OperationID:      "update-profile",
		Method:           http.MethodPut,
		Path:             "/api/users/profile/",
		Summary:          "Update the caller's profile",
		Tags:             []string{"users"},
		Security:         bearer,
		Middlewares:      requireAuth,
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.UpdateProfile)

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}/",
		Summary:     "Get a user",
		Description: "Email and phone are returned only to the user themselves.",
		Tags:        []string{"users"},
		Middlewares: huma.Middlewares{middleware.OptionalAuth(api)},
		Errors:      []int{http.StatusNotFound},
	}, h.Detail)
}
