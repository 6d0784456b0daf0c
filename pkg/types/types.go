// Package domain defines the core business types for the car marketplace
// client.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// FuelType is the fuel a vehicle runs on.
type FuelType string

// Fuel type constants.
const (
	FuelPetrol       FuelType = "benzina"
	FuelDiesel       FuelType = "diesel"
	FuelElectric     FuelType = "electric"
	FuelHybridPetrol FuelType = "hibrid_benzina"
	FuelHybridDiesel FuelType = "hibrid_diesel"
	FuelLPG          FuelType = "GPL"
	FuelOther        FuelType = "altele"
)

// Transmission is the gearbox type.
type Transmission string

// Transmission constants.
const (
	TransmissionManual    Transmission = "manuala"
	TransmissionAutomatic Transmission = "automata"
	TransmissionSemiAuto  Transmission = "semi-automata"
)

// DriveType is the driven axle layout.
type DriveType string

// Drive type constants.
const (
	DriveFront DriveType = "fata"
	DriveRear  DriveType = "spate"
	Drive4x4   DriveType = "4x4"
)

// Condition is the vehicle's declared state.
type Condition string

// Condition constants.
const (
	ConditionNew     Condition = "nou"
	ConditionUsed    Condition = "utilizat"
	ConditionDamaged Condition = "avariat"
)

// User is a marketplace account as returned by the profile and listing
// endpoints.
type User struct {
	ID        int64  `json:"id"                   yaml:"id"`
	Username  string `json:"username"             yaml:"username"`
	Email     string `json:"email,omitempty"      yaml:"email,omitempty"`
	FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"  yaml:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"      yaml:"phone,omitempty"`
	IsStaff   bool   `json:"is_staff,omitempty"   yaml:"is_staff,omitempty"`
}

// DisplayName returns the full name when known, else the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// Image is a listing photo reference.
type Image struct {
	ID        int64  `json:"id"`
	ImagePath string `json:"image_path"`
	IsMain    bool   `json:"is_main"`
}

// Feature is a name/value pair attached to a listing.
type Feature struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"feature_name"`
	Value string `json:"feature_value,omitempty"`
}

// Listing is a vehicle-for-sale record.
type Listing struct {
	ID    int64  `json:"id"`
	User  *User  `json:"user,omitempty"`
	Title string `json:"title"`

	// Vehicle
	Brand             string       `json:"brand"`
	Model             string       `json:"model"`
	YearOfManufacture int          `json:"year_of_manufacture"`
	Mileage           int          `json:"mileage"`
	Power             int          `json:"power"`
	EngineCapacity    int          `json:"engine_capacity"`
	Color             string       `json:"color"`
	ConditionState    Condition    `json:"condition_state"`
	FuelType          FuelType     `json:"fuel_type"`
	EmissionStandard  string       `json:"emission_standard"`
	Transmission      Transmission `json:"transmission"`
	DriveType         DriveType    `json:"drive_type"`
	BodyType          string       `json:"body_type,omitempty"`
	RightHandDrive    bool         `json:"right_hand_drive"`
	CO2Emissions      *int         `json:"co2_emissions,omitempty"`
	Seats             *int         `json:"seats,omitempty"`
	Doors             *int         `json:"doors,omitempty"`
	Registered        bool         `json:"registered"`
	Location          string       `json:"location,omitempty"`

	// Offer
	Price       int       `json:"price"`
	Description string    `json:"description,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	Features    []Feature `json:"features,omitempty"`

	// IsFavorite is nil when the server did not report a favorite state.
	IsFavorite *bool `json:"is_favorite,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Key returns the listing id in the string form used by the favorite cache.
func (l *Listing) Key() string {
	return strconv.FormatInt(l.ID, 10)
}

// Favorite reports whether the listing is flagged as a favorite.
func (l *Listing) Favorite() bool {
	return l.IsFavorite != nil && *l.IsFavorite
}

// SetFavorite sets the favorite flag.
func (l *Listing) SetFavorite(v bool) {
	l.IsFavorite = &v
}

// MainImage returns the path of the main image, falling back to the first
// image, or "" when the listing has none.
func (l *Listing) MainImage() string {
	for i := range l.Images {
		if l.Images[i].IsMain {
			return l.Images[i].ImagePath
		}
	}
	if len(l.Images) > 0 {
		return l.Images[0].ImagePath
	}
	return ""
}

// ListingPage is one server-paginated slice of listings. Next is non-nil
// iff more pages exist.
type ListingPage struct {
	Results  []Listing `json:"results"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous,omitempty"`
	Count    int       `json:"count"`
}

// HasNext reports whether the server advertised a further page.
func (p *ListingPage) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// ListingInput is the writable subset of a listing used for create and
// update.
type ListingInput struct {
	Title             string       `json:"title"`
	Brand             string       `json:"brand"`
	Model             string       `json:"model"`
	YearOfManufacture int          `json:"year_of_manufacture"`
	Mileage           int          `json:"mileage"`
	Power             int          `json:"power"`
	EngineCapacity    int          `json:"engine_capacity"`
	Color             string       `json:"color"`
	ConditionState    Condition    `json:"condition_state"`
	FuelType          FuelType     `json:"fuel_type"`
	EmissionStandard  string       `json:"emission_standard"`
	Transmission      Transmission `json:"transmission"`
	DriveType         DriveType    `json:"drive_type"`
	BodyType          string       `json:"body_type,omitempty"`
	Location          string       `json:"location,omitempty"`
	Price             int          `json:"price"`
	Description       string       `json:"description,omitempty"`
	Features          []Feature    `json:"features,omitempty"`
}

// FavoriteToggle is the response of the favorite toggle endpoint.
type FavoriteToggle struct {
	Status string `json:"status"`
}

// Added reports whether the toggle added the listing to favorites. The
// server answers "added" or "added to favorites"; anything else is a
// removal.
func (t *FavoriteToggle) Added() bool {
	return strings.HasPrefix(t.Status, "added")
}

// Credentials is the login payload. The server matches Email first and
// also accepts a username.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Interaction records a user action for the recommendation engine.
type Interaction struct {
	ListingID int64  `json:"listing_id"`
	Type      string `json:"type"`
}

// Interaction types understood by the recommendation service.
const (
	InteractionView       = "view"
	InteractionClick      = "click"
	InteractionFavorite   = "favorite"
	InteractionUnfavorite = "unfavorite"
	InteractionContact    = "contact"
)
