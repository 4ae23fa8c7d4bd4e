package domain

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Role            UserRole  `json:"role"`
	Addresses       []Address `json:"addresses,omitempty"`
	Wishlist        []string  `json:"wishlist,omitempty"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

type Address struct {
	ID         string `json:"_id,omitempty"`
	Title      string `json:"title"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

// RegisterData is the registration request payload.
type RegisterData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// ProfileUpdate carries the user fields a profile update may change.
// Nil fields are omitted from the request so the server treats the
// update as partial.
type ProfileUpdate struct {
	Name      *string    `json:"name,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Avatar    *string    `json:"avatar,omitempty"`
	Addresses *[]Address `json:"addresses,omitempty"`
}
