package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the capability tag carried by a user and their session
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleTechnician:
		return true
	}
	return false
}

// User represents a user in the system (customer, technician or admin).
// Users sign in with their phone number.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        *string   `json:"name"`
	PhoneNumber string    `gorm:"uniqueIndex;size:32;not null" json:"phone_number"`
	Email       *string   `json:"email,omitempty"`
	Role        Role      `gorm:"size:16;not null;default:'customer'" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not supply one
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

// DisplayName returns the user's name, falling back to the phone number
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.PhoneNumber
}
