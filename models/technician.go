package models

import "time"

// TechnicianStatus is the availability of a technician
type TechnicianStatus string

const (
	TechnicianActive   TechnicianStatus = "active"
	TechnicianOnLeave  TechnicianStatus = "on_leave"
	TechnicianInactive TechnicianStatus = "inactive"
)

// Valid reports whether s is a known technician status
func (s TechnicianStatus) Valid() bool {
	switch s {
	case TechnicianActive, TechnicianOnLeave, TechnicianInactive:
		return true
	}
	return false
}

// Technician is the roster record of a user with role=technician.
// Performance figures are computed from orders, never stored here.
type Technician struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    string           `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	User      User             `gorm:"foreignKey:UserID" json:"user"`
	Status    TechnicianStatus `gorm:"size:16;not null;default:'active'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Technician model
func (Technician) TableName() string {
	return "technicians"
}

// TechnicianInvite is a one-time onboarding link sent to a prospective technician
type TechnicianInvite struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	PhoneNumber      string     `gorm:"size:32;not null;index" json:"phone_number"`
	Name             *string    `json:"name"`
	Token            string     `gorm:"uniqueIndex;size:128;not null" json:"token"`
	ExpiresAt        time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt           *time.Time `json:"used_at"`
	CreatedByAdminID *string    `gorm:"size:36" json:"created_by_admin_id"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName specifies the table name for the TechnicianInvite model
func (TechnicianInvite) TableName() string {
	return "technician_invites"
}

// Usable reports whether the invite can still be redeemed at now
func (i *TechnicianInvite) Usable(now time.Time) bool {
	return i.UsedAt == nil && now.Before(i.ExpiresAt)
}
