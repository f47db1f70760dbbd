package models

import "time"

// ContactStatus tracks triage of a contact message
type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactResponded ContactStatus = "responded"
	ContactClosed    ContactStatus = "closed"
)

// Valid reports whether s is a known contact status
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactPending, ContactResponded, ContactClosed:
		return true
	}
	return false
}

// ContactMessage represents a message submitted through the public contact form
type ContactMessage struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:256;not null" json:"name"`
	Email       string        `gorm:"size:256;not null" json:"email"`
	Mobile      string        `gorm:"size:32;not null" json:"mobile"`
	Message     string        `gorm:"type:text;not null" json:"message"`
	Status      ContactStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	AdminNotes  *string       `json:"admin_notes"`
	RespondedAt *time.Time    `json:"responded_at"`
	RespondedBy *string       `gorm:"size:36" json:"responded_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the ContactMessage model
func (ContactMessage) TableName() string {
	return "contact_messages"
}
