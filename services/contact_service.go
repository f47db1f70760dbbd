package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"gorm.io/gorm"
)

// ContactInput is a public contact form submission
type ContactInput struct {
	Name    string `json:"name" binding:"required,min=2,max=256"`
	Email   string `json:"email" binding:"required,email,max=256"`
	Mobile  string `json:"mobile" binding:"required,min=10,max=32"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}

// ContactUpdate is an admin triage update
type ContactUpdate struct {
	Status     *models.ContactStatus `json:"status" binding:"omitempty,oneof=pending responded closed"`
	AdminNotes *string               `json:"admin_notes" binding:"omitempty,max=5000"`
}

// ContactStats summarises the inbox
type ContactStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Responded int64 `json:"responded"`
	Closed    int64 `json:"closed"`
	// percentage of messages that are no longer pending
	ResponseRate float64 `json:"response_rate"`
	// nil until a message has been responded to
	AverageResponseHours *float64 `json:"average_response_hours"`
}

// ContactService stores and triages contact messages
type ContactService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewContactService creates a contact service
func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db, now: time.Now}
}

// Submit stores a new message
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	msg := models.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Mobile:  strings.TrimSpace(in.Mobile),
		Message: strings.TrimSpace(in.Message),
		Status:  models.ContactPending,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}
	return &msg, nil
}

// List returns messages, newest first, optionally filtered by status
func (s *ContactService) List(ctx context.Context, status models.ContactStatus) ([]models.ContactMessage, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		if !status.Valid() {
			return nil, ValidationError("Invalid request data", map[string]string{"status": "Unknown status"})
		}
		query = query.Where("status = ?", status)
	}

	var messages []models.ContactMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return messages, nil
}

// Get returns one message
func (s *ContactService) Get(ctx context.Context, id uint) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("MESSAGE_NOT_FOUND", "Contact message not found")
		}
		return nil, fmt.Errorf("failed to load contact message: %w", err)
	}
	return &msg, nil
}

// Update changes status and notes; the first move to responded stamps who and when
func (s *ContactService) Update(ctx context.Context, id uint, in ContactUpdate, adminID string) (*models.ContactMessage, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ValidationError("Invalid request data", map[string]string{"status": "Unknown status"})
		}
		updates["status"] = *in.Status
		if *in.Status == models.ContactResponded && msg.RespondedAt == nil {
			updates["responded_at"] = s.now().UTC()
			updates["responded_by"] = adminID
		}
	}
	if in.AdminNotes != nil {
		updates["admin_notes"] = strings.TrimSpace(*in.AdminNotes)
	}
	if len(updates) == 0 {
		return msg, nil
	}

	if err := s.db.WithContext(ctx).Model(msg).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update contact message: %w", err)
	}
	return s.Get(ctx, id)
}

// Stats computes inbox counts and response times
func (s *ContactService) Stats(ctx context.Context) (*ContactStats, error) {
	var rows []struct {
		Status      models.ContactStatus
		CreatedAt   time.Time
		RespondedAt *time.Time
	}
	if err := s.db.WithContext(ctx).Model(&models.ContactMessage{}).Select("status, created_at, responded_at").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load contact stats: %w", err)
	}

	stats := &ContactStats{Total: int64(len(rows))}
	var totalHours float64
	var responded int
	for _, r := range rows {
		switch r.Status {
		case models.ContactPending:
			stats.Pending++
		case models.ContactResponded:
			stats.Responded++
		case models.ContactClosed:
			stats.Closed++
		}
		if r.RespondedAt != nil && r.RespondedAt.After(r.CreatedAt) {
			totalHours += r.RespondedAt.Sub(r.CreatedAt).Hours()
			responded++
		}
	}
	if stats.Total > 0 {
		stats.ResponseRate = float64(stats.Responded+stats.Closed) / float64(stats.Total) * 100
	}
	if responded > 0 {
		avg := totalHours / float64(responded)
		stats.AverageResponseHours = &avg
	}
	return stats, nil
}
