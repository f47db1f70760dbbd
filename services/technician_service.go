package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InviteTTL is how long a technician invitation stays redeemable
const InviteTTL = 7 * 24 * time.Hour

// TechnicianWithStats is a roster entry
type TechnicianWithStats struct {
	models.Technician
	Performance *TechnicianPerformance `json:"performance"`
}

// TechnicianService manages the technician roster and onboarding invites
type TechnicianService struct {
	db          *gorm.DB
	dashboard   *DashboardService
	countryCode string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTechnicianService creates a technician service
func NewTechnicianService(db *gorm.DB, dashboard *DashboardService, countryCode string, logger zerolog.Logger) *TechnicianService {
	return &TechnicianService{db: db, dashboard: dashboard, countryCode: countryCode, logger: logger, now: time.Now}
}

func (s *TechnicianService) phone(raw string) (string, error) {
	phone, ok := NormalizePhone(raw, s.countryCode)
	if !ok {
		return "", ValidationError("Invalid request data", map[string]string{"phone_number": "Please enter a valid 10-digit phone number"})
	}
	return phone, nil
}

// List returns the roster with computed performance
func (s *TechnicianService) List(ctx context.Context) ([]TechnicianWithStats, error) {
	var techs []models.Technician
	if err := s.db.WithContext(ctx).Preload("User").Order("created_at ASC").Find(&techs).Error; err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}

	ids := make([]string, 0, len(techs))
	for _, t := range techs {
		ids = append(ids, t.UserID)
	}
	perf, err := s.dashboard.TechnicianPerformance(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]TechnicianWithStats, 0, len(techs))
	for _, t := range techs {
		out = append(out, TechnicianWithStats{Technician: t, Performance: perf[t.UserID]})
	}
	return out, nil
}

// Get returns one roster entry by technician id
func (s *TechnicianService) Get(ctx context.Context, id uint) (*TechnicianWithStats, error) {
	var tech models.Technician
	if err := s.db.WithContext(ctx).Preload("User").First(&tech, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("TECHNICIAN_NOT_FOUND", "Technician not found")
		}
		return nil, fmt.Errorf("failed to load technician: %w", err)
	}

	perf, err := s.dashboard.TechnicianPerformance(ctx, []string{tech.UserID})
	if err != nil {
		return nil, err
	}
	return &TechnicianWithStats{Technician: tech, Performance: perf[tech.UserID]}, nil
}

// promote makes user a technician inside tx and returns the roster row
func promote(tx *gorm.DB, user *models.User, name *string) (*models.Technician, error) {
	if user.Role == models.RoleAdmin {
		return nil, Conflict("USER_IS_ADMIN", "Admins cannot be made technicians")
	}

	updates := map[string]interface{}{"role": models.RoleTechnician}
	if name != nil && strings.TrimSpace(*name) != "" && (user.Name == nil || *user.Name == "") {
		updates["name"] = strings.TrimSpace(*name)
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}
	user.Role = models.RoleTechnician

	tech := models.Technician{UserID: user.ID, Status: models.TechnicianActive}
	if err := tx.Where("user_id = ?", user.ID).FirstOrCreate(&tech).Error; err != nil {
		return nil, fmt.Errorf("failed to create technician: %w", err)
	}
	return &tech, nil
}

// Create adds a technician by phone number, creating the user if needed
func (s *TechnicianService) Create(ctx context.Context, phoneNumber string, name *string) (*models.Technician, error) {
	phone, err := s.phone(phoneNumber)
	if err != nil {
		return nil, err
	}

	var tech *models.Technician
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("phone_number = ?", phone).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{PhoneNumber: phone, Role: models.RoleTechnician}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load user: %w", err)
		default:
			var existing int64
			if err := tx.Model(&models.Technician{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check technician: %w", err)
			}
			if existing > 0 {
				return Conflict("ALREADY_TECHNICIAN", "This user is already a technician")
			}
		}

		tech, err = promote(tx, &user, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", tech.UserID).Msg("technician added")
	var out models.Technician
	if err := s.db.WithContext(ctx).Preload("User").First(&out, tech.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load technician: %w", err)
	}
	return &out, nil
}

// UpdateStatus changes a technician's availability
func (s *TechnicianService) UpdateStatus(ctx context.Context, id uint, status models.TechnicianStatus) (*models.Technician, error) {
	if !status.Valid() {
		return nil, ValidationError("Invalid request data", map[string]string{"status": "Must be active, on_leave or inactive"})
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.Technician{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update technician: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, NotFound("TECHNICIAN_NOT_FOUND", "Technician not found")
	}

	var tech models.Technician
	if err := db.Preload("User").First(&tech, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load technician: %w", err)
	}
	return &tech, nil
}

// CreateInvite issues a one-time onboarding token for phoneNumber
func (s *TechnicianService) CreateInvite(ctx context.Context, phoneNumber string, name *string, adminID string) (*models.TechnicianInvite, error) {
	phone, err := s.phone(phoneNumber)
	if err != nil {
		return nil, err
	}

	invite := models.TechnicianInvite{
		PhoneNumber:      phone,
		Name:             name,
		Token:            strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt:        s.now().UTC().Add(InviteTTL),
		CreatedByAdminID: &adminID,
	}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return &invite, nil
}

// ListInvites returns all invites, newest first
func (s *TechnicianService) ListInvites(ctx context.Context) ([]models.TechnicianInvite, error) {
	var invites []models.TechnicianInvite
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

func (s *TechnicianService) usableInvite(db *gorm.DB, token string) (*models.TechnicianInvite, error) {
	var invite models.TechnicianInvite
	if err := db.Where("token = ?", token).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("INVITE_NOT_FOUND", "Invitation not found")
		}
		return nil, fmt.Errorf("failed to load invite: %w", err)
	}
	if invite.UsedAt != nil {
		return nil, Gone("INVITE_USED", "Invitation has already been used")
	}
	if !invite.Usable(s.now()) {
		return nil, Gone("INVITE_EXPIRED", "Invitation has expired")
	}
	return &invite, nil
}

// GetInvite returns a redeemable invite
func (s *TechnicianService) GetInvite(ctx context.Context, token string) (*models.TechnicianInvite, error) {
	return s.usableInvite(s.db.WithContext(ctx), token)
}

// CompleteInvite redeems token for the signed-in user, whose phone number
// must match the invite, and returns the promoted user
func (s *TechnicianService) CompleteInvite(ctx context.Context, token, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.usableInvite(tx.Clauses(clause.Locking{Strength: "UPDATE"}), token)
		if err != nil {
			return err
		}

		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("USER_NOT_FOUND", "User not found")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user.PhoneNumber != invite.PhoneNumber {
			return Forbidden("This invitation was sent to a different phone number")
		}

		if _, err := promote(tx, &user, invite.Name); err != nil {
			return err
		}

		res := tx.Model(&models.TechnicianInvite{}).
			Where("id = ? AND used_at IS NULL", invite.ID).
			Update("used_at", s.now().UTC())
		if res.Error != nil {
			return fmt.Errorf("failed to mark invite used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return Gone("INVITE_USED", "Invitation has already been used")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("technician invite redeemed")
	return &user, nil
}
