package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuthService implements phone + OTP login
type AuthService struct {
	db          *gorm.DB
	sms         SMSProvider
	throttle    Throttle
	cooldown    time.Duration
	sessions    *SessionService
	countryCode string
	logger      zerolog.Logger
}

// NewAuthService wires the login flow
func NewAuthService(db *gorm.DB, sms SMSProvider, throttle Throttle, cooldown time.Duration, sessions *SessionService, countryCode string, logger zerolog.Logger) *AuthService {
	return &AuthService{
		db:          db,
		sms:         sms,
		throttle:    throttle,
		cooldown:    cooldown,
		sessions:    sessions,
		countryCode: countryCode,
		logger:      logger,
	}
}

// Session is a signed-in user with their token
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) normalize(phoneNumber string) (string, error) {
	phone, ok := NormalizePhone(phoneNumber, s.countryCode)
	if !ok {
		return "", ValidationError("Invalid request data", map[string]string{
			"phone_number": "Please enter a valid 10-digit phone number",
		})
	}
	return phone, nil
}

// SendOTP texts a login code, at most once per phone per cooldown
func (s *AuthService) SendOTP(ctx context.Context, phoneNumber string) (string, error) {
	phone, err := s.normalize(phoneNumber)
	if err != nil {
		return "", err
	}

	allowed, err := s.throttle.Allow(ctx, "otp:"+phone, s.cooldown)
	if err != nil {
		// fail open when the throttle backend is down
		s.logger.Error().Err(err).Msg("OTP throttle unavailable")
	} else if !allowed {
		return "", TooManyRequests("Please wait before requesting another code")
	}

	verificationID, err := s.sms.SendOTP(ctx, phone)
	if err != nil {
		s.logger.Error().Err(err).Str("phone_number", phone).Msg("failed to send login OTP")
		return "", Upstream("Failed to send OTP")
	}
	return verificationID, nil
}

// VerifyOTP checks the code with the provider, then finds or creates the
// user and signs a session
func (s *AuthService) VerifyOTP(ctx context.Context, phoneNumber, verificationID, code string) (*Session, error) {
	phone, err := s.normalize(phoneNumber)
	if err != nil {
		return nil, err
	}

	ok, err := s.sms.VerifyOTP(ctx, phone, verificationID, code)
	if err != nil {
		s.logger.Error().Err(err).Str("phone_number", phone).Msg("failed to verify login OTP")
		return nil, Upstream("Failed to verify OTP")
	}
	if !ok {
		return nil, BadRequest("INVALID_OTP", "Invalid OTP")
	}

	user := models.User{PhoneNumber: phone}
	if err := s.db.WithContext(ctx).Where("phone_number = ?", phone).FirstOrCreate(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	return s.IssueSession(&user)
}

// IssueSession signs a fresh session for user
func (s *AuthService) IssueSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// CurrentUser loads the signed-in user
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("USER_NOT_FOUND", "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ProfileUpdate holds the editable profile fields; nil leaves a field unchanged
type ProfileUpdate struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=256"`
	Email *string `json:"email" binding:"omitempty,email,max=256"`
}

// UpdateProfile edits the signed-in user's name and email
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.CurrentUser(ctx, userID)
}
