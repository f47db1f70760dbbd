package main

import (
	"context"
	"fmt"

	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/logging"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// defaultIssues is the starter list of repairable faults
var defaultIssues = []struct {
	Name        string
	Description string
}{
	{"Screen Replacement", "Cracked, unresponsive or flickering display"},
	{"Battery Replacement", "Fast drain, swelling or random shutdowns"},
	{"Charging Port Repair", "Loose cable or device not charging"},
	{"Back Glass Replacement", "Shattered rear glass panel"},
	{"Camera Repair", "Blurry, black or shaking camera"},
	{"Speaker Repair", "Muffled or no sound from the earpiece or loudspeaker"},
	{"Microphone Repair", "Callers cannot hear you"},
	{"Water Damage Treatment", "Cleaning and diagnosis after liquid exposure"},
}

func seedCmd() *cobra.Command {
	var adminPhone string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the starter issue catalog and optionally promote an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.GoEnv)

			db, err := config.OpenDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer config.CloseDatabase(db)

			return seed(cmd.Context(), db, adminPhone, cfg.SMSCountryCode, logger)
		},
	}

	cmd.Flags().StringVar(&adminPhone, "admin-phone", "", "phone number to create or promote as admin")
	return cmd
}

// seed is idempotent: existing issues are left alone
func seed(ctx context.Context, db *gorm.DB, adminPhone, countryCode string, logger zerolog.Logger) error {
	db = db.WithContext(ctx)

	created := 0
	for _, item := range defaultIssues {
		description := item.Description
		issue := models.Issue{Name: item.Name, Description: &description}
		res := db.Where("name = ?", item.Name).FirstOrCreate(&issue)
		if res.Error != nil {
			return fmt.Errorf("failed to seed issue %q: %w", item.Name, res.Error)
		}
		created += int(res.RowsAffected)
	}
	logger.Info().Int("created", created).Int("total", len(defaultIssues)).Msg("issues seeded")

	if adminPhone == "" {
		return nil
	}

	phone, ok := services.NormalizePhone(adminPhone, countryCode)
	if !ok {
		return fmt.Errorf("invalid admin phone number %q", adminPhone)
	}

	admin := models.User{PhoneNumber: phone}
	if err := db.Where("phone_number = ?", phone).FirstOrCreate(&admin).Error; err != nil {
		return fmt.Errorf("failed to find or create admin: %w", err)
	}
	if err := db.Model(&admin).Update("role", models.RoleAdmin).Error; err != nil {
		return fmt.Errorf("failed to promote admin: %w", err)
	}
	logger.Info().Str("user_id", admin.ID).Msg("admin ready")
	return nil
}
