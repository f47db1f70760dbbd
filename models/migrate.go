package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All lists every persisted model in dependency order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Technician{},
		&TechnicianInvite{},
		&Brand{},
		&DeviceModel{},
		&Issue{},
		&ModelIssue{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&Address{},
		&OrderPhoto{},
		&CouponUsage{},
		&ContactMessage{},
	}
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
