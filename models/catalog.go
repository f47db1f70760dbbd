package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part grades offered per repair
const (
	GradeOEM         = "OEM"
	GradeAftermarket = "Aftermarket"
)

// Brand is a phone manufacturer we service
type Brand struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Brand model
func (Brand) TableName() string {
	return "brands"
}

// DeviceModel is a specific phone model belonging to one brand
type DeviceModel struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:256;not null;uniqueIndex:brand_model_unique_idx,priority:2" json:"name"`
	BrandID     uint         `gorm:"not null;uniqueIndex:brand_model_unique_idx,priority:1" json:"brand_id"`
	Brand       *Brand       `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	ImageURL    *string      `gorm:"size:1024" json:"image_url"`
	ModelIssues []ModelIssue `gorm:"foreignKey:ModelID" json:"model_issues,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TableName specifies the table name for the DeviceModel model
func (DeviceModel) TableName() string {
	return "models"
}

// Issue is a repairable fault (e.g. "Screen Replacement")
type Issue struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	Description *string   `gorm:"size:512" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the Issue model
func (Issue) TableName() string {
	return "issues"
}

// ModelIssue is the price matrix entry for one issue on one model.
// A null price means the tier is not offered.
type ModelIssue struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	ModelID          uint                `gorm:"not null;uniqueIndex:model_issue_unique_idx,priority:1" json:"model_id"`
	IssueID          uint                `gorm:"not null;uniqueIndex:model_issue_unique_idx,priority:2" json:"issue_id"`
	Issue            *Issue              `gorm:"foreignKey:IssueID" json:"issue,omitempty"`
	PriceOriginal    decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price_original"`
	PriceAftermarket decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price_aftermarket"`
	CreatedAt        time.Time           `json:"created_at"`
}

// TableName specifies the table name for the ModelIssue model
func (ModelIssue) TableName() string {
	return "model_issues"
}

// PriceFor returns the price of the given grade and whether that grade is offered
func (mi *ModelIssue) PriceFor(grade string) (decimal.Decimal, bool) {
	switch grade {
	case GradeOEM:
		return mi.PriceOriginal.Decimal, mi.PriceOriginal.Valid
	case GradeAftermarket:
		return mi.PriceAftermarket.Decimal, mi.PriceAftermarket.Valid
	}
	return decimal.Zero, false
}
