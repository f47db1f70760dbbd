package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceTier is one part grade offered for a repair
type PriceTier struct {
	Type     string          `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quality  string          `json:"quality"`
	Warranty string          `json:"warranty"`
}

// ServiceOffering is one repair on one model with the tiers on offer
type ServiceOffering struct {
	IssueID     uint                 `json:"issue_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Pricing     map[string]PriceTier `json:"pricing"`
}

// ServiceCatalog is the priced menu for one device
type ServiceCatalog struct {
	Brand    models.Brand       `json:"brand"`
	Model    models.DeviceModel `json:"model"`
	Services []ServiceOffering  `json:"services"`
}

// BrandModels lists a brand's models
type BrandModels struct {
	Brand  models.Brand         `json:"brand"`
	Models []models.DeviceModel `json:"models"`
}

// FormData feeds the admin model editor
type FormData struct {
	Brands []models.Brand `json:"brands"`
	Issues []models.Issue `json:"issues"`
}

// IssuePrice sets the tiers of one issue on a model; a nil price means not offered
type IssuePrice struct {
	IssueID          uint             `json:"issue_id" binding:"required"`
	PriceOriginal    *decimal.Decimal `json:"price_original"`
	PriceAftermarket *decimal.Decimal `json:"price_aftermarket"`
}

// ModelInput creates a model with its price list
type ModelInput struct {
	BrandID  uint         `json:"brand_id" binding:"required"`
	Name     string       `json:"name" binding:"required,min=2,max=100"`
	ImageURL *string      `json:"image_url" binding:"omitempty,url"`
	Issues   []IssuePrice `json:"issues" binding:"required,min=1,dive"`
}

// ModelUpdate edits a model. A non-nil Issues replaces the whole price list.
type ModelUpdate struct {
	Name     *string      `json:"name" binding:"omitempty,min=2,max=100"`
	ImageURL *string      `json:"image_url" binding:"omitempty,url"`
	Issues   []IssuePrice `json:"issues" binding:"omitempty,min=1,dive"`
}

// CatalogService serves brands, models and prices
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListBrands returns all brands by name
func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

func (s *CatalogService) brandByName(db *gorm.DB, name string) (*models.Brand, error) {
	var brand models.Brand
	if err := db.Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("BRAND_NOT_FOUND", "Brand not found")
		}
		return nil, fmt.Errorf("failed to load brand: %w", err)
	}
	return &brand, nil
}

// ListModels returns the models of the named brand (case-insensitive)
func (s *CatalogService) ListModels(ctx context.Context, brandName string) (*BrandModels, error) {
	db := s.db.WithContext(ctx)
	brand, err := s.brandByName(db, brandName)
	if err != nil {
		return nil, err
	}

	var deviceModels []models.DeviceModel
	if err := db.Where("brand_id = ?", brand.ID).Order("name ASC").Find(&deviceModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return &BrandModels{Brand: *brand, Models: deviceModels}, nil
}

// Services returns the priced repairs for a brand and model name
func (s *CatalogService) Services(ctx context.Context, brandName, modelName string) (*ServiceCatalog, error) {
	db := s.db.WithContext(ctx)
	brand, err := s.brandByName(db, brandName)
	if err != nil {
		return nil, err
	}

	var model models.DeviceModel
	err = db.Where("brand_id = ? AND LOWER(name) = LOWER(?)", brand.ID, strings.TrimSpace(modelName)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("MODEL_NOT_FOUND", "Model not found")
		}
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	var rows []models.ModelIssue
	if err := db.Preload("Issue").Where("model_id = ?", model.ID).Order("issue_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	catalog := &ServiceCatalog{Brand: *brand, Model: model, Services: make([]ServiceOffering, 0, len(rows))}
	for _, mi := range rows {
		offering := ServiceOffering{IssueID: mi.IssueID, Pricing: map[string]PriceTier{}}
		if mi.Issue != nil {
			offering.Name = mi.Issue.Name
			if mi.Issue.Description != nil {
				offering.Description = *mi.Issue.Description
			}
		}
		if price, ok := mi.PriceFor(models.GradeOEM); ok {
			offering.Pricing[models.GradeOEM] = PriceTier{Type: models.GradeOEM, Price: price, Quality: "Original", Warranty: "12 months"}
		}
		if price, ok := mi.PriceFor(models.GradeAftermarket); ok {
			offering.Pricing[models.GradeAftermarket] = PriceTier{Type: models.GradeAftermarket, Price: price, Quality: "Compatible", Warranty: "6 months"}
		}
		catalog.Services = append(catalog.Services, offering)
	}
	return catalog, nil
}

// FormData returns every brand and issue
func (s *CatalogService) FormData(ctx context.Context) (*FormData, error) {
	db := s.db.WithContext(ctx)
	data := &FormData{}
	if err := db.Order("name ASC").Find(&data.Brands).Error; err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	if err := db.Order("name ASC").Find(&data.Issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return data, nil
}

// CreateBrand adds a brand; names are unique ignoring case
func (s *CatalogService) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError("Invalid request data", map[string]string{"name": "Name is required"})
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Brand{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check brand: %w", err)
	}
	if count > 0 {
		return nil, Conflict("DUPLICATE_BRAND", "A brand with this name already exists")
	}

	brand := models.Brand{Name: name}
	if err := db.Create(&brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return &brand, nil
}

// CreateIssue adds a repairable issue
func (s *CatalogService) CreateIssue(ctx context.Context, name string, description *string) (*models.Issue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError("Invalid request data", map[string]string{"name": "Name is required"})
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Issue{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check issue: %w", err)
	}
	if count > 0 {
		return nil, Conflict("DUPLICATE_ISSUE", "An issue with this name already exists")
	}

	issue := models.Issue{Name: name, Description: description}
	if err := db.Create(&issue).Error; err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return &issue, nil
}

// priceRows validates a price list and turns it into rows for modelID
func priceRows(tx *gorm.DB, modelID uint, prices []IssuePrice) ([]models.ModelIssue, error) {
	fields := map[string]string{}
	seen := map[uint]bool{}
	ids := make([]uint, 0, len(prices))

	for i, p := range prices {
		field := fmt.Sprintf("issues[%d]", i)
		switch {
		case seen[p.IssueID]:
			fields[field+".issue_id"] = "Issue listed twice"
		case p.PriceOriginal == nil && p.PriceAftermarket == nil:
			fields[field] = "Offer at least one grade"
		case p.PriceOriginal != nil && p.PriceOriginal.IsNegative(), p.PriceAftermarket != nil && p.PriceAftermarket.IsNegative():
			fields[field] = "Prices must not be negative"
		}
		seen[p.IssueID] = true
		ids = append(ids, p.IssueID)
	}

	if len(fields) == 0 {
		var found int64
		if err := tx.Model(&models.Issue{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to check issues: %w", err)
		}
		if found != int64(len(ids)) {
			fields["issues"] = "Unknown issue"
		}
	}
	if len(fields) > 0 {
		return nil, ValidationError("Invalid price list", fields)
	}

	rows := make([]models.ModelIssue, 0, len(prices))
	for _, p := range prices {
		row := models.ModelIssue{ModelID: modelID, IssueID: p.IssueID}
		if p.PriceOriginal != nil {
			row.PriceOriginal = decimal.NewNullDecimal(p.PriceOriginal.Round(2))
		}
		if p.PriceAftermarket != nil {
			row.PriceAftermarket = decimal.NewNullDecimal(p.PriceAftermarket.Round(2))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func duplicateModel(tx *gorm.DB, brandID uint, name string, excludeID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.DeviceModel{}).
		Where("brand_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", brandID, name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check model name: %w", err)
	}
	return count > 0, nil
}

// CreateModel adds a model and its full price list in one transaction
func (s *CatalogService) CreateModel(ctx context.Context, in ModelInput) (*models.DeviceModel, error) {
	name := strings.TrimSpace(in.Name)
	if len(in.Issues) == 0 {
		return nil, ValidationError("Invalid request data", map[string]string{"issues": "Select at least one service"})
	}

	var model models.DeviceModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var brand models.Brand
		if err := tx.First(&brand, in.BrandID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("BRAND_NOT_FOUND", "Brand not found")
			}
			return fmt.Errorf("failed to load brand: %w", err)
		}

		dup, err := duplicateModel(tx, brand.ID, name, 0)
		if err != nil {
			return err
		}
		if dup {
			return Conflict("DUPLICATE_MODEL", "This brand already has a model with that name")
		}

		model = models.DeviceModel{BrandID: brand.ID, Name: name, ImageURL: in.ImageURL}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create model: %w", err)
		}

		rows, err := priceRows(tx, model.ID, in.Issues)
		if err != nil {
			return err
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to create prices: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetModel(ctx, model.ID)
}

// GetModel returns a model with its brand and price list
func (s *CatalogService) GetModel(ctx context.Context, id uint) (*models.DeviceModel, error) {
	var model models.DeviceModel
	err := s.db.WithContext(ctx).
		Preload("Brand").
		Preload("ModelIssues", func(db *gorm.DB) *gorm.DB { return db.Order("issue_id ASC") }).
		Preload("ModelIssues.Issue").
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("MODEL_NOT_FOUND", "Model not found")
		}
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return &model, nil
}

// UpdateModel renames a model and/or replaces its price list. The delete and
// insert of price rows share one transaction, so a failure keeps the old list.
func (s *CatalogService) UpdateModel(ctx context.Context, id uint, in ModelUpdate) (*models.DeviceModel, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.DeviceModel
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("MODEL_NOT_FOUND", "Model not found")
			}
			return fmt.Errorf("failed to load model: %w", err)
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			dup, err := duplicateModel(tx, model.BrandID, name, model.ID)
			if err != nil {
				return err
			}
			if dup {
				return Conflict("DUPLICATE_MODEL", "This brand already has a model with that name")
			}
			updates["name"] = name
		}
		if in.ImageURL != nil {
			updates["image_url"] = *in.ImageURL
		}
		if len(updates) > 0 {
			if err := tx.Model(&model).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update model: %w", err)
			}
		}

		if in.Issues != nil {
			if len(in.Issues) == 0 {
				return ValidationError("Invalid request data", map[string]string{"issues": "Select at least one service"})
			}
			rows, err := priceRows(tx, model.ID, in.Issues)
			if err != nil {
				return err
			}
			if err := tx.Where("model_id = ?", model.ID).Delete(&models.ModelIssue{}).Error; err != nil {
				return fmt.Errorf("failed to clear prices: %w", err)
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to create prices: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetModel(ctx, id)
}
