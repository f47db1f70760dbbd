package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// CreateBrandRequest represents the request body for adding a brand
type CreateBrandRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// CreateIssueRequest represents the request body for adding a repairable issue
type CreateIssueRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=512"`
}

// UploadURLRequest asks for a presigned direct upload
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required,max=256"`
}

// CatalogController serves the public catalog and its admin management
type CatalogController struct {
	catalog *services.CatalogService
	images  *services.ImageService
}

// NewCatalogController creates a catalog controller. images may be nil when
// object storage is not configured.
func NewCatalogController(catalog *services.CatalogService, images *services.ImageService) *CatalogController {
	return &CatalogController{catalog: catalog, images: images}
}

// ListBrands handles GET /api/brands
func (cc *CatalogController) ListBrands(c *gin.Context) {
	brands, err := cc.catalog.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	respondOK(c, http.StatusOK, brands)
}

// ListModels handles GET /api/models?brand=
func (cc *CatalogController) ListModels(c *gin.Context) {
	brand := c.Query("brand")
	if brand == "" {
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", map[string]string{"brand": "This field is required"})
		return
	}

	models, err := cc.catalog.ListModels(c.Request.Context(), brand)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, models)
}

// Services handles GET /api/services?brand=&model=
func (cc *CatalogController) Services(c *gin.Context) {
	brand, model := c.Query("brand"), c.Query("model")
	if brand == "" || model == "" {
		fields := map[string]string{}
		if brand == "" {
			fields["brand"] = "This field is required"
		}
		if model == "" {
			fields["model"] = "This field is required"
		}
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", fields)
		return
	}

	catalog, err := cc.catalog.Services(c.Request.Context(), brand, model)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, catalog)
}

// FormData handles GET /api/admin/form-data
func (cc *CatalogController) FormData(c *gin.Context) {
	data, err := cc.catalog.FormData(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, data)
}

// CreateBrand handles POST /api/admin/brands
func (cc *CatalogController) CreateBrand(c *gin.Context) {
	var req CreateBrandRequest
	if !bindJSON(c, &req) {
		return
	}

	brand, err := cc.catalog.CreateBrand(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, brand)
}

// CreateIssue handles POST /api/admin/issues
func (cc *CatalogController) CreateIssue(c *gin.Context) {
	var req CreateIssueRequest
	if !bindJSON(c, &req) {
		return
	}

	issue, err := cc.catalog.CreateIssue(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, issue)
}

// CreateModel handles POST /api/admin/models
func (cc *CatalogController) CreateModel(c *gin.Context) {
	var req services.ModelInput
	if !bindJSON(c, &req) {
		return
	}

	model, err := cc.catalog.CreateModel(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, model)
}

// GetModel handles GET /api/admin/models/:id
func (cc *CatalogController) GetModel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	model, err := cc.catalog.GetModel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, model)
}

// UpdateModel handles PATCH /api/admin/models/:id
func (cc *CatalogController) UpdateModel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ModelUpdate
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var previousImage string
	if req.ImageURL != nil && cc.images != nil {
		if current, err := cc.catalog.GetModel(ctx, id); err == nil && current.ImageURL != nil {
			previousImage = *current.ImageURL
		}
	}

	model, err := cc.catalog.UpdateModel(ctx, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	if previousImage != "" {
		// the update already committed; a leftover object is only logged
		if err := cc.images.DiscardReplaced(ctx, previousImage, *req.ImageURL); err != nil {
			_ = c.Error(err)
		}
	}

	respondOK(c, http.StatusOK, model)
}

// UploadModelImage handles POST /api/admin/uploads/model-image (multipart field "image")
func (cc *CatalogController) UploadModelImage(c *gin.Context) {
	if cc.images == nil {
		uploadsUnavailable(c)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required", nil)
		return
	}

	image, err := cc.images.UploadImage(c.Request.Context(), services.FolderModelImages, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, image)
}

// GenerateUploadURL handles POST /api/admin/generate-upload-url
func (cc *CatalogController) GenerateUploadURL(c *gin.Context) {
	if cc.images == nil {
		uploadsUnavailable(c)
		return
	}

	var req UploadURLRequest
	if !bindJSON(c, &req) {
		return
	}

	upload, err := cc.images.CreateUploadURL(c.Request.Context(), services.FolderModelImages, req.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, upload)
}
