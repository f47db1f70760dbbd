package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController reports process and database health
type HealthController struct {
	db *gorm.DB
}

// NewHealthController creates a health controller
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Health handles GET /api/health
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pixel Panic API is running",
	})
}

// Database handles GET /api/health/database - checks connectivity and lists tables
func (hc *HealthController) Database(c *gin.Context) {
	sqlDB, err := hc.db.DB()
	if err != nil {
		respondFailure(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get database instance", nil)
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		respondFailure(c, http.StatusServiceUnavailable, "DATABASE_CONNECTION_ERROR", "Database connection failed", nil)
		return
	}

	tables, err := hc.db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		respondFailure(c, http.StatusInternalServerError, "DATABASE_QUERY_ERROR", "Failed to query tables", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
