package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// CreateTechnicianRequest adds a technician by phone number
type CreateTechnicianRequest struct {
	PhoneNumber string  `json:"phone_number" binding:"required,min=10,max=16"`
	Name        *string `json:"name" binding:"omitempty,max=256"`
}

// UpdateTechnicianRequest changes a technician's availability
type UpdateTechnicianRequest struct {
	Status models.TechnicianStatus `json:"status" binding:"required,oneof=active on_leave inactive"`
}

// AdminTechnicianController manages the technician roster and invitations
type AdminTechnicianController struct {
	technicians *services.TechnicianService
}

// NewAdminTechnicianController creates an admin technician controller
func NewAdminTechnicianController(technicians *services.TechnicianService) *AdminTechnicianController {
	return &AdminTechnicianController{technicians: technicians}
}

// List handles GET /api/admin/technicians
func (ac *AdminTechnicianController) List(c *gin.Context) {
	technicians, err := ac.technicians.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, technicians)
}

// Create handles POST /api/admin/technicians
func (ac *AdminTechnicianController) Create(c *gin.Context) {
	var req CreateTechnicianRequest
	if !bindJSON(c, &req) {
		return
	}

	technician, err := ac.technicians.Create(c.Request.Context(), req.PhoneNumber, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, technician)
}

// Get handles GET /api/admin/technicians/:id
func (ac *AdminTechnicianController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	technician, err := ac.technicians.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, technician)
}

// Update handles PATCH /api/admin/technicians/:id
func (ac *AdminTechnicianController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateTechnicianRequest
	if !bindJSON(c, &req) {
		return
	}

	technician, err := ac.technicians.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, technician)
}

// CreateInvite handles POST /api/admin/technician-invites
func (ac *AdminTechnicianController) CreateInvite(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req CreateTechnicianRequest
	if !bindJSON(c, &req) {
		return
	}

	invite, err := ac.technicians.CreateInvite(c.Request.Context(), req.PhoneNumber, req.Name, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, invite)
}

// ListInvites handles GET /api/admin/technician-invites
func (ac *AdminTechnicianController) ListInvites(c *gin.Context) {
	invites, err := ac.technicians.ListInvites(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, invites)
}
