package api

import (
	"log/slog"
	"net/http"

	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/gin-gonic/gin"
)

// PlanHandler handles calculations, saved plans and usage statistics.
type PlanHandler struct {
	svc *planner.Service
	log *slog.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(svc *planner.Service, log *slog.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, log: log}
}

// Calculate returns the firing solution for one gun and target in meters.
func (h *PlanHandler) Calculate(c *gin.Context) {
	var req planner.CalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sol, err := h.svc.Calculate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sol)
}

// Create stores a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var rec core.PlanRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.svc.CreatePlan(c.Request.Context(), &rec)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// Get returns a saved plan.
func (h *PlanHandler) Get(c *gin.Context) {
	rec, err := h.svc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GeoJSON returns a saved plan as a GeoJSON feature collection in EPSG:4326.
func (h *PlanHandler) GeoJSON(c *gin.Context) {
	fc, err := h.svc.PlanGeoJSON(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// Stats returns usage statistics.
func (h *PlanHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PlacementRequest reports one placed marker.
type PlacementRequest struct {
	Kind     *core.MarkerKind `json:"kind" binding:"required"`
	WeaponID string           `json:"weaponId"`
}

// TrackPlacement counts a marker placed by a client.
func (h *PlanHandler) TrackPlacement(c *gin.Context) {
	var req PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.TrackPlacement(c.Request.Context(), *req.Kind, req.WeaponID); err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.Status(http.StatusAccepted)
}
