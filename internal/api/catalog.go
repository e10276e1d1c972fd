package api

import (
	"net/http"
	"strconv"

	"github.com/foxholetools/artyplanner/internal/catalog"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the weapon and map lists.
type CatalogHandler struct {
	cat *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{cat: cat}
}

// Maps lists maps. ?activeOnly=true hides retired ones.
func (h *CatalogHandler) Maps(c *gin.Context) {
	activeOnly := false
	if v := c.Query("activeOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		activeOnly = b
	}
	c.JSON(http.StatusOK, h.cat.Maps(activeOnly))
}

// Weapons lists weapons. ?faction=Colonial|Warden filters; weapons serving both always match.
func (h *CatalogHandler) Weapons(c *gin.Context) {
	faction := core.FactionBoth
	switch f := core.Faction(c.Query("faction")); f {
	case "", core.FactionBoth:
	case core.FactionColonial, core.FactionWarden:
		faction = f
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown faction " + string(f)})
		return
	}
	c.JSON(http.StatusOK, h.cat.Weapons(faction))
}
