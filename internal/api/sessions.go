package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SessionHandler handles interactive editing sessions.
type SessionHandler struct {
	sessions *planner.Registry
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new session handler. allowedOrigins also
// governs websocket upgrades.
func NewSessionHandler(sessions *planner.Registry, log *slog.Logger, allowedOrigins []string) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(allowedOrigins, origin) || sameHost(r)
			},
		},
	}
}

// CreateSessionRequest opens an empty session on a map, or a copy of a saved plan.
type CreateSessionRequest struct {
	MapID  string `json:"mapId"`
	Name   string `json:"name"`
	PlanID string `json:"planId"`
}

// MarkerRequest places or locates a marker. Positions are image pixels.
type MarkerRequest struct {
	Kind     *core.MarkerKind `json:"kind" binding:"required"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	WeaponID string           `json:"weaponId"`
	// Index, when set on a remove request, removes that marker instead of the nearest one.
	Index *int `json:"index"`
}

// Create opens a session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		s   *planner.Session
		err error
	)
	switch {
	case req.PlanID != "":
		s, err = h.sessions.Open(c.Request.Context(), req.PlanID)
	case req.MapID != "":
		s, err = h.sessions.Create(c.Request.Context(), req.MapID, req.Name)
	default:
		badRequest(c, errors.New("mapId or planId is required"))
		return
	}
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, s.View())
}

// session resolves the :id parameter, writing a 404 when unknown.
func (h *SessionHandler) session(c *gin.Context) (*planner.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return nil, false
	}
	return s, true
}

// respond writes the view returned by a session edit.
func (h *SessionHandler) respond(c *gin.Context, v planner.View, err error) {
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Get returns the current session state.
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// Delete closes a session.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("id")); err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rename sets the name the session is saved under.
func (h *SessionHandler) Rename(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.Rename(req.Name)
	h.respond(c, v, err)
}

// Place adds a marker.
func (h *SessionHandler) Place(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req MarkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.Place(c.Request.Context(), *req.Kind, core.Px(req.X, req.Y), req.WeaponID)
	h.respond(c, v, err)
}

// Remove deletes the marker nearest the given point, or the one at index.
func (h *SessionHandler) Remove(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req MarkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var (
		v   planner.View
		err error
	)
	if req.Index != nil {
		v, err = s.RemoveAt(c.Request.Context(), *req.Kind, *req.Index)
	} else {
		v, err = s.RemoveNearest(c.Request.Context(), *req.Kind, core.Px(req.X, req.Y))
	}
	h.respond(c, v, err)
}

func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return idx, true
}

// Move drags a marker to a new position.
func (h *SessionHandler) Move(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	kind, err := core.ParseMarkerKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err)
		return
	}
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var pos core.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.Move(c.Request.Context(), kind, idx, core.Px(pos.X, pos.Y))
	h.respond(c, v, err)
}

// AssignWeapon sets a gun's weapon.
func (h *SessionHandler) AssignWeapon(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		WeaponID string `json:"weaponId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.AssignWeapon(c.Request.Context(), idx, req.WeaponID)
	h.respond(c, v, err)
}

// SetPairing points a gun at a target. A null target unpairs it.
func (h *SessionHandler) SetPairing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		Target *int `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	target := core.NoTarget
	if req.Target != nil {
		target = *req.Target
	}
	v, err := s.SetPairing(c.Request.Context(), idx, target)
	h.respond(c, v, err)
}

// SetWind changes the session's wind.
func (h *SessionHandler) SetWind(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var w core.WindState
	if err := c.ShouldBindJSON(&w); err != nil {
		badRequest(c, err)
		return
	}
	v, err := s.SetWind(c.Request.Context(), w)
	h.respond(c, v, err)
}

// Undo reverts the last edit.
func (h *SessionHandler) Undo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Undo(c.Request.Context())
	h.respond(c, v, err)
}

// Redo re-applies the last undone edit.
func (h *SessionHandler) Redo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Redo(c.Request.Context())
	h.respond(c, v, err)
}

// Save stores the session as a new plan.
func (h *SessionHandler) Save(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	rec, err := s.Save(c.Request.Context())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
