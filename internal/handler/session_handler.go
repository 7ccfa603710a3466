package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// SessionHandler drives the device's practice session over REST.
type SessionHandler struct {
	practiceService *service.PracticeService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(practiceService *service.PracticeService) *SessionHandler {
	return &SessionHandler{practiceService: practiceService}
}

// CreateSession godoc
// POST /api/v1/session
// Creates a test from questions or raw text and starts timing it.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, snap, err := h.practiceService.CreateTest(c.Request.Context(), middleware.DeviceID(c), &req)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test, "session": snap})
}

// GetSession godoc
// GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"session": h.practiceService.Snapshot(middleware.DeviceID(c))})
}

// Goto godoc
// POST /api/v1/session/goto
// Out of range indexes leave the session unchanged.
func (h *SessionHandler) Goto(c *gin.Context) {
	var req model.GotoRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap := h.practiceService.Goto(middleware.DeviceID(c), *req.Index)
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Next godoc
// POST /api/v1/session/next
func (h *SessionHandler) Next(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"session": h.practiceService.Next(middleware.DeviceID(c))})
}

// Prev godoc
// POST /api/v1/session/prev
func (h *SessionHandler) Prev(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"session": h.practiceService.Prev(middleware.DeviceID(c))})
}

// SelectOption godoc
// POST /api/v1/session/select
func (h *SessionHandler) SelectOption(c *gin.Context) {
	var req model.SelectOptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.practiceService.SelectOption(middleware.DeviceID(c), req.QuestionID, req.Option)
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// SetLifecycle godoc
// POST /api/v1/session/lifecycle
// Reports the app moving in or out of the foreground.
func (h *SessionHandler) SetLifecycle(c *gin.Context) {
	var req model.LifecycleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap := h.practiceService.SetLifecycle(middleware.DeviceID(c), model.LifecycleState(req.State))
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// Submit godoc
// POST /api/v1/session/submit
// Finalizes the attempt. On PERSISTENCE_FAILED the session stays open.
func (h *SessionHandler) Submit(c *gin.Context) {
	attempt, err := h.practiceService.Submit(c.Request.Context(), middleware.DeviceID(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
