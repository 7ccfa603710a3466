package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// TestHandler serves stored tests and attempts.
type TestHandler struct {
	practiceService *service.PracticeService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(practiceService *service.PracticeService) *TestHandler {
	return &TestHandler{practiceService: practiceService}
}

// ListTests godoc
// GET /api/v1/tests
// Lists the test index in creation order, paginated.
func (h *TestHandler) ListTests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	tests, err := h.practiceService.ListTests(c.Request.Context())
	if err != nil {
		failWithError(c, err)
		return
	}

	total := len(tests)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests[start:end]}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// GetTest godoc
// GET /api/v1/tests/:id
func (h *TestHandler) GetTest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	test, err := h.practiceService.GetTest(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// GetAttempt godoc
// GET /api/v1/attempts/:id
func (h *TestHandler) GetAttempt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	attempt, err := h.practiceService.GetAttempt(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ExportAttempt godoc
// GET /api/v1/attempts/:id/export
// Downloads the {test, attempt} bundle as a JSON file.
func (h *TestHandler) ExportAttempt(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	name, data, err := h.practiceService.ExportAttempt(c.Request.Context(), id)
	if err != nil {
		failWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// parseID validates the :id path parameter. Record IDs are UUIDs.
func parseID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id, true
}
