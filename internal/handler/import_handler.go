package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
)

// ImportHandler handles document upload and parsing.
type ImportHandler struct {
	importService *service.ImportService
	maxUpload     int64
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService *service.ImportService, maxUpload int64) *ImportHandler {
	return &ImportHandler{importService: importService, maxUpload: maxUpload}
}

// ParseText godoc
// POST /api/v1/imports/parse
// Parses pasted text into questions and reports what was found.
func (h *ImportHandler) ParseText(c *gin.Context) {
	var req model.ParseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	report, err := h.importService.Parse(req.RawText)
	if errors.Is(err, service.ErrNoQuestionsDetected) {
		response.FailWithData(c, http.StatusUnprocessableEntity, response.ErrNoQuestionsDetected, report, service.NoQuestionsHint)
		return
	}
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// UploadDocument godoc
// POST /api/v1/imports/upload
// Reads an uploaded document and returns its text for the paste box.
func (h *ImportHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+64*1024)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	text, err := h.importService.Acquire(file, header)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"raw_text": text})
}
