package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/session"
)

// resolveError maps a service or session error onto an HTTP status and code.
func resolveError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, session.ErrPersistence):
		return http.StatusServiceUnavailable, response.ErrPersistenceFailed
	case errors.Is(err, session.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, session.ErrInvalidTimeLimit):
		return http.StatusBadRequest, response.ErrInvalidTimeLimit
	case errors.Is(err, session.ErrSessionActive):
		return http.StatusConflict, response.ErrSessionActive
	case errors.Is(err, session.ErrNoActiveSession):
		return http.StatusConflict, response.ErrNoActiveSession
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, session.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNoQuestionsDetected):
		return http.StatusUnprocessableEntity, response.ErrNoQuestionsDetected
	case errors.Is(err, service.ErrExtractionUnsupported):
		return http.StatusUnprocessableEntity, response.ErrExtractionUnsupported
	case errors.Is(err, service.ErrUnsupportedFileType):
		return http.StatusBadRequest, response.ErrUnsupportedFile
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, response.ErrFileTooLarge
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func failWithError(c *gin.Context, err error) {
	status, code := resolveError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	switch code {
	case response.ErrExtractionUnsupported:
		response.FailWithHint(c, status, code, service.PasteGuidance)
	case response.ErrNoQuestionsDetected, response.ErrNoQuestions:
		response.FailWithHint(c, status, code, service.NoQuestionsHint)
	default:
		response.Fail(c, status, code)
	}
}
