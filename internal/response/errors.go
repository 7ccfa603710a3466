package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Import ────────────────────────────────────────────────────────
	ErrFileRequired          ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile       ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge          ErrCode = "FILE_TOO_LARGE"
	ErrExtractionUnsupported ErrCode = "EXTRACTION_UNSUPPORTED"
	ErrNoQuestionsDetected   ErrCode = "NO_QUESTIONS_DETECTED"

	// ─── Session ───────────────────────────────────────────────────────
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrInvalidTimeLimit ErrCode = "INVALID_TIME_LIMIT"
	ErrSessionActive    ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrNoActiveSession  ErrCode = "NO_ACTIVE_SESSION"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidOption    ErrCode = "INVALID_OPTION"
	ErrUnknownAction    ErrCode = "UNKNOWN_ACTION"

	// ─── Persistence ───────────────────────────────────────────────────
	ErrPersistenceFailed ErrCode = "PERSISTENCE_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A device token is required."
	case ErrTokenInvalid:
		return "The device token is invalid or expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Import ────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type. Upload a .txt or .pdf file."
	case ErrFileTooLarge:
		return "File size exceeds the limit."
	case ErrExtractionUnsupported:
		return "Automatic extraction can be unreliable. Please open the PDF, select the text, copy it, then paste it and parse."
	case ErrNoQuestionsDetected:
		return `No questions detected. Ensure text has numbered questions (e.g., "1. ...") and options like "A. ...".`

	// ─── Session ───────────────────────────────────────────────────────
	case ErrNoQuestions:
		return "Parse questions first."
	case ErrInvalidTimeLimit:
		return "The time limit must be a positive number of seconds."
	case ErrSessionActive:
		return "A test is already in progress. Submit it before starting another."
	case ErrNoActiveSession:
		return "There is no test in progress."
	case ErrUnknownQuestion:
		return "The question is not part of the current test."
	case ErrInvalidOption:
		return "The option is not one of the question's choices."
	case ErrUnknownAction:
		return "Unknown action."

	// ─── Persistence ───────────────────────────────────────────────────
	case ErrPersistenceFailed:
		return "Could not save your work. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
