package model

import (
	"time"
)

// TestMode selects how the test is presented.
type TestMode string

const (
	TestModeMCQ    TestMode = "mcq"
	TestModeNormal TestMode = "normal"
)

// DefaultTestTitle is used when an import does not name its test.
const DefaultTestTitle = "Imported Test"

// Test is an immutable bundle of questions plus session settings.
type Test struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Mode         TestMode   `json:"mode"`
	TimeLimitSec int        `json:"time_limit_sec"`
	Questions    []Question `json:"questions"`
}

// TestSummary is one entry of the test index.
type TestSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseRequest is the payload for parsing pasted text.
type ParseRequest struct {
	RawText string `json:"raw_text" binding:"required"`
}

// ParseReport describes the outcome of parsing pasted text.
type ParseReport struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	MCQ       int        `json:"mcq"`
	Written   int        `json:"written"`
}

// NewParseReport counts question types.
func NewParseReport(questions []Question) ParseReport {
	if questions == nil {
		questions = []Question{}
	}
	r := ParseReport{Questions: questions, Total: len(questions)}
	for _, q := range questions {
		if q.Type == QuestionTypeMCQ {
			r.MCQ++
		} else {
			r.Written++
		}
	}
	return r
}

// CreateTestRequest is the payload for starting a session.
// Either Questions or RawText must be provided; Questions wins when both are.
type CreateTestRequest struct {
	Title        string     `json:"title" binding:"omitempty,max=255"`
	Mode         string     `json:"mode" binding:"omitempty,oneof=mcq normal"`
	TimeLimitSec int        `json:"time_limit_sec" binding:"omitempty,min=1,max=86400"`
	RawText      string     `json:"raw_text" binding:"required_without=Questions"`
	Questions    []Question `json:"questions" binding:"required_without=RawText"`
}
