package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type sample struct {
	QuestionID string `json:"question_id" binding:"required,notblank,max=8"`
	Index      *int   `json:"index" binding:"omitempty,min=0"`
}

func bindBody(t *testing.T, body string, optional bool) (sample, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst sample
	if optional {
		return dst, BindOptional(c, &dst)
	}
	return dst, Bind(c, &dst)
}

func TestBind(t *testing.T) {
	Setup()

	tests := []struct {
		name      string
		body      string
		wantField string
		wantText  string
	}{
		{"valid", `{"question_id":"q1"}`, "", ""},
		{"missing", `{}`, "question_id", "required"},
		{"blank", `{"question_id":"   "}`, "question_id", "must not be blank"},
		{"too long", `{"question_id":"q123456789"}`, "question_id", "8 characters"},
		{"negative index", `{"question_id":"q1","index":-1}`, "index", "0 or greater"},
		{"bad json", `{"question_id":`, "detail", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, fields := bindBody(t, tc.body, false)
			if tc.wantField == "" {
				if fields != nil {
					t.Fatalf("unexpected errors: %v", fields)
				}
				return
			}
			msg, ok := fields[tc.wantField]
			if !ok {
				t.Fatalf("no error for %s: %v", tc.wantField, fields)
			}
			if !strings.Contains(msg, tc.wantText) {
				t.Errorf("%s message = %q, want it to mention %q", tc.wantField, msg, tc.wantText)
			}
		})
	}
}

func TestBindOptional(t *testing.T) {
	Setup()

	if dst, fields := bindBody(t, "", true); fields != nil || dst.QuestionID != "" {
		t.Errorf("empty body: %+v %v", dst, fields)
	}
	if _, fields := bindBody(t, `{"question_id":""}`, true); fields["question_id"] == "" {
		t.Errorf("present body was not validated: %v", fields)
	}
}
