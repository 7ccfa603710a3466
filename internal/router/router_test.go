package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/event"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/queue"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/session"
	"github.com/stemsi/exstem-practice/internal/storage"
	"github.com/stemsi/exstem-practice/internal/store"
	"github.com/stemsi/exstem-practice/internal/validator"
)

const paper = "1. What is 2+2?\nA. 3\nB. 4\n2. Name a prime.\nA. 4\nB. 7\n3. Explain gravity."

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
		Hint    string            `json:"hint"`
	} `json:"error"`
	Pagination *struct {
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:             gin.TestMode,
		JWTSecret:           "router-test",
		JWTExpiry:           time.Hour,
		DefaultMode:         "mcq",
		DefaultTimeLimitSec: 300,
		MaxUploadBytes:      4096,
	}
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	authService := service.NewAuthService(cfg)
	practice := service.NewPracticeService(
		cfg,
		repository.NewPracticeRepository(store.NewMemory()),
		queue.NewMemory(),
		blobs,
		event.NewRecorder(),
		session.Options{},
		zerolog.Nop(),
	)
	t.Cleanup(practice.Close)

	r, limiter := SetupRouter(authService, &Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Import:  handler.NewImportHandler(service.NewImportService(cfg), cfg.MaxUploadBytes),
		Test:    handler.NewTestHandler(practice),
		Session: handler.NewSessionHandler(practice),
		WS:      handler.NewWSHandler(practice, zerolog.Nop(), nil),
		System:  handler.NewSystemHandler(practice),
	}, cfg)
	t.Cleanup(limiter.Stop)

	a := &api{t: t, router: r}
	var tok service.DeviceToken
	a.do(http.MethodPost, "/api/v1/auth/device", nil, http.StatusOK, &tok)
	a.token = tok.Token
	return a
}

func (a *api) do(method, path string, body interface{}, wantStatus int, out interface{}) *envelope {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	return a.serve(req, wantStatus, out)
}

func (a *api) serve(req *http.Request, wantStatus int, out interface{}) *envelope {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if w.Code != wantStatus {
		a.t.Fatalf("%s %s: status %d, want %d: %s", req.Method, req.URL.Path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode envelope: %v", req.Method, req.URL.Path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("decode data: %v", err)
		}
	}
	return &env
}

type sessionView struct {
	Session session.Snapshot `json:"session"`
}

func TestPracticeFlow(t *testing.T) {
	a := newAPI(t)

	var report struct {
		Total, MCQ, Written int
	}
	a.do(http.MethodPost, "/api/v1/imports/parse", gin.H{"raw_text": paper}, http.StatusOK, &report)
	if report.Total != 3 || report.MCQ != 2 || report.Written != 1 {
		t.Fatalf("report = %+v", report)
	}

	var created struct {
		Test struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"test"`
		Session session.Snapshot `json:"session"`
	}
	a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": paper, "time_limit_sec": 120}, http.StatusCreated, &created)
	if created.Test.Title != "Imported Test" || created.Session.Remaining != 120 || created.Session.Status != session.StatusRunning {
		t.Fatalf("created = %+v", created)
	}

	env := a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": paper}, http.StatusConflict, nil)
	if env.Error.Code != "SESSION_ALREADY_ACTIVE" {
		t.Errorf("second create code = %s", env.Error.Code)
	}

	var view sessionView
	a.do(http.MethodPost, "/api/v1/session/select", gin.H{"question_id": "q1", "option": "B"}, http.StatusOK, &view)
	if view.Session.Responses["q1"].Selected != "B" {
		t.Errorf("selected = %+v", view.Session.Responses["q1"])
	}
	env = a.do(http.MethodPost, "/api/v1/session/select", gin.H{"question_id": "q1", "option": "Z"}, http.StatusBadRequest, nil)
	if env.Error.Code != "INVALID_OPTION" {
		t.Errorf("bad option code = %s", env.Error.Code)
	}

	a.do(http.MethodPost, "/api/v1/session/next", nil, http.StatusOK, &view)
	if view.Session.CurrentIndex != 1 {
		t.Errorf("after next index = %d", view.Session.CurrentIndex)
	}
	a.do(http.MethodPost, "/api/v1/session/goto", gin.H{"index": 9}, http.StatusOK, &view)
	if view.Session.CurrentIndex != 1 {
		t.Errorf("out of range goto moved to %d", view.Session.CurrentIndex)
	}
	a.do(http.MethodPost, "/api/v1/session/lifecycle", gin.H{"state": "background"}, http.StatusOK, &view)
	if view.Session.Status != session.StatusPaused {
		t.Errorf("background status = %s", view.Session.Status)
	}
	a.do(http.MethodPost, "/api/v1/session/lifecycle", gin.H{"state": "active"}, http.StatusOK, &view)
	a.do(http.MethodPost, "/api/v1/session/prev", nil, http.StatusOK, &view)
	if view.Session.CurrentIndex != 0 {
		t.Errorf("after prev index = %d", view.Session.CurrentIndex)
	}

	var submitted struct {
		Attempt struct {
			ID        string                     `json:"id"`
			TestID    string                     `json:"test_id"`
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"attempt"`
	}
	a.do(http.MethodPost, "/api/v1/session/submit", nil, http.StatusOK, &submitted)
	if submitted.Attempt.TestID != created.Test.ID || len(submitted.Attempt.Responses) != 3 {
		t.Fatalf("attempt = %+v", submitted.Attempt)
	}
	env = a.do(http.MethodPost, "/api/v1/session/submit", nil, http.StatusConflict, nil)
	if env.Error.Code != "NO_ACTIVE_SESSION" {
		t.Errorf("second submit code = %s", env.Error.Code)
	}

	var list struct {
		Tests []struct{ ID string } `json:"tests"`
	}
	env = a.do(http.MethodGet, "/api/v1/tests", nil, http.StatusOK, &list)
	if len(list.Tests) != 1 || env.Pagination.TotalItems != 1 {
		t.Errorf("tests = %+v", list)
	}
	a.do(http.MethodGet, "/api/v1/tests/"+created.Test.ID, nil, http.StatusOK, nil)
	a.do(http.MethodGet, "/api/v1/attempts/"+submitted.Attempt.ID, nil, http.StatusOK, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts/"+submitted.Attempt.ID+"/export", nil)
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attempt_"+submitted.Attempt.ID+".json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var bundle struct {
		Test    struct{ ID string } `json:"test"`
		Attempt struct{ ID string } `json:"attempt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bundle); err != nil || bundle.Test.ID != created.Test.ID {
		t.Errorf("bundle = %+v, %v", bundle, err)
	}
}

func TestParseErrors(t *testing.T) {
	a := newAPI(t)

	var report struct {
		Questions []json.RawMessage `json:"questions"`
		Total     int               `json:"total"`
	}
	env := a.do(http.MethodPost, "/api/v1/imports/parse", gin.H{"raw_text": "no numbered lines"}, http.StatusUnprocessableEntity, &report)
	if env.Error.Code != "NO_QUESTIONS_DETECTED" || env.Error.Hint == "" || report.Questions == nil || report.Total != 0 {
		t.Errorf("env = %+v report = %+v", env.Error, report)
	}

	env = a.do(http.MethodPost, "/api/v1/imports/parse", gin.H{}, http.StatusBadRequest, nil)
	if env.Error.Code != "VALIDATION_ERROR" || env.Error.Fields["raw_text"] == "" {
		t.Errorf("validation error = %+v", env.Error)
	}

	env = a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": "nothing"}, http.StatusUnprocessableEntity, nil)
	if env.Error.Code != "NO_QUESTIONS" {
		t.Errorf("create code = %s", env.Error.Code)
	}
	env = a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": paper, "mode": "essay"}, http.StatusBadRequest, nil)
	if env.Error.Fields["mode"] == "" {
		t.Errorf("mode not validated: %+v", env.Error)
	}
}

func TestUpload(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name     string
		filename string
		ctype    string
		body     string
		status   int
		code     string
	}{
		{"text", "paper.txt", "text/plain", paper, http.StatusOK, ""},
		{"pdf", "paper.pdf", "application/pdf", "%PDF-1.7", http.StatusUnprocessableEntity, "EXTRACTION_UNSUPPORTED"},
		{"image", "scan.jpg", "image/jpeg", "x", http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			h := make(map[string][]string)
			h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + tc.filename + `"`}
			h["Content-Type"] = []string{tc.ctype}
			part, _ := mw.CreatePart(h)
			part.Write([]byte(tc.body))
			mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/upload", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req.Header.Set("Authorization", "Bearer "+a.token)

			var out struct {
				RawText string `json:"raw_text"`
			}
			env := a.serve(req, tc.status, &out)
			if tc.code != "" {
				if env.Error == nil || env.Error.Code != tc.code {
					t.Fatalf("error = %+v, want %s", env.Error, tc.code)
				}
				if tc.code == "EXTRACTION_UNSUPPORTED" && env.Error.Hint != service.PasteGuidance {
					t.Errorf("hint = %q", env.Error.Hint)
				}
				return
			}
			if out.RawText != paper {
				t.Errorf("raw_text = %q", out.RawText)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	a.token = ""

	env := a.do(http.MethodGet, "/api/v1/session", nil, http.StatusUnauthorized, nil)
	if env.Error.Code != "TOKEN_REQUIRED" {
		t.Errorf("code = %s", env.Error.Code)
	}
	a.token = "not-a-jwt"
	env = a.do(http.MethodGet, "/api/v1/session", nil, http.StatusUnauthorized, nil)
	if env.Error.Code != "TOKEN_INVALID" {
		t.Errorf("code = %s", env.Error.Code)
	}
}

func TestRecordLookups(t *testing.T) {
	a := newAPI(t)

	env := a.do(http.MethodGet, "/api/v1/tests/not-a-uuid", nil, http.StatusBadRequest, nil)
	if env.Error.Code != "INVALID_ID" {
		t.Errorf("code = %s", env.Error.Code)
	}
	env = a.do(http.MethodGet, "/api/v1/attempts/6f1c1f9e-3b7c-4c59-9a40-3d8f1f0f2a11", nil, http.StatusNotFound, nil)
	if env.Error.Code != "NOT_FOUND" || env.Metadata.RequestID == "" {
		t.Errorf("env = %+v", env)
	}
}

func TestSessionStream(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": paper}, http.StatusCreated, nil)

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/session/stream?token=" + a.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// readEvent skips countdown ticks.
	readEvent := func() map[string]json.RawMessage {
		t.Helper()
		for {
			var msg map[string]json.RawMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(msg["event"]) != `"tick"` {
				return msg
			}
		}
	}

	if ev := readEvent(); string(ev["event"]) != `"state"` {
		t.Fatalf("first event = %s", ev["event"])
	}

	conn.WriteJSON(gin.H{"action": "ping"})
	if ev := readEvent(); string(ev["event"]) != `"pong"` {
		t.Errorf("ping answered with %s", ev["event"])
	}

	conn.WriteJSON(gin.H{"action": "lifecycle", "state": "background"})
	ev := readEvent()
	var snap session.Snapshot
	_ = json.Unmarshal(ev["data"], &snap)
	if snap.Status != session.StatusPaused {
		t.Errorf("after background status = %s", snap.Status)
	}

	conn.WriteJSON(gin.H{"action": "fly"})
	if ev := readEvent(); string(ev["code"]) != `"UNKNOWN_ACTION"` {
		t.Errorf("unknown action answered with %s", ev["code"])
	}

	conn.WriteJSON(gin.H{"action": "submit"})
	if ev := readEvent(); string(ev["event"]) != `"submitted"` {
		t.Errorf("submit answered with %s", ev["event"])
	}
}

func TestStreamDisconnectPauses(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodPost, "/api/v1/session", gin.H{"raw_text": paper}, http.StatusCreated, nil)

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/session/stream?token=" + a.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var first map[string]json.RawMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var view sessionView
		a.do(http.MethodGet, "/api/v1/session", nil, http.StatusOK, &view)
		if view.Session.Status == session.StatusPaused {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("session still running after the stream dropped")
}
