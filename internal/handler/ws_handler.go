package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/session"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a device's session: lifecycle signals and session
// actions in, state changes and countdown ticks out.
type WSHandler struct {
	practiceService *service.PracticeService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(practiceService *service.PracticeService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		practiceService: practiceService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/stream?token=...
// A dropped connection counts as the app leaving the foreground.
func (h *WSHandler) SessionStream(c *gin.Context) {
	deviceID := middleware.DeviceID(c)
	if deviceID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("device_id", deviceID).Logger()
	wsLog.Info().Msg("Device connected")

	engine := h.practiceService.Session(deviceID)
	notices, unsubscribe := engine.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.forward(conn, notices)
	}()

	// Initial view so the client can render without waiting for a change.
	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Data: engine.Snapshot()})

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		h.handleAction(conn, wsLog, deviceID, &msg)
	}

	unsubscribe()
	<-done
	if engine.Snapshot().Status == session.StatusIdle {
		wsLog.Info().Msg("Device disconnected")
		return
	}
	h.practiceService.SetLifecycle(deviceID, model.LifecycleBackground)
	wsLog.Info().Msg("Device disconnected, session paused")
}

// forward relays engine notices until the subscription closes.
func (h *WSHandler) forward(conn *ws.Conn, notices <-chan session.Notice) {
	for n := range notices {
		var payload interface{}
		switch n.Kind {
		case session.NoticeTick:
			payload = ws.TickResponse{Event: ws.EventTick, Remaining: n.Snapshot.Remaining}
		case session.NoticeSubmitted:
			payload = ws.SubmittedResponse{Event: ws.EventSubmitted, Attempt: n.Attempt}
		default:
			payload = ws.StateResponse{Event: ws.EventState, Data: n.Snapshot}
		}
		if err := ws.WriteTyped(conn, payload); err != nil {
			h.log.Debug().Err(err).Msg("Notice write failed")
		}
	}
}

func (h *WSHandler) handleAction(conn *ws.Conn, wsLog zerolog.Logger, deviceID string, msg *ws.RequestPayload) {
	switch msg.Action {
	case ws.ActionPing:
		ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionLifecycle:
		state := model.LifecycleState(msg.State)
		switch state {
		case model.LifecycleActive, model.LifecycleInactive, model.LifecycleBackground:
			h.practiceService.SetLifecycle(deviceID, state)
		default:
			writeWSError(conn, response.ErrValidation)
		}

	case ws.ActionGoto:
		if msg.Index == nil {
			writeWSError(conn, response.ErrValidation)
			return
		}
		h.practiceService.Goto(deviceID, *msg.Index)

	case ws.ActionNext:
		h.practiceService.Next(deviceID)

	case ws.ActionPrev:
		h.practiceService.Prev(deviceID)

	case ws.ActionSelect:
		if _, err := h.practiceService.SelectOption(deviceID, msg.QuestionID, msg.Option); err != nil {
			_, code := resolveError(err)
			writeWSError(conn, code)
		}

	case ws.ActionSubmit:
		// The submitted event reaches the client through the subscription.
		if _, err := h.practiceService.Submit(context.Background(), deviceID); err != nil {
			_, code := resolveError(err)
			wsLog.Error().Err(err).Msg("Submit failed")
			writeWSError(conn, code)
		}

	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		writeWSError(conn, response.ErrUnknownAction)
	}
}

func writeWSError(conn *ws.Conn, code response.ErrCode) {
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
