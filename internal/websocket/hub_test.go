package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestSession() *Session {
	return &Session{
		Send:        make(chan []byte, sendBuffer),
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// fakeRunner reports two stages and returns an estimate unless the body lacks a description.
func fakeRunner(ctx context.Context, body map[string]any, progress func(model.StageEvent)) (*model.EstimateResult, []string) {
	if _, ok := body["projectDescription"].(string); !ok {
		return nil, []string{"projectDescription is required and must be a string."}
	}
	progress(model.StageEvent{Type: MessageTypeStage, Stage: "generateTaskBreakdown", Attempts: 1})
	progress(model.StageEvent{Type: MessageTypeStage, Stage: "generateTimeline", Attempts: 2, Fallback: true, Reason: "boom"})
	return &model.EstimateResult{ID: "est-1", ProposalDraft: "draft"}, nil
}

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { hub.ServeWS(c, fakeRunner) })
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// For any number of sessions, the hub count follows register/unregister and
// a shut down hub refuses new sessions.
func TestHubSessionBookkeeping(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("connection count matches registered sessions", prop.ForAll(
		func(total int, removed int) bool {
			if removed > total {
				removed = total
			}

			hub := NewHub()
			sessions := make([]*Session, total)
			for i := range sessions {
				sessions[i] = newTestSession()
				if !hub.register(sessions[i]) {
					return false
				}
			}
			for _, s := range sessions[:removed] {
				hub.unregister(s)
			}
			// Unregistering twice is harmless.
			for _, s := range sessions[:removed] {
				hub.unregister(s)
			}

			if hub.GetConnectionCount() != total-removed {
				return false
			}

			hub.Shutdown()
			for _, s := range sessions[removed:] {
				if _, open := <-s.Send; open {
					return false
				}
			}
			return hub.IsClosed() && !hub.register(newTestSession())
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestSendMessageAfterCloseIsDropped(t *testing.T) {
	s := newTestSession()
	s.closeSend()
	s.closeSend()

	assert.NotPanics(t, func() {
		s.SendMessage(Message{Type: MessageTypeResult})
	})
}

func TestServeWSStreamsStagesThenResult(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startServer(t, hub))

	require.NoError(t, conn.WriteJSON(map[string]any{"projectDescription": "Build a portal"}))

	first := readJSON(t, conn)
	assert.Equal(t, "stage", first["type"])
	assert.Equal(t, "generateTaskBreakdown", first["stage"])
	assert.Equal(t, 1.0, first["attempts"])

	second := readJSON(t, conn)
	assert.Equal(t, "generateTimeline", second["stage"])
	assert.Equal(t, true, second["fallback"])
	assert.Equal(t, "boom", second["reason"])

	result := readJSON(t, conn)
	assert.Equal(t, "result", result["type"])
	data, ok := result["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "est-1", data["id"])

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)

	assert.Eventually(t, func() bool { return hub.GetConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServeWSValidationError(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startServer(t, hub))

	require.NoError(t, conn.WriteJSON(map[string]any{}))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "ValidationError", msg["error"])
	details, ok := msg["details"].([]any)
	require.True(t, ok)
	assert.Len(t, details, 1)
}

func TestServeWSInvalidJSON(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startServer(t, hub))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "BadRequest", msg["error"])
	assert.Equal(t, "Invalid JSON body", msg["message"])
}

func TestServeWSRefusedAfterShutdown(t *testing.T) {
	hub := NewHub()
	url := startServer(t, hub)
	hub.Shutdown()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
