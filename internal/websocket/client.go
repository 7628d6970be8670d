package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Session é uma conexão de stream que acompanha uma única estimativa
type Session struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	ID          string
	ConnectedAt time.Time

	hub    *Hub
	logger zerolog.Logger

	sendMu     sync.Mutex
	sendClosed bool

	// Fechado quando o writePump termina
	done chan struct{}
}

// ServeWS faz o upgrade da conexão, lê uma entrada, envia um evento por estágio e o resultado final
func (h *Hub) ServeWS(c *gin.Context, run EstimateRunner) {
	log := logger.FromGin(c)

	if h.IsClosed() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "Unavailable",
			Message: "Server is shutting down.",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	session := &Session{
		conn:        conn,
		Send:        make(chan []byte, sendBuffer),
		ID:          uuid.New().String()[:8],
		ConnectedAt: time.Now(),
		hub:         h,
		done:        make(chan struct{}),
	}
	session.logger = log.With().Str("session_id", session.ID).Logger()

	if !h.register(session) {
		conn.Close()
		return
	}
	metrics.StreamOpened()
	defer metrics.StreamClosed()
	defer h.unregister(session)

	go session.writePump()

	session.serve(c.Request.Context(), run)
	session.closeSend()
	<-session.done

	session.logger.Info().
		Dur("duration", time.Since(session.ConnectedAt)).
		Msg("Stream session finished")
}

// serve lê a mensagem de entrada e executa o pipeline
func (s *Session) serve(ctx context.Context, run EstimateRunner) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			s.logger.Warn().
				Err(err).
				Msg("WebSocket connection closed before input")
		}
		return
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		s.SendMessage(Message{
			Type:    MessageTypeError,
			Error:   "BadRequest",
			Message: "Invalid JSON body",
		})
		return
	}

	result, details := run(ctx, body, func(event model.StageEvent) {
		s.SendMessage(event)
	})
	if len(details) > 0 {
		s.SendMessage(Message{
			Type:    MessageTypeError,
			Error:   "ValidationError",
			Message: "Missing or invalid estimator input.",
			Details: details,
		})
		return
	}

	s.SendMessage(Message{Type: MessageTypeResult, Data: result})
}

// writePump envia as mensagens enfileiradas; só ele escreve na conexão
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case message, ok := <-s.Send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn().
					Err(err).
					Msg("Failed to write stream message")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage enfileira uma mensagem JSON; mensagens após o fechamento são descartadas
func (s *Session) SendMessage(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Failed to marshal message for client")
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}

	select {
	case s.Send <- data:
	case <-s.done:
		s.logger.Debug().Msg("Writer stopped, dropping stream message")
	}
}

func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.Send)
	}
}
