package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Tipos de mensagem enviados ao cliente
const (
	MessageTypeStage  = "stage"
	MessageTypeResult = "result"
	MessageTypeError  = "error"
)

// EstimateRunner valida o corpo recebido e executa o pipeline reportando cada estágio.
// Quando a entrada é inválida retorna nil e os detalhes de validação.
type EstimateRunner func(ctx context.Context, body map[string]any, progress func(model.StageEvent)) (*model.EstimateResult, []string)

// Hub mantém as sessões de stream abertas
type Hub struct {
	// Sessões registradas
	sessions map[*Session]struct{}

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	closed bool

	// Logger
	logger *zerolog.Logger
}

// Message é uma mensagem de resultado ou erro do stream
type Message struct {
	Type    string   `json:"type"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Tamanho máximo da entrada enviada pelo cliente
	maxMessageSize = 64 * 1024

	// Mensagens de saída enfileiradas por sessão
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		logger:   logger.Global(),
	}
}

func (h *Hub) register(s *Session) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}

	h.logger.Debug().
		Str("session_id", s.ID).
		Int("sessions", len(h.sessions)).
		Msg("Stream session registered")
	return true
}

func (h *Hub) unregister(s *Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		h.logger.Debug().
			Str("session_id", s.ID).
			Int("sessions", len(h.sessions)).
			Msg("Stream session unregistered")
	}
}

// GetConnectionCount retorna o número de sessões abertas
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// IsClosed indica se o hub já foi encerrado
func (h *Hub) IsClosed() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.closed
}

// Shutdown recusa novas sessões e fecha as abertas
func (h *Hub) Shutdown() {
	h.mutex.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mutex.Unlock()

	for _, s := range sessions {
		s.closeSend()
	}

	h.logger.Info().
		Int("sessions", len(sessions)).
		Msg("Stream hub shut down")
}
