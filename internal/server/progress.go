package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/service/pipeline"
)

// ProgressHub fans translation progress out to the websocket clients of each account.
type ProgressHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	logger *zap.Logger
}

type subscription struct {
	events chan pipeline.ProgressEvent
	once   sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.events) })
}

func NewProgressHub(buffer int, logger *zap.Logger) *ProgressHub {
	if buffer <= 0 {
		buffer = constants.ServerConfig.ProgressBuffer
	}
	return &ProgressHub{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *ProgressHub) Publish(apiKey string, event pipeline.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[apiKey] {
		select {
		case sub.events <- event:
		default:
			h.logger.Debug("Progress subscriber lagging, event dropped",
				zap.String("cache_key", event.CacheKey),
				zap.String("stage", string(event.Stage)),
			)
		}
	}
}

// Subscribe registers a listener for apiKey; the returned func unregisters it.
func (h *ProgressHub) Subscribe(apiKey string) (<-chan pipeline.ProgressEvent, func()) {
	sub := &subscription{events: make(chan pipeline.ProgressEvent, h.buffer)}

	h.mu.Lock()
	if h.subs[apiKey] == nil {
		h.subs[apiKey] = make(map[*subscription]struct{})
	}
	h.subs[apiKey][sub] = struct{}{}
	h.mu.Unlock()

	return sub.events, func() {
		h.mu.Lock()
		if subs, ok := h.subs[apiKey]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.subs, apiKey)
			}
		}
		h.mu.Unlock()
		sub.close()
	}
}

func (h *ProgressHub) Subscribers(apiKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[apiKey])
}

// CloseAll ends every subscription; used on shutdown.
func (h *ProgressHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, subs := range h.subs {
		for sub := range subs {
			sub.close()
		}
		delete(h.subs, key)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const writeWait = 10 * time.Second

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	apiKey := r.PathValue("apiKey")
	account, err := s.accounts.FindByAPIKey(r.Context(), apiKey)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe(apiKey)
	defer unsubscribe()

	logger := s.logger.With(zap.Int64("account_id", account.ID))
	logger.Info("Progress stream opened")

	pingInterval := constants.ServerConfig.PingInterval
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	// Clients never send data; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			logger.Info("Progress stream closed by client")
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("Progress write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
