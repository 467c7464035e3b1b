// Package feed broadcasts freshly recorded activities to websocket subscribers.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/observability"
)

// Config configures websocket behavior.
type Config struct {
	// Buffer is the per-subscriber queue length; a full queue drops the subscriber.
	Buffer int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a subscriber may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default websocket configuration.
func DefaultConfig() Config {
	return Config{
		Buffer:       64,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Encoder renders an activity as one websocket text message.
type Encoder func(a *domain.Activity) ([]byte, error)

// Hub fans activities out to subscribers filtered by vault.
type Hub struct {
	config   Config
	encode   Encoder
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one subscriber's queue.
type Subscription struct {
	vault string
	send  chan []byte
	once  sync.Once

	// set once before send is closed
	closeCode int
	closeText string
}

// C returns the message channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan []byte { return s.send }

func (s *Subscription) close(code int, text string) {
	s.once.Do(func() {
		s.closeCode, s.closeText = code, text
		close(s.send)
	})
}

// NewHub creates a new Hub.
func NewHub(cfg Config, encode Encoder, logger *zap.Logger) *Hub {
	def := DefaultConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		config: cfg,
		encode: encode,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscriber for one vault.
func (h *Hub) Subscribe(vault string) *Subscription {
	s := &Subscription{vault: domain.NormalizeAddress(vault), send: make(chan []byte, h.config.Buffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	observability.SetFeedSubscribers(n)
	return s
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	s.close(websocket.CloseNormalClosure, "")
	observability.SetFeedSubscribers(n)
}

// Close ends every subscription; connected clients receive a going-away
// close frame.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}
	observability.SetFeedSubscribers(0)
}

// Publish delivers an activity to every subscriber of its vault without
// blocking. Subscribers whose queue is full are dropped.
func (h *Hub) Publish(a *domain.Activity) {
	msg, err := h.encode(a)
	if err != nil {
		h.logger.Error("encode feed message", zap.String("activity", a.ID), zap.Error(err))
		return
	}

	h.mu.Lock()
	var dropped []*Subscription
	for s := range h.subs {
		if s.vault != a.VaultAddress {
			continue
		}
		select {
		case s.send <- msg:
		default:
			dropped = append(dropped, s)
			delete(h.subs, s)
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	for _, s := range dropped {
		s.close(websocket.ClosePolicyViolation, "subscriber too slow")
		h.logger.Warn("dropping slow feed subscriber", zap.String("vault", s.vault))
	}
	if len(dropped) > 0 {
		observability.SetFeedSubscribers(n)
	}
}

// ServeWS upgrades the request and streams the vault's activities until
// the client goes away or is dropped.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, vault string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.Subscribe(vault)
	done := make(chan struct{})

	go h.readLoop(conn, done)
	h.writeLoop(conn, sub, done)

	h.Unsubscribe(sub)
	_ = conn.Close()
}

// readLoop discards client messages and keeps the read deadline fresh.
func (h *Hub) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(sub.closeCode, sub.closeText))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
