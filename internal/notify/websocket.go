package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendChSize = 1024
	writeWait  = 10 * time.Second
)

// Pusher delivers notifications over a WebSocket connection with a single
// write goroutine. Messages are dropped, not buffered forever, when the
// peer cannot keep up.
type Pusher struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	closed bool

	wsURL  string
	secret string

	logger zerolog.Logger
}

// NewPusher creates a Pusher; call Dial before use.
func NewPusher(rawURL, secret string, log zerolog.Logger) *Pusher {
	return &Pusher{
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		wsURL:  rawURL,
		secret: secret,
		logger: log,
	}
}

// Dial connects to the WebSocket server and starts the write loop.
func (p *Pusher) Dial() error {
	u, err := url.Parse(p.wsURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if p.secret != "" {
		q := u.Query()
		q.Set("secret", p.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	go p.writeLoop()
	return nil
}

// Notify implements Notifier. Non-blocking: if the send buffer is full the
// message is dropped and an error returned.
func (p *Pusher) Notify(msg Message) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("pusher is closed")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}

	select {
	case p.sendCh <- payload:
		return nil
	default:
		return fmt.Errorf("notification buffer full, dropping message")
	}
}

// Close shuts down the write loop and the connection.
func (p *Pusher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Pusher) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case payload := <-p.sendCh:
			p.mu.Lock()
			conn := p.conn
			p.mu.Unlock()
			if conn == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(ws.TextMessage, payload); err != nil {
				p.logger.Error().Err(err).Msg("WebSocket write failed")
				return
			}
		}
	}
}
