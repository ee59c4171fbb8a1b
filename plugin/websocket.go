package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockpad/block"
)

// PushFrame is the backend-initiated message on the socket: the current
// authoritative block array of a page. The receiving side feeds it to the
// merge reconciler, never to a wholesale reload.
type PushFrame struct {
	PageID string         `json:"page_id"`
	Blocks []*block.Block `json:"blocks"`
}

// SocketConfig carries connection parameters for the WebSocket transport.
type SocketConfig struct {
	// Endpoint is the ws:// or wss:// URL of the plugin's command socket.
	Endpoint string
	// AuthToken is sent as a bearer token during the handshake.
	AuthToken string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

func (c *SocketConfig) withDefaults() SocketConfig {
	out := *c
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = 10 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 10 * time.Second
	}
	if out.PingInterval <= 0 {
		out.PingInterval = 30 * time.Second
	}
	return out
}

// Socket is the Backend implementation talking to a live plugin over one
// WebSocket connection. Command batches go out as single JSON frames; pushes
// arrive on the read pump. Page loads go over plain HTTP against the same
// host, the socket stays a one-way command stream plus pushes.
type Socket struct {
	log  *zap.Logger
	cfg  SocketConfig
	conn *websocket.Conn
	http *http.Client
	base *url.URL

	writeMu sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	push    PushHandler

	closeOnce sync.Once
	closeErr  error
}

// DialSocket connects to the plugin. The push handler may be nil when the
// caller does not care about backend-initiated blocks.
func DialSocket(ctx context.Context, cfg SocketConfig, push PushHandler, log *zap.Logger) (*Socket, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("malformed plugin endpoint '%s': %w", cfg.Endpoint, err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	hdr := http.Header{}
	if cfg.AuthToken != "" {
		hdr.Set("Authorization", "Bearer "+cfg.AuthToken)
	}
	conn, resp, err := dialer.DialContext(ctx, cfg.Endpoint, hdr)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("unable to connect to plugin (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("unable to connect to plugin: %w", err)
	}

	s := &Socket{
		log:  log.Named("socket"),
		cfg:  cfg,
		conn: conn,
		http: &http.Client{Timeout: cfg.HandshakeTimeout},
		base: httpBase(u),
		done: make(chan struct{}),
		push: push,
	}

	s.wg.Add(2)
	go s.readPump()
	go s.pingLoop()

	s.log.Debug("Connected to plugin", zap.String("endpoint", cfg.Endpoint))
	return s, nil
}

// httpBase converts the socket URL to the http(s) root of the same host.
func httpBase(u *url.URL) *url.URL {
	base := *u
	base.Path, base.RawQuery = "", ""
	switch base.Scheme {
	case "wss":
		base.Scheme = "https"
	default:
		base.Scheme = "http"
	}
	return &base
}

// Send delivers one drained batch as a single frame.
func (s *Socket) Send(ctx context.Context, cmds []Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return fmt.Errorf("plugin connection is closed")
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteJSON(cmds); err != nil {
		return fmt.Errorf("unable to send command batch: %w", err)
	}
	return nil
}

// LoadPage fetches the authoritative block array over HTTP.
func (s *Socket) LoadPage(ctx context.Context, pageID string) ([]*block.Block, error) {
	target := s.base.JoinPath("pages", pageID).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to load page '%s': %w", pageID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to load page '%s': %s", pageID, resp.Status)
	}
	var frame PushFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return nil, fmt.Errorf("malformed page payload for '%s': %w", pageID, err)
	}
	return block.Sanitize(frame.Blocks, s.log), nil
}

// Close shuts the connection down and waits for both pumps to drain.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		err := s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		if err != nil && err != websocket.ErrCloseSent {
			s.closeErr = multierr.Append(s.closeErr, err)
		}
		if err := s.conn.Close(); err != nil {
			s.closeErr = multierr.Append(s.closeErr, err)
		}
		s.wg.Wait()
	})
	return s.closeErr
}

const pongWait = 90 * time.Second

func (s *Socket) readPump() {
	defer s.wg.Done()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("Plugin connection lost", zap.Error(err))
			}
			return
		}
		var frame PushFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.log.Warn("Malformed push frame, ignoring", zap.Error(err))
			continue
		}
		if s.push != nil {
			s.push(frame.PageID, block.Sanitize(frame.Blocks, s.log))
		}
	}
}

func (s *Socket) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.log.Debug("Ping failed", zap.Error(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
