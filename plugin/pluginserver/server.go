package pluginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/plugin"
)

// Server exposes the plugin side of the wire: an HTTP endpoint serving
// authoritative page content and a WebSocket accepting drained command
// batches. Commands are applied to an in-memory working copy and persisted
// on every save_page.
type Server struct {
	log      *zap.Logger
	store    *PageStore
	token    string
	upgrader websocket.Upgrader

	mu    sync.Mutex
	live  map[string][]*block.Block
	conns map[*websocket.Conn]struct{}
}

// NewServer creates a server over an opened page store. An empty token
// disables authentication - fine for the loopback development host.
func NewServer(store *PageStore, token string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:   log.Named("pluginserver"),
		store: store,
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// command socket is local development plumbing, not a public surface
			CheckOrigin: func(*http.Request) bool { return true },
		},
		live:  make(map[string][]*block.Block),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pages/{page}", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleSocket)
	return r
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Plugin host listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if respErr := <-errCh; respErr != nil && !errors.Is(respErr, http.ErrServerClosed) {
			err = multierr.Append(err, respErr)
		}
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	pageID := mux.Vars(r)["page"]
	blocks, err := s.pageCopy(pageID)
	if err != nil {
		s.log.Error("Unable to load page", zap.String("page", pageID), zap.Error(err))
		http.Error(w, "unable to load page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(plugin.PushFrame{PageID: pageID, Blocks: blocks}); err != nil {
		s.log.Debug("Unable to write page response", zap.Error(err))
	}
}

// pageCopy returns a deep copy of the live page, faulting it in from the
// store on first touch.
func (s *Server) pageCopy(pageID string) ([]*block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[pageID]; !ok {
		blocks, err := s.store.LoadPage(pageID)
		if err != nil {
			return nil, err
		}
		s.live[pageID] = blocks
	}
	return block.CloneBlocks(s.live[pageID]), nil
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Unable to upgrade connection", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("Editor connected", zap.String("remote", conn.RemoteAddr().String()))
	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Editor connection lost", zap.Error(err))
			}
			return
		}
		var cmds []plugin.Command
		if err := json.Unmarshal(data, &cmds); err != nil {
			s.log.Warn("Malformed command batch, ignoring", zap.Error(err))
			continue
		}
		if err := s.applyBatch(cmds, conn); err != nil {
			s.log.Error("Unable to apply command batch", zap.Error(err))
		}
	}
}

// applyBatch replays commands onto the live copies and persists every page
// that saw a save_page. Other connected editors get a push with the result.
func (s *Server) applyBatch(cmds []plugin.Command, from *websocket.Conn) error {
	s.mu.Lock()

	var err error
	touched := make(map[string]struct{})
	for _, cmd := range cmds {
		pageID := pageIDOf(cmd)
		if pageID == "" {
			continue
		}
		if _, ok := s.live[pageID]; !ok {
			blocks, ferr := s.store.LoadPage(pageID)
			if ferr != nil {
				err = multierr.Append(err, ferr)
				continue
			}
			s.live[pageID] = blocks
		}
		updated, aerr := plugin.Apply(s.live[pageID], cmd)
		if aerr != nil {
			err = multierr.Append(err, aerr)
			continue
		}
		s.live[pageID] = updated
		touched[pageID] = struct{}{}
		if cmd.Name == plugin.CmdSavePage {
			if serr := s.store.SavePage(pageID, updated); serr != nil {
				err = multierr.Append(err, serr)
			}
		}
	}

	type push struct {
		conn  *websocket.Conn
		frame plugin.PushFrame
	}
	var pushes []push
	for pageID := range touched {
		frame := plugin.PushFrame{PageID: pageID, Blocks: block.CloneBlocks(s.live[pageID])}
		for conn := range s.conns {
			if conn != from {
				pushes = append(pushes, push{conn, frame})
			}
		}
	}
	s.mu.Unlock()

	for _, p := range pushes {
		if werr := p.conn.WriteJSON(p.frame); werr != nil {
			s.log.Debug("Unable to push page update", zap.Error(werr))
		}
	}
	return err
}

func pageIDOf(cmd plugin.Command) string {
	var a struct {
		PageID string `json:"page_id"`
	}
	if err := json.Unmarshal(cmd.Args, &a); err != nil {
		return ""
	}
	return strings.TrimSpace(a.PageID)
}
