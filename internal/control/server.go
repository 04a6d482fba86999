// Package control exposes a Script over a WebSocket so a host application
// or an operator can load, stop and inspect it remotely. Each text frame is
// one JSON request; each request gets exactly one JSON response.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cryguy/scripthost/internal/lifecycle"
)

// MaxRequestBytes caps a single control message. Scripts travel inside
// load requests, so this is also the largest script accepted remotely.
const MaxRequestBytes = 4 << 20

// pingInterval is how often idle connections are pinged.
const pingInterval = 30 * time.Second

// Scripter is the script the server controls.
type Scripter interface {
	Load(text string) error
	Stop()
	GetText() string
	Stats() lifecycle.Stats
}

// Request is one control message.
type Request struct {
	ID   string `json:"id,omitempty"`
	Op   string `json:"op"`
	Text string `json:"text,omitempty"`
}

// Response answers a Request. ID echoes the request's.
type Response struct {
	ID    string           `json:"id,omitempty"`
	OK    bool             `json:"ok"`
	Error string           `json:"error,omitempty"`
	Text  *string          `json:"text,omitempty"`
	Stats *lifecycle.Stats `json:"stats,omitempty"`
}

// Server serves the control endpoint.
type Server struct {
	script Scripter
	log    *slog.Logger
}

// New creates a control server for script.
func New(script Scripter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{script: script, log: log.With("component", "control")}
}

// Handler returns a mux serving /control and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("control server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down control server: %w", err)
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ServeWS upgrades the request and answers control messages until the
// peer disconnects.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(MaxRequestBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader goroutine: decodes requests into a channel.
	incoming := make(chan Request)
	readErr := make(chan error, 1)
	go func() {
		defer close(incoming)
		for {
			var req Request
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				readErr <- err
				return
			}
			select {
			case incoming <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case req, ok := <-incoming:
			if !ok {
				select {
				case err := <-readErr:
					if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
						s.log.Debug("control connection closed", "err", err)
					}
				default:
				}
				return
			}
			resp := s.Handle(req)
			if err := wsjson.Write(ctx, conn, resp); err != nil {
				s.log.Debug("writing control response", "err", err)
				return
			}

		case <-pingTicker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Handle executes one request.
func (s *Server) Handle(req Request) Response {
	resp := Response{ID: req.ID, OK: true}
	switch req.Op {
	case "load":
		s.log.Info("load requested", "bytes", len(req.Text))
		if err := s.script.Load(req.Text); err != nil {
			resp.OK = false
			resp.Error = err.Error()
		}
	case "stop":
		s.log.Info("stop requested")
		s.script.Stop()
	case "text":
		text := s.script.GetText()
		resp.Text = &text
	case "stats":
		st := s.script.Stats()
		resp.Stats = &st
	default:
		resp.OK = false
		resp.Error = fmt.Sprintf("unknown op %q", req.Op)
	}
	return resp
}
