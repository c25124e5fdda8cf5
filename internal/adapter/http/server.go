package http

import (
	"net/http"

	"github.com/bnema/ffpoc/internal/adapter/http/middleware"
	"github.com/bnema/ffpoc/static"
)

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
	assets     http.Handler
	csrf       *middleware.CSRF
	handler    http.Handler
}

// NewServer wires the page routes. assets serves the two engine files under
// /ffmpeg/.
func NewServer(handlers *Handlers, sseHandler *SSEHandler, assets http.Handler, csrfSecret string) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		handlers:   handlers,
		sseHandler: sseHandler,
		assets:     assets,
		csrf:       middleware.NewCSRF(csrfSecret),
	}

	s.registerRoutes()
	s.registerStatic()
	s.handler = middleware.SecurityHeaders(s.csrf.Middleware(s.mux))

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handlers.Page())

	s.mux.HandleFunc("POST /input", s.handlers.SelectInput())
	s.mux.HandleFunc("GET /input/preview", s.handlers.Preview())

	s.mux.HandleFunc("POST /actions/{action}", s.handlers.Action())

	s.mux.HandleFunc("GET /state", s.handlers.State())
	s.mux.HandleFunc("GET /history", s.handlers.History())

	s.mux.HandleFunc("GET /events", s.sseHandler.Events())

	s.mux.HandleFunc("GET /downloads/{ref}", s.handlers.Download())
}

func (s *Server) registerStatic() {
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static.FS))))
	if s.assets != nil {
		s.mux.Handle("GET /ffmpeg/", http.StripPrefix("/ffmpeg/", s.assets))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
