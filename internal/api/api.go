package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/curaious/voicerelay/internal/api/cors"
	"github.com/curaious/voicerelay/internal/config"
	"github.com/curaious/voicerelay/internal/metrics"
	"github.com/curaious/voicerelay/pkg/llm"
)

// MaxRequestBodySize caps inbound request bodies at 1 MiB.
const MaxRequestBodySize = 1 << 20

// Server is the relay's HTTP server. It only holds read-only state, so a
// single instance serves all requests concurrently.
type Server struct {
	srv      *fasthttp.Server
	addr     string
	conf     *config.Config
	provider llm.Provider
	cors     *cors.Policy
	metrics  *metrics.Collector
}

// New wires the routes for conf around provider. collector may be nil.
func New(conf *config.Config, provider llm.Provider, collector *metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}

	s := &Server{
		srv: &fasthttp.Server{
			Name:               "voicerelay",
			MaxRequestBodySize: MaxRequestBodySize,
		},
		addr:     fmt.Sprintf("0.0.0.0:%d", conf.PORT),
		conf:     conf,
		provider: provider,
		cors:     cors.NewPolicy(conf),
		metrics:  collector,
	}

	s.srv.Handler = s.initNewRoutes()

	return s
}

// Handler exposes the fully wrapped request handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.srv.Handler
}

// Start the rest server and block until SIGINT/SIGTERM.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	slog.Info("Voice relay listening",
		slog.String("addr", s.addr),
		slog.String("cors_mode", string(s.conf.CORS_MODE)),
		slog.Any("allowed_origins", s.conf.ALLOWED_ORIGINS),
		slog.Bool("api_key_configured", s.conf.OPENAI_API_KEY != ""),
	)

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	// Create a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// Shutdown shuts down the rest server
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}
