package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"

	"modelgate/internal/config"
	"modelgate/internal/media"
	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/router"
	"modelgate/internal/translator"
)

const (
	maxJSONBytes        = 1 << 20 // 1 MiB
	maxUploadBytes      = "30M"
	shutdownGracePeriod = 10 * time.Second
	readHeaderTimeout   = 10 * time.Second
	readTimeout         = 2 * time.Minute
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	router  *router.Router
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rt *router.Router) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(router.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	if len(cfg.Server.AllowedOrigins) > 0 {
		e.Use(echo.WrapMiddleware(cors.New(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", echo.HeaderXRequestID},
			ExposedHeaders: []string{echo.HeaderXRequestID},
		}).Handler))
	}
	e.Use(middleware.BodyLimit(maxUploadBytes))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed application, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
// There is no write timeout so long completion streams are not cut off.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port, s.router.Providers())
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:              s.address,
		Handler:           s.app,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.GET("/providers", s.handleProviders)
	api.GET("/providers/:provider", s.handleProvider)
	api.GET("/providers/:provider/models", s.handleModels)
	api.POST("/completion", s.handleCompletion)
	api.POST("/transcription", s.handleTranscription)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"providers": s.router.Providers()})
}

func (s *Server) handleProvider(c echo.Context) error {
	name := c.Param("provider")
	p, err := s.router.Lookup(name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"provider": translator.ProviderInfo{Name: p.Name(), Capabilities: provider.Capabilities(p)},
		"models":   translator.FromCatalog(p.ListModels()),
	})
}

func (s *Server) handleModels(c echo.Context) error {
	catalog, err := s.router.ListModels(c.Param("provider"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]translator.ModelCatalog{"models": translator.FromCatalog(catalog)})
}

func (s *Server) handleCompletion(c echo.Context) error {
	var (
		req  translator.CompletionRequest
		file models.File
	)

	if isMultipart(c) {
		raw := c.FormValue("request")
		if raw == "" {
			return badRequest("Missing request parameters")
		}
		if err := decodeJSON(strings.NewReader(raw), &req); err != nil {
			return err
		}
		var err error
		if file, err = optionalFile(c, "input_file"); err != nil {
			return err
		}
	} else if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	completion, err := s.router.Complete(ctx, req.Provider, req.ToUnified(file))
	if err != nil {
		return toHTTPError(err)
	}

	if completion.Stream != nil {
		return writeStream(c, completion, req.ShowStats)
	}
	if completion.Response == nil {
		return requestError{Status: http.StatusBadGateway, Message: "upstream provider returned an empty response"}
	}
	return c.JSON(http.StatusOK, translator.FromUnified(completion.Response, req.ShowStats))
}

func (s *Server) handleTranscription(c echo.Context) error {
	if !isMultipart(c) {
		return badRequest("Audio transcription requires multipart/form-data")
	}

	raw := c.FormValue("request")
	file, err := optionalFile(c, "input_file")
	if err != nil {
		return err
	}
	if raw == "" || file == nil {
		return badRequest("Missing request parameters or audio file")
	}

	var req translator.TranscriptionRequest
	if err := decodeJSON(strings.NewReader(raw), &req); err != nil {
		return err
	}

	resp, err := s.router.Transcribe(c.Request().Context(), req.Provider, req.ToUnified(file))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromUnifiedTranscription(resp))
}

func writeStream(c echo.Context, completion router.Completion, showStats bool) error {
	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	if err := translator.WriteStream(c.Response(), c.Response().Flush, completion.Stream, showStats); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.Warn("failed to write stream", "request_id", router.RequestID(c.Request().Context()), "error", err)
	}
	return nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func optionalFile(c echo.Context, field string) (models.File, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest(fmt.Sprintf("invalid multipart payload: %v", err))
	}
	return media.FromMultipart(header), nil
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxJSONBytes)
	return decodeJSON(req.Body, target)
}

func decodeJSON[T any](r io.Reader, target *T) error {
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest(fmt.Sprintf("Invalid request parameters: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func printStartupBanner(port int, providers []string) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("modelgate ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Printf("Providers: %s\n", strings.Join(providers, ", "))
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/providers")
	fmt.Println("  GET  /api/providers/:provider/models")
	fmt.Println("  POST /api/completion")
	fmt.Println("  POST /api/transcription")
	fmt.Printf("Example:\n  curl http://%s:%d/api/completion -H 'Content-Type: application/json' -d '{\"provider\":\"openai\",\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}
