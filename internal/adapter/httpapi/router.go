// Package httpapi exposes the completion service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"llmexec/internal/journal"
	"llmexec/internal/llm"
	"llmexec/internal/service"
	"llmexec/internal/shared"
)

// StatusClientClosedRequest is the nginx convention for a request the client abandoned.
const StatusClientClosedRequest = 499

// Completer is the part of service.Service the API needs.
type Completer interface {
	Complete(ctx context.Context, in llm.Input) (service.Result, error)
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Ping(ctx context.Context) error
}

// Option customizes the router.
type Option func(*gin.Engine)

// WithHandler mounts an extra handler, e.g. the Telegram webhook.
func WithHandler(method, path string, h http.Handler) Option {
	return func(r *gin.Engine) { r.Handle(method, path, gin.WrapH(h)) }
}

type handler struct {
	svc Completer
	log *slog.Logger
}

// NewRouter builds the gin engine with all routes.
func NewRouter(svc Completer, log *slog.Logger, opts ...Option) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)
	r.GET("/healthz", h.health)
	v1 := r.Group("/v1")
	v1.POST("/request", h.request)
	v1.GET("/journal", h.journal)

	for _, o := range opts {
		o(r)
	}
	return r
}

type requestResponse struct {
	ID       string `json:"id"`
	Result   string `json:"result"`
	Attempts int    `json:"attempts"`
}

type errorResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *handler) request(c *gin.Context) {
	var in llm.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: shared.KindInvalidRequest.String()})
		return
	}
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: shared.KindInvalidRequest.String()})
		return
	}

	res, err := h.svc.Complete(c.Request.Context(), in)
	if err != nil {
		c.JSON(statusFor(c.Request.Context(), err), errorResponse{
			ID:    res.ID.String(),
			Error: err.Error(),
			Kind:  shared.KindOf(err).String(),
		})
		return
	}
	c.JSON(http.StatusOK, requestResponse{ID: res.ID.String(), Result: res.Text, Attempts: res.Attempts})
}

// statusFor maps an executor error to an HTTP status. Anything the provider
// did wrong is a bad gateway; a request the client abandoned is 499.
func statusFor(ctx context.Context, err error) int {
	switch {
	case shared.IsCanceled(err) || ctx.Err() != nil:
		return StatusClientClosedRequest
	case shared.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *handler) journal(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}
	entries, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("journal read failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "journal unavailable"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) accessLog(c *gin.Context) {
	st := time.Now()
	c.Next()
	lvl := slog.LevelDebug
	if c.Writer.Status() >= http.StatusInternalServerError {
		lvl = slog.LevelWarn
	}
	h.log.Log(c.Request.Context(), lvl, "http",
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("dur", time.Since(st)),
	)
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("http server started", slog.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
