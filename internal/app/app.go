// Package app wires configuration, the provider client, the journal and the
// outer surfaces into a running application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"llmexec/internal/adapter/external/provider"
	"llmexec/internal/adapter/httpapi"
	"llmexec/internal/adapter/scheduler"
	"llmexec/internal/adapter/telegram"
	"llmexec/internal/adapter/telegram/handlers"
	"llmexec/internal/adapter/telegram/middleware"
	"llmexec/internal/config"
	"llmexec/internal/executor"
	"llmexec/internal/journal"
	"llmexec/internal/llm"
	"llmexec/internal/platform/httpclient"
	"llmexec/internal/service"
)

const (
	telegramWorkers   = 8
	telegramRateEvery = 3 * time.Second
	telegramRateBurst = 2
)

// App wires application components.
type App struct {
	cfg   config.Config
	log   *slog.Logger
	store journal.Store
	svc   *service.Service
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	client    llm.Client
}

// WithTransport replaces the provider HTTP transport.
func WithTransport(rt http.RoundTripper) Option { return func(o *options) { o.transport = rt } }

// WithClient replaces the provider client entirely.
func WithClient(c llm.Client) Option { return func(o *options) { o.client = c } }

// New builds the provider client, opens the journal and creates the service.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	client := o.client
	if client == nil {
		hc := httpclient.New(
			httpclient.WithTimeout(cfg.Executor.Timeout),
			httpclient.WithLogger(log.With("component", "http")),
			httpclient.WithTransport(o.transport),
		)
		var err error
		client, err = provider.New(hc, provider.Settings{
			Name:    cfg.Provider.Name,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			APIKey:  cfg.Provider.APIKey,
			Params:  llm.Params{Temperature: cfg.Provider.Temperature, MaxTokens: cfg.Provider.MaxTokens},
		})
		if err != nil {
			return nil, err
		}
	}

	store, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return nil, err
	}

	svc := service.New(client, store, service.Options{
		Executor: executor.Options{
			Timeout:       cfg.Executor.Timeout,
			RetryTimes:    cfg.Executor.RetryTimes,
			RetryInterval: cfg.Executor.RetryInterval,
			Logger:        log.With("component", "executor"),
		},
		Provider: cfg.Provider.Name,
		Model:    cfg.Provider.Model,
		Logger:   log,
	})
	return &App{cfg: cfg, log: log, store: store, svc: svc}, nil
}

// Service returns the completion service.
func (a *App) Service() *service.Service { return a.svc }

// Close releases the journal.
func (a *App) Close() error { return a.store.Close() }

// Serve runs the HTTP API, the Telegram bot and journal pruning until ctx is
// done. At least one of HTTP_ADDR and TELEGRAM_TOKEN must be set.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.HTTP.Addr == "" && a.cfg.Telegram.Token == "" {
		return fmt.Errorf("nothing to serve: set %sHTTP_ADDR or %sTELEGRAM_TOKEN", config.Prefix, config.Prefix)
	}
	a.log.Info("starting", slog.String("provider", a.cfg.Provider.Name), slog.String("model", a.cfg.Provider.Model))

	g, ctx := errgroup.WithContext(ctx)

	var routes []httpapi.Option
	if a.cfg.Telegram.Token != "" {
		hook, err := a.startTelegram(ctx, g)
		if err != nil {
			return err
		}
		if hook != nil {
			routes = append(routes, httpapi.WithHandler(http.MethodPost, "/telegram/webhook", hook))
		}
	}

	if a.cfg.HTTP.Addr != "" {
		gin.SetMode(gin.ReleaseMode)
		if a.cfg.Env == "dev" {
			gin.SetMode(gin.DebugMode)
		}
		srv := &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           httpapi.NewRouter(a.svc, a.log.With("component", "httpapi"), routes...),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error { return httpapi.Serve(ctx, srv, a.log) })
	}

	if a.cfg.Journal.Driver != "none" && a.cfg.Journal.Retention > 0 {
		sched := scheduler.New(ctx, a.log.With("component", "scheduler"))
		job := scheduler.PruneJob(a.store, a.cfg.Journal.Retention, time.Now, a.log)
		if _, err := sched.AddJob(a.cfg.Journal.PruneSchedule, job, scheduler.JobOptions{Name: "journal-prune", Timeout: time.Minute}); err != nil {
			return err
		}
		sched.Start()
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	}

	err := g.Wait()
	a.log.Info("stopped")
	return err
}

// startTelegram starts the bot. In webhook mode it returns the handler to
// mount on the HTTP server; in polling mode it returns nil.
func (a *App) startTelegram(ctx context.Context, g *errgroup.Group) (http.Handler, error) {
	log := a.log.With("component", "telegram")
	rate := middleware.NewRateLimiter(telegramRateEvery, telegramRateBurst)
	acl := middleware.NewACL(a.cfg.Telegram.AllowedIDs)
	if len(a.cfg.Telegram.AllowedIDs) == 0 {
		log.Warn("telegram allow list is empty, every user will be denied")
	}
	handler := middleware.Chain(
		handlers.Commands(handlers.Prompt(a.svc, log), log),
		acl.Middleware, rate.Middleware,
	)

	var disp *telegram.Dispatcher
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, upd *models.Update) {
			disp.Dispatch(ctx, upd)
		}),
		bot.WithAllowedUpdates([]string{"message"}),
	}
	if a.cfg.Telegram.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(a.cfg.Telegram.WebhookSecret))
	}
	b, err := bot.New(a.cfg.Telegram.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	disp = telegram.NewDispatcher(b, telegramWorkers, handler, log)

	if a.cfg.Telegram.WebhookURL != "" {
		if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         a.cfg.Telegram.WebhookURL,
			SecretToken: a.cfg.Telegram.WebhookSecret,
		}); err != nil {
			return nil, fmt.Errorf("telegram: set webhook: %w", err)
		}
		g.Go(func() error {
			b.StartWebhook(ctx)
			disp.Close()
			return nil
		})
		return b.WebhookHandler(), nil
	}

	g.Go(func() error {
		b.Start(ctx)
		disp.Close()
		return nil
	})
	return nil, nil
}
