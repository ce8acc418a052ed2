package app

import (
	"context"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"
	"github.com/luisgil43/finanzasbot/pkg/finanzas"
	"github.com/luisgil43/finanzasbot/pkg/fx"
	"github.com/luisgil43/finanzasbot/pkg/ocr"
	"github.com/luisgil43/finanzasbot/pkg/services"
	"github.com/luisgil43/finanzasbot/pkg/telegram"

	"github.com/go-pg/pg/v10"
	monitor "github.com/hypnoglow/go-pg-monitor"
	"github.com/labstack/echo/v4"
	"github.com/vmkteam/appkit"
	"github.com/vmkteam/embedlog"
)

type Config struct {
	Database *pg.Options
	Server   struct {
		Host    string
		Port    int
		IsDevel bool
	}
	Telegram struct {
		Token      string
		Debug      bool
		WebhookURL string
	}
	OCR struct {
		APIKey string
	}
	FX struct {
		TTL time.Duration
	}
	Prometheus struct {
		URL string
	}
	Sentry struct {
		Environment string
		DSN         string
	}
}

type App struct {
	embedlog.Logger
	appName string
	cfg     Config
	db      db.DB
	mon     *monitor.Monitor
	echo    *echo.Echo
	fin     *finanzas.Manager
	tgBot   *telegram.Bot
}

func New(appName string, sl embedlog.Logger, cfg Config, dbc db.DB) (*App, error) {
	a := &App{
		appName: appName,
		cfg:     cfg,
		db:      dbc,
		echo:    appkit.NewEcho(),
		Logger:  sl,
	}

	rates := fx.NewClient(sl, cfg.FX.TTL)
	a.fin = finanzas.NewManager(dbc, rates, sl)

	if cfg.Telegram.Token != "" {
		var extractor telegram.TextExtractor
		if cfg.OCR.APIKey != "" {
			extractor = ocr.NewClient(cfg.OCR.APIKey)
		} else {
			extractor = telegram.NewMockTextExtractor(sl)
		}

		tgBot, err := telegram.New(telegram.Config{
			Token:      cfg.Telegram.Token,
			Debug:      cfg.Telegram.Debug,
			WebhookURL: cfg.Telegram.WebhookURL,
		}, a.fin, extractor, sl)
		if err != nil {
			return nil, err
		}
		a.tgBot = tgBot
	}

	return a, nil
}

// Run is a function that runs application.
func (a *App) Run(ctx context.Context) error {
	a.registerMetrics()
	a.restoreMetrics(ctx)
	a.registerHandlers()
	a.registerDebugHandlers()
	a.registerMetadata()

	// Start Telegram bot if configured
	if a.tgBot != nil {
		go func() {
			if err := a.tgBot.Start(ctx); err != nil {
				a.Error(ctx, "telegram bot error", "err", err)
			}
		}()
	}

	return a.runHTTPServer(ctx, a.cfg.Server.Host, a.cfg.Server.Port)
}

// Shutdown is a function that gracefully stops HTTP server.
func (a *App) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop Telegram bot
	if a.tgBot != nil {
		a.tgBot.Stop(ctx)
	}

	a.mon.Close()

	return a.echo.Shutdown(ctx)
}

// restoreMetrics re-seeds bot counters from the Prometheus server so
// restarts do not reset the totals. Failures only log: metrics restore
// must never block startup.
func (a *App) restoreMetrics(ctx context.Context) {
	if a.cfg.Prometheus.URL == "" {
		return
	}

	client, err := services.NewPrometheusClient(a.cfg.Prometheus.URL, a.Logger)
	if err != nil {
		a.Error(ctx, "failed to create prometheus client", "err", err)
		return
	}
	snapshot, err := client.RestoreMetrics(ctx)
	if err != nil {
		a.Error(ctx, "failed to restore metrics", "err", err)
		return
	}
	telegram.RestoreCounters(snapshot)
}

// registerMetadata is a function that registers meta info from service.
func (a *App) registerMetadata() {
	services := []appkit.ServiceMetadata{}
	if a.tgBot != nil {
		// Telegram bot runs asynchronously in a separate goroutine
		services = append(services, appkit.NewServiceMetadata("telegram-bot", appkit.MetadataServiceTypeAsync))
	}

	opts := appkit.MetadataOpts{
		HasPublicAPI:  false,
		HasPrivateAPI: false,
		DBs: []appkit.DBMetadata{
			appkit.NewDBMetadata(a.cfg.Database.Database, a.cfg.Database.PoolSize, false),
		},
		Services: services,
	}

	md := appkit.NewMetadataManager(opts)
	md.RegisterMetrics()

	a.echo.GET("/debug/metadata", md.Handler)
}
