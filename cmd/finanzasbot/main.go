package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/app"
	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/go-pg/pg/v10"
	"github.com/namsral/flag"
	"github.com/vmkteam/embedlog"
)

const appName = "finanzasbot"

var (
	fs           = flag.NewFlagSetWithEnvPrefix(os.Args[0], "FINANZASBOT", flag.ExitOnError)
	flHost       = fs.String("host", "0.0.0.0", "listen host")
	flPort       = fs.Int("port", 8075, "listen port")
	flIsDevel    = fs.Bool("devel", false, "enable devel mode")
	flVerbose    = fs.Bool("verbose", false, "enable debug output")
	flJSONLogs   = fs.Bool("json", false, "enable json log output")
	flDBAddr     = fs.String("db-addr", "localhost:5432", "postgresql address")
	flDBName     = fs.String("db-name", "finanzasbot", "postgresql database")
	flDBUser     = fs.String("db-user", "postgres", "postgresql user")
	flDBPassword = fs.String("db-password", "postgres", "postgresql password")
	flDBPoolSize = fs.Int("db-pool", 10, "postgresql pool size")
	flTgToken    = fs.String("telegram-token", "", "telegram bot token")
	flTgDebug    = fs.Bool("telegram-debug", false, "enable telegram debug output")
	flTgWebhook  = fs.String("telegram-webhook-url", "", "public webhook url (long polling when empty)")
	flOCRKey     = fs.String("ocr-api-key", "", "ocr.space api key (mock extractor when empty)")
	flFxTTL      = fs.Duration("fx-ttl", time.Hour, "usd/clp rate cache ttl")
	flPromURL    = fs.String("prometheus-url", "", "prometheus url for metrics restore on start")
)

func main() {
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	sl := embedlog.NewLogger(*flJSONLogs, *flVerbose)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := app.Config{}
	cfg.Database = &pg.Options{
		Addr:     *flDBAddr,
		Database: *flDBName,
		User:     *flDBUser,
		Password: *flDBPassword,
		PoolSize: *flDBPoolSize,
	}
	cfg.Server.Host = *flHost
	cfg.Server.Port = *flPort
	cfg.Server.IsDevel = *flIsDevel
	cfg.Telegram.Token = *flTgToken
	cfg.Telegram.Debug = *flTgDebug
	cfg.Telegram.WebhookURL = *flTgWebhook
	cfg.OCR.APIKey = *flOCRKey
	cfg.FX.TTL = *flFxTTL
	cfg.Prometheus.URL = *flPromURL

	dbc := db.New(pg.Connect(cfg.Database))
	if err := dbc.Ping(ctx); err != nil {
		exitOnError(fmt.Errorf("failed to connect to database: %w", err))
	}

	a, err := app.New(appName, sl, cfg, dbc)
	exitOnError(err)

	go func() {
		<-ctx.Done()
		if err := a.Shutdown(5 * time.Second); err != nil {
			sl.Error(context.Background(), "failed to shutdown", "err", err)
		}
	}()

	exitOnError(a.Run(ctx))
}

func exitOnError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
