package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"genbridge/internal/adapter/repo"
	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/http/handlers"
	"genbridge/internal/http/httpapi"
	"genbridge/internal/infra"
	"genbridge/internal/infra/geoip"
	"genbridge/internal/notify"
	"genbridge/internal/providers"
	"genbridge/internal/providers/qwen"
	"genbridge/internal/providers/veo"
	"genbridge/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	ledger := repo.NewLedgerRepository(runner)
	orders := repo.NewOrderRepository(runner)
	analyticsRepo := repo.NewAnalyticsRepository(runner)

	httpClient := &http.Client{Timeout: 45 * time.Second}

	qwenClient, err := qwen.NewClient(qwen.Options{
		APIKey:        cfg.QwenAPIKey,
		BaseURL:       cfg.QwenBaseURL,
		Model:         cfg.QwenModel,
		WebhookSecret: cfg.QwenSecret,
		CallbackURL:   cfg.CallbackBaseURL + "/v1/webhooks/qwen",
		HTTPClient:    httpClient,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure qwen client")
	}
	veoClient, err := veo.NewClient(veo.Options{
		APIKey:        cfg.VeoAPIKey,
		BaseURL:       cfg.VeoBaseURL,
		Model:         cfg.VeoModel,
		WebhookSecret: cfg.VeoSecret,
		CallbackURL:   cfg.CallbackBaseURL + "/v1/webhooks/veo",
		HTTPClient:    httpClient,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure veo client")
	}
	registry := providers.Registry{
		qwenClient.Name(): qwenClient,
		veoClient.Name():  veoClient,
	}

	sink := analytics.MultiSink{analytics.NewCounterSink(analyticsRepo)}
	if cfg.AnalyticsEndpoint != "" {
		sink = append(sink, analytics.NewHTTPSink(cfg.AnalyticsEndpoint, httpClient))
	}

	var mailer notify.Mailer = notify.NopMailer{}
	if cfg.MailerEndpoint != "" {
		mailer = notify.NewHTTPMailer(cfg.MailerEndpoint, cfg.MailerAPIKey, cfg.MailerFrom, httpClient)
	}

	var geo geoip.CountryResolver
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, country enrichment disabled")
		} else {
			geo = resolver
		}
	}

	kindProviders := map[domain.JobKind]string{
		domain.JobKindImageEdit:   qwenClient.Name(),
		domain.JobKindTextToVideo: veoClient.Name(),
	}
	costs := map[domain.JobKind]int64{
		domain.JobKindImageEdit:   cfg.CostImageEdit,
		domain.JobKindTextToVideo: cfg.CostVideo,
	}

	gen := service.NewGenerationService(jobs, ledger, registry, kindProviders, costs, sink, logger)
	reconciler := service.NewReconciler(jobs, ledger, registry, mailer, sink, logger)
	bridge := service.NewConversionBridge(orders, sink, geo, logger)

	app := handlers.NewApp(gen, reconciler, bridge, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
