// Command worker runs the financial-news ingestion worker: it scrapes
// Yahoo Finance ticker news and alternate RSS feeds on a schedule, enriches
// each article's HTML, dedups by uuid, and buffers/flushes the results to
// Postgres.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/altsource"
	infraDatasink "catchup-feed/internal/infra/datasink"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/fetcher"
	"catchup-feed/internal/infra/htmlextractor"
	"catchup-feed/internal/infra/proxyclient"
	"catchup-feed/internal/infra/scheduler"
	"catchup-feed/internal/infra/tickerdirectory"
	"catchup-feed/internal/infra/worker"
	"catchup-feed/internal/observability/logging"
	"catchup-feed/internal/observability/telemetry"
	"catchup-feed/internal/usecase/articlescraper"
	"catchup-feed/internal/usecase/datasink"
)

func main() {
	logRing := logging.NewRing()
	logger := logging.NewLoggerWithRing(logRing)
	slog.SetDefault(logger)

	sqlDB := db.Open()
	defer sqlDB.Close()

	waitForMigrations(sqlDB, logger)

	workerMetrics := worker.NewWorkerMetrics()
	workerMetrics.MustRegister()

	cfg, err := worker.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	healthServer := worker.NewHealthServer(portAddr(cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil {
			logger.Error("health server stopped", slog.Any("error", err))
		}
	}()

	stream := telemetry.New(logger)

	direct := fetcher.NewHTTPFetcher(loadFetcherConfig(logger))
	proxy := proxyclient.New(loadProxyConfig(cfg), direct, stream)
	extractor := htmlextractor.New(proxy)

	tickers := tickerdirectory.New(directoryFetcher{direct}, memeTickersURI(), cfg.TickerRefreshInterval)

	newsRepo := postgres.NewNewsRepo(sqlDB)
	thumbnailRepo := postgres.NewThumbnailRepo(sqlDB)
	tickerRepo := postgres.NewRelatedTickerRepo(sqlDB)
	sentimentRepo := postgres.NewSentimentRepo(sqlDB)

	var failedSink datasink.FailedArticleSink
	if disk, err := infraDatasink.NewDiskFallbackSink(failedArticleDir()); err != nil {
		logger.Error("failed to initialize disk fallback sink, failed articles will be dropped", slog.Any("error", err))
	} else {
		failedSink = disk
	}

	sink := datasink.New(newsRepo, thumbnailRepo, tickerRepo, sentimentRepo, failedSink, stream)
	scraper := articlescraper.New(proxy, extractor, sink, stream)
	alt := altsource.New(rssFeedURIs(), proxy, extractor, sink)

	adminServer := newAdminServer(cfg, stream, logRing, logger)
	go func() {
		if err := adminServer.ListenAndServe(); err != nil {
			logger.Error("admin server stopped", slog.Any("error", err))
		}
	}()

	job := func(ctx context.Context, task entity.TaskName, tickerSnapshot map[string]string) {
		runScheduledTask(ctx, task, tickerSnapshot, scraper, alt, sink, workerMetrics, logger)
	}

	sched := scheduler.New(*cfg, defaultScheduleSlots(), tickers, job, healthServer, logger)

	logger.Info("worker starting",
		slog.String("scheduler_mode", cfg.SchedulerMode),
		slog.String("timezone", cfg.Timezone),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	sched.Run(ctx)

	logger.Info("worker shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = sink.Flush(shutdownCtx)
}

// runScheduledTask executes one admitted task and reports its outcome via
// WorkerMetrics, matching scheduled_task's per-slot run: fetch, ingest,
// flush, log.
func runScheduledTask(ctx context.Context, task entity.TaskName, tickerSnapshot map[string]string, scraper *articlescraper.Scraper, alt *altsource.Source, sink *datasink.Sink, metrics *worker.WorkerMetrics, logger *slog.Logger) {
	start := time.Now()
	status := "success"

	var articles []entity.Article
	var err error

	switch task {
	case entity.TaskScrapeYahoo:
		tickerList := make([]string, 0, len(tickerSnapshot))
		for symbol := range tickerSnapshot {
			tickerList = append(tickerList, symbol)
		}
		articles, err = scraper.ScrapeYahoo(ctx, tickerList)
	case entity.TaskAlternateSources:
		articles = alt.ParseFeeds(ctx)
	default:
		logger.Warn("unknown scheduled task", slog.String("task", string(task)))
		return
	}

	if err != nil {
		status = "failure"
		logger.Error("scheduled task failed", slog.String("task", string(task)), slog.Any("error", err))
	}

	sink.Ingest(articles)
	if err := sink.Flush(ctx); err != nil {
		status = "failure"
		logger.Error("flush failed", slog.String("task", string(task)), slog.Any("error", err))
	}

	metrics.RecordRun(status)
	metrics.RecordRunDuration(time.Since(start).Seconds())
	metrics.RecordArticlesIngested(len(articles))
	if status == "success" {
		metrics.RecordLastSuccess()
	}
	logger.Info("scheduled task complete",
		slog.String("task", string(task)),
		slog.String("status", status),
		slog.Int("articles", len(articles)),
		slog.Duration("duration", time.Since(start)))
}

// waitForMigrations applies the news ingestion schema at startup. A broken
// schema means the worker can't do anything useful, so it exits rather
// than limping along.
func waitForMigrations(sqlDB *sql.DB, logger *slog.Logger) {
	if err := db.MigrateUp(sqlDB); err != nil {
		logger.Error("failed to apply database migrations", slog.Any("error", err))
		log.Fatal(err)
	}
	logger.Info("database migrations applied")
}

func loadFetcherConfig(logger *slog.Logger) fetcher.Config {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid fetcher configuration, using defaults", slog.Any("error", err))
		return fetcher.DefaultConfig()
	}
	return cfg
}

func loadProxyConfig(cfg *worker.WorkerConfig) proxyclient.Config {
	return proxyclient.Config{
		WorkerURL:      getEnvOr("PROXY_WORKER_URL", "https://proxy.eod-stock-api.site"),
		SecurityToken:  os.Getenv("PROXY_SECURITY_TOKEN"),
		ErrorThreshold: int64(cfg.ProxyErrorThreshold),
	}
}

func memeTickersURI() string {
	return getEnvOr("MEME_TICKERS_URI", "https://eod-stock-api.site/api/v1/meme-tickers")
}

func rssFeedURIs() []string {
	if val := os.Getenv("RSS_FEED_URIS"); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return []string{"https://news.google.com/rss/search?q=stock+market&hl=en-US&gl=US&ceid=US:en"}
}

func failedArticleDir() string {
	return getEnvOr("FAILED_ARTICLE_DIR", "/var/lib/catchup-feed/failed-articles")
}

func getEnvOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// directoryFetcher adapts HTTPFetcher's (string, error) signature to
// tickerdirectory.Fetcher.
type directoryFetcher struct {
	f *fetcher.HTTPFetcher
}

func (d directoryFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return d.f.Fetch(ctx, url)
}

// defaultScheduleSlots mirrors the original SchedulerSettings.schedule_times
// table: eight three-hour-spaced Yahoo scrape slots starting at midnight,
// and eight alternate-source slots offset 90 minutes after each one.
func defaultScheduleSlots() []entity.ScheduleSlot {
	yahooSlots := []string{"00:00", "03:00", "06:00", "09:00", "12:00", "15:00", "18:00", "21:00"}
	altSlots := []string{"01:30", "04:30", "07:30", "10:30", "13:30", "16:30", "19:30", "22:30"}

	slots := make([]entity.ScheduleSlot, 0, len(yahooSlots)+len(altSlots))
	for _, t := range yahooSlots {
		slots = append(slots, entity.ScheduleSlot{Time: t, TaskName: entity.TaskScrapeYahoo})
	}
	for _, t := range altSlots {
		slots = append(slots, entity.ScheduleSlot{Time: t, TaskName: entity.TaskAlternateSources})
	}
	return slots
}
