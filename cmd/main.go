package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/robertasolimandonofreo/lol-core/internal"
)

func setupRoutes(mux *http.ServeMux, lm *internal.LoggingMiddleware, deps *appDeps) {
	mux.HandleFunc("/healthz", lm.Handler(internal.HealthHandler(deps.logger)))
	mux.HandleFunc("/metrics", lm.Handler(internal.MetricsHandler(deps.logger, deps.metrics)))
	mux.HandleFunc("/gather", lm.Handler(internal.GatherHandler(deps.natsClient, deps.logger)))
	mux.HandleFunc("/gather/run", lm.Handler(internal.GatherRunHandler(deps.runner, deps.logger)))
	mux.HandleFunc("/admin/progress/clear", lm.Handler(internal.ProgressClearHandler(deps.progress, deps.logger)))
	mux.HandleFunc("/admin/matches/clear", lm.Handler(internal.MatchesClearHandler(deps.matches, deps.logger)))
}

type appDeps struct {
	logger     *internal.Logger
	metrics    *internal.MetricsCollector
	natsClient *internal.NATSClient
	runner     *internal.QueryRunner
	progress   internal.ProgressStore
	matches    internal.MatchStore
}

func scheduleGatherTasks(cfg *internal.Config, natsClient *internal.NATSClient, logger *internal.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	go func() {
		for range ticker.C {
			end := time.Now().UTC()
			start := end.Add(-24 * time.Hour)

			for _, tier := range []string{"CHALLENGER", "GRANDMASTER", "MASTER"} {
				task := internal.GatherTask{
					Platform:      cfg.RiotPlatform,
					Tier:          tier,
					StartTime:     start.Format(time.RFC3339),
					EndTime:       end.Format(time.RFC3339),
					TargetMatches: 100,
				}
				if err := natsClient.PublishGatherTask(task); err != nil {
					logger.Error("scheduled_gather_publish_failed").
						Component("scheduler").
						Operation("publish").
						Game("", task.Platform, task.Tier).
						Err(err).
						Log()
				}
			}
		}
	}()

	logger.Info("gather_scheduler_started").
		Component("scheduler").
		Operation("start").
		Log()
}

func main() {
	godotenv.Load()

	cfg := internal.LoadConfig()
	logger := internal.NewLogger(cfg)
	metrics := internal.NewMetricsCollector(logger)

	cache := internal.NewCacheManager(cfg)
	ratelimiter := internal.NewRateLimiter(cfg, logger)
	riotClient := internal.NewRiotAPIClient(cfg, cache, ratelimiter, metrics, logger)

	database, err := internal.NewDatabaseManager(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer database.Close()

	matchStore := internal.NewMatchStore(database, logger)
	progressStore := internal.NewProgressStore(database)

	gatherer := internal.NewGatherer(riotClient, matchStore, progressStore, metrics, logger, cfg.GatherBatchSize)
	runner := internal.NewQueryRunner(riotClient, gatherer, logger, cfg.GatherMaxIterations, cfg.GatherMaxRosterPages)

	profiler := internal.NewProfiler(logger)
	profiler.StartPeriodicMemoryLogging()

	natsClient, err := internal.NewNATSClient(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to NATS: %v", err)
	}
	defer natsClient.Conn.Close()

	if _, err := natsClient.StartGatherWorker(runner, profiler); err != nil {
		log.Fatalf("Error starting gather worker: %v", err)
	}

	scheduleGatherTasks(cfg, natsClient, logger)

	mux := http.NewServeMux()
	lm := internal.NewLoggingMiddleware(logger, metrics)
	setupRoutes(mux, lm, &appDeps{
		logger:     logger,
		metrics:    metrics,
		natsClient: natsClient,
		runner:     runner,
		progress:   progressStore,
		matches:    matchStore,
	})

	port := cfg.AppPort
	if port == "" {
		port = "8000"
	}
	logger.Info("server_started").
		Component("http").
		Operation("listen").
		Meta("port", port).
		Log()
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
