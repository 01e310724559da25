// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mentor-matching/internal/common/camunda"
	"mentor-matching/internal/common/config"
	"mentor-matching/internal/common/database"
	"mentor-matching/internal/common/events"
	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/common/observability"
	"mentor-matching/internal/matching"
	"mentor-matching/internal/repository"
	"mentor-matching/pkg/registry"

	ap "mentor-matching/internal/workers/mentoring/assign-primary"
	ca "mentor-matching/internal/workers/mentoring/commit-assignments"
	rc "mentor-matching/internal/workers/mentoring/rank-candidates"
	wr "mentor-matching/internal/workers/mentoring/workload-report"
)

var startupRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.Build(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("Starting worker manager", nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("OpenTelemetry exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            startupRetry,
	}, log)
	if err != nil {
		fatal(log, "zeebe client failed after retries", err)
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected successfully", nil)

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = camunda.Retry(ctx, startupRetry, "PostgreSQL connection", log, func(ctx context.Context) error {
		var err error
		if pg == nil {
			if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
				return err
			}
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		fatal(log, "postgres failed after retries", err)
	}
	defer pg.Close()
	if err := repository.EnsureSchema(ctx, pg.DB); err != nil {
		fatal(log, "schema migration failed", err)
	}
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	if err := camunda.Retry(ctx, startupRetry, "Redis connection", log, rdb.Ping); err != nil {
		fatal(log, "redis failed after retries", err)
	}
	defer rdb.Close()
	log.Info("Redis connected successfully", nil)

	// --- Elasticsearch (optional prefilter) ---
	var mentorIndex *repository.MentorIndex
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = camunda.Retry(ctx, startupRetry, "Elasticsearch connection", log, es.Ping)
		}
		if err != nil {
			fatal(log, "elasticsearch failed after retries", err)
		}
		if err := es.EnsureIndex(ctx, cfg.Matching.MentorIndex, repository.MentorIndexMapping); err != nil {
			log.Warn("Mentor index unavailable, prefilter disabled", map[string]interface{}{
				"index": cfg.Matching.MentorIndex,
				"error": err.Error(),
			})
		} else {
			ix := repository.NewMentorIndex(es.Client, cfg.Matching.MentorIndex)
			synced, err := ix.Sync(ctx, repository.NewProfileStore(pg.DB))
			if err != nil {
				log.Warn("Mentor index sync failed, prefilter disabled", map[string]interface{}{
					"index":  cfg.Matching.MentorIndex,
					"synced": synced,
					"error":  err.Error(),
				})
			} else {
				mentorIndex = ix
				log.Info("Elasticsearch connected successfully", map[string]interface{}{
					"index":   cfg.Matching.MentorIndex,
					"mentors": synced,
				})
			}
		}
	}

	// --- Events ---
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		sns, err := events.NewSNSPublisherFromRegion(ctx, cfg.Events.Region, cfg.Events.TopicARN)
		if err != nil {
			fatal(log, "sns publisher init failed", err)
		}
		publisher = sns
	}

	// --- Matching stack ---
	profiles := repository.NewCachedProfiles(
		repository.NewProfileStore(pg.DB),
		repository.NewSnapshotCache(rdb.Client, cfg.Matching.SnapshotTTL()),
		log,
	)
	ledger := repository.NewLedgerStore(pg.DB)
	snapshots := repository.NewSnapshotLoader(profiles, ledger)
	matcher := matching.NewMatcher(matching.ScorerConfig{
		PrestigeAffiliations: cfg.Matching.PrestigeAffiliations,
		CultureMarkers:       cfg.Matching.CultureMarkers,
	})

	// --- Workers ---
	tasks, err := registry.LoadRegistry(cfg.App.TaskRegistry)
	if err != nil {
		log.Warn("Task registry unavailable", map[string]interface{}{
			"path":  cfg.App.TaskRegistry,
			"error": err.Error(),
		})
		tasks = &registry.TaskRegistry{}
	}

	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandler) {
		if task, ok := tasks.Lookup(taskType); ok {
			log.Debug("Registering task", map[string]interface{}{
				"taskType":    taskType,
				"displayName": task.DisplayName,
				"errorCodes":  task.ErrorCodes,
			})
		} else {
			log.Warn("Task type missing from registry", map[string]interface{}{"taskType": taskType})
		}
		if jw := zeebe.StartWorker(taskType, config.GetWorkerConfig(cfg, taskType), handler); jw != nil {
			workers = append(workers, jw)
		}
	}

	var search rc.MentorSearcher
	if mentorIndex != nil {
		search = mentorIndex
	}
	start(rc.TaskType, rc.NewHandler(&rc.Config{
		Timeout:     workerTimeout(cfg, rc.TaskType),
		DefaultTopK: cfg.Matching.DefaultTopK,
		MaxPoolSize: cfg.Matching.MaxPoolSize,
	}, snapshots, search, matcher, obs, log))

	start(ap.TaskType, ap.NewHandler(&ap.Config{
		Timeout:       workerTimeout(cfg, ap.TaskType),
		MaxCohortSize: cfg.Matching.MaxCohortSize,
	}, snapshots, matcher, obs, log))

	start(wr.TaskType, wr.NewHandler(&wr.Config{
		Timeout: workerTimeout(cfg, wr.TaskType),
	}, snapshots, log))

	start(ca.TaskType, ca.NewHandler(&ca.Config{
		Timeout:       workerTimeout(cfg, ca.TaskType),
		PublishEvents: cfg.Events.Enabled,
	}, ledger, publisher, log))

	log.Info("All workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health and metrics ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		healthy := true
		for name, ping := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		} {
			if err := ping(r.Context()); err != nil {
				checks[name] = err.Error()
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"healthy":   healthy,
			"checks":    checks,
			"redisPool": rdb.PoolStats(),
		})
	})

	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health and metrics server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down workers", nil)

	for _, jw := range workers {
		jw.Close()
	}
	for _, jw := range workers {
		jw.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("Worker manager stopped", nil)
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}
