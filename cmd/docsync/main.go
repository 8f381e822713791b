package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ia-ops/docsync/internal/config"
	"github.com/ia-ops/docsync/internal/coordinator"
	"github.com/ia-ops/docsync/internal/events"
	"github.com/ia-ops/docsync/internal/gitfetch"
	"github.com/ia-ops/docsync/internal/logfields"
	"github.com/ia-ops/docsync/internal/metrics"
	"github.com/ia-ops/docsync/internal/publish"
	"github.com/ia-ops/docsync/internal/scheduler"
	"github.com/ia-ops/docsync/internal/server"
	"github.com/ia-ops/docsync/internal/site"
	"github.com/ia-ops/docsync/internal/store"
	"github.com/ia-ops/docsync/internal/workspace"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the sync service with its HTTP API"`

	Sync struct {
		Name   string `arg:"" help:"Repository name"`
		URL    string `arg:"" help:"Repository clone URL"`
		Branch string `help:"Branch to sync" default:"main"`
	} `cmd:"" help:"Run a single sync and exit"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	// Optional local overrides; absence is not an error.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "serve":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runServe(cfg); err != nil {
			slog.Error("Service failed", "error", err)
			os.Exit(1)
		}
	case "sync <name> <url>":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runSync(cfg, CLI.Sync.Name, CLI.Sync.URL, CLI.Sync.Branch); err != nil {
			slog.Error("Sync failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	}
}

// buildCoordinator wires the pipeline collaborators from configuration.
func buildCoordinator(ctx context.Context, cfg *config.Config) (*coordinator.Coordinator, *store.SQLiteStore, error) {
	jobStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open job store: %w", err)
	}

	objects, err := publish.NewMinioStore(ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		_ = jobStore.Close()
		return nil, nil, fmt.Errorf("connect object storage: %w", err)
	}

	// Rows left non-terminal by a previous process would otherwise reject
	// every future admission for their repository with a dead job ID.
	if n, err := jobStore.FailOrphaned(ctx, "interrupted by service restart"); err != nil {
		slog.Warn("Failed to reconcile orphaned jobs", "error", err)
	} else if n > 0 {
		slog.Info("Reconciled orphaned jobs", slog.Int64("count", n))
	}

	coord := coordinator.New(coordinator.Deps{
		Store:         jobStore,
		Fetcher:       gitfetch.NewClient(cfg.Sync.CloneTimeoutDuration()),
		Sites:         site.New(cfg.Sync.MkDocsBinary),
		Publisher:     publish.NewPublisher(objects),
		Workspaces:    workspace.NewManager(cfg.Sync.WorkspaceDir),
		MaxConcurrent: cfg.Sync.MaxConcurrent,
	})
	return coord, jobStore, nil
}

func runServe(cfg *config.Config) error {
	ctx := context.Background()

	coord, jobStore, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer jobStore.Close()

	registry := prometheus.NewRegistry()
	coord.SetRecorder(metrics.NewPrometheusRecorder(registry))

	if cfg.Events.Enabled {
		emitter, err := events.NewNATSEmitter(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		defer emitter.Close()
		coord.SetEmitter(emitter)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(coord, cfg.Scheduler.Repositories)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if _, err := sched.SchedulePeriodicSync(cfg.Scheduler.IntervalDuration()); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		sched.Start()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.NewServer(addr, coord, server.Options{
		PublicBasePath:  cfg.Server.PublicBasePath,
		MetricsRegistry: registry,
		Health:          jobStore,
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API listening", slog.String("addr", addr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		slog.Info("Shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			slog.Warn("Scheduler shutdown incomplete", "error", err)
		}
	}

	// Runs are not cancellable; wait for in-flight ones to finish so their
	// workspaces are cleaned and terminal states persisted.
	coord.Wait()
	return nil
}

// runSync submits one repository and polls the record until it settles.
func runSync(cfg *config.Config, name, url, branch string) error {
	ctx := context.Background()

	coord, jobStore, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer jobStore.Close()

	adm, err := coord.RequestSync(ctx, name, url, branch)
	if err != nil {
		return err
	}
	if !adm.Accepted {
		return fmt.Errorf("a sync run is already active for %s (job %s)", name, adm.JobID)
	}

	coord.Wait()

	job, err := coord.GetJobStatus(ctx, adm.JobID)
	if err != nil {
		return fmt.Errorf("load final job state: %w", err)
	}
	if job.Status != store.StatusCompleted {
		return fmt.Errorf("sync %s: %s", job.JobID, job.ErrorMessage)
	}
	slog.Info("Sync completed",
		logfields.JobID(job.JobID),
		logfields.Repository(name),
		slog.Int("files_uploaded", job.ResultMetadata.FilesUploaded))
	return nil
}

const configTemplate = `# docsync service configuration
server:
  host: 0.0.0.0
  port: 8845
  # public_base_path: /techdocs

database:
  path: ./docsync.db

storage:
  endpoint: localhost:9000
  access_key: minioadmin
  secret_key: minioadmin
  bucket: repositories
  use_ssl: false

sync:
  clone_timeout: 2m
  mkdocs_binary: mkdocs
  # max_concurrent: 0 means unbounded
  max_concurrent: 0

events:
  enabled: false
  nats_url: nats://localhost:4222
  subject: docsync.jobs

scheduler:
  enabled: false
  interval: 1h
  repositories: []
  #  - name: demo
  #    url: https://example.com/demo.git
  #    branch: main
`

func runInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	slog.Info("Configuration file created", logfields.Path(path))
	return nil
}
