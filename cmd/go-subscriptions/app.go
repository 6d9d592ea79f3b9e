package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-job/queue/adapters/postgres"
	jobworker "github.com/goliatone/go-job/queue/worker"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	subscriptions "github.com/goliatone/go-subscriptions"
	"github.com/goliatone/go-subscriptions/adapters/gocommand"
	"github.com/goliatone/go-subscriptions/adapters/gojob"
	"github.com/goliatone/go-subscriptions/adapters/gologger"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/graph"
	"github.com/goliatone/go-subscriptions/migrations"
	"github.com/goliatone/go-subscriptions/orchestration"
	"github.com/goliatone/go-subscriptions/ratelimit"
	"github.com/goliatone/go-subscriptions/schedule"
	sqlstore "github.com/goliatone/go-subscriptions/store/sql"
	"github.com/goliatone/go-subscriptions/transport"
	"github.com/goliatone/go-subscriptions/webhooks"
	"golang.org/x/sync/errgroup"
)

const defaultQueueCapacity = 256

type appOptions struct {
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Tokens         graph.TokenSource
	HTTPClient     transport.HTTPDoer
	QueueCapacity  int
	Retry          core.JobRetryPolicy
	Hooks          *subscriptions.ExtensionHooks
}

// app owns every long-lived component of the service binary.
type app struct {
	cfg     core.Config
	loggers gologger.Loggers

	client  *persistence.Client
	service *core.Service
	results *sqlstore.CachedResultStore
	runtime *orchestration.Runtime
	trigger *schedule.Trigger
	bus     *gocommand.Bus
	router  chi.Router

	// sqlite runs orchestrations through an in-process queue; postgres
	// uses the durable go-job queue and worker.
	queue     *orchestration.MemoryQueue
	worker    *orchestration.Worker
	jobWorker *jobworker.Worker
}

func newApp(ctx context.Context, cfg core.Config, options appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if options.Tokens == nil {
		return nil, fmt.Errorf("go-subscriptions: provider token source is required")
	}
	a := &app{
		cfg:     cfg,
		loggers: gologger.ResolveComponents(options.LoggerProvider, options.Logger),
	}

	client, err := openStorage(ctx, cfg.Persistence)
	if err != nil {
		return nil, err
	}
	a.client = client
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("go-subscriptions: result cache: %w", err)
	}
	if a.results, err = sqlstore.NewCachedResultStore(factory.ResultStore(), cacheService); err != nil {
		_ = a.Close()
		return nil, err
	}

	graphClient, err := graph.NewClient(cfg.Provider, options.Tokens,
		graph.WithHTTPClient(options.HTTPClient),
		graph.WithThrottlePolicy(ratelimit.NewPolicy(ratelimit.NewMemoryWindowStore())),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.service, err = core.NewService(cfg,
		core.WithResourceClient(graphClient),
		core.WithLoggerProvider(a.loggers.Provider),
		core.WithLogger(a.loggers.Service),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	driver, err := sqlstore.NormalizeDriver(cfg.Persistence.Driver)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	var enqueuer core.JobEnqueuer
	var runQueue *postgres.Adapter
	if driver == sqlstore.DriverPostgres {
		if runQueue, err = gojob.OpenRunQueue(ctx, client.DB().DB, postgres.DialectPostgres); err != nil {
			_ = a.Close()
			return nil, err
		}
		enqueuer = gojob.NewEnqueuerAdapter(runQueue)
	} else {
		capacity := options.QueueCapacity
		if capacity <= 0 {
			capacity = defaultQueueCapacity
		}
		a.queue = orchestration.NewMemoryQueue(capacity)
		enqueuer = a.queue
	}

	a.runtime, err = orchestration.NewRuntime(factory.InstanceStore(), factory.StepStore(), enqueuer,
		orchestration.WithRuntimeLogger(a.loggers.Orchestration))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	workflows := orchestration.Workflows{
		Subscriptions: a.service,
		Resolver:      a.service,
		Sink:          a.results,
		Resource:      cfg.Subscription.Resource,
		TTL:           cfg.Subscription.TTL(),
	}
	if err := workflows.Register(a.runtime); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := options.Hooks.ApplyOrchestrationPacks(a.runtime); err != nil {
		_ = a.Close()
		return nil, err
	}

	retry := options.Retry
	if retry.MaxAttempts == 0 {
		retry = core.DefaultJobRetryPolicy()
	}
	hook := orchestration.NewLogHook(a.loggers.Worker)
	if runQueue != nil {
		a.jobWorker, err = gojob.NewRunWorker(a.runtime, runQueue, retry, hook,
			jobworker.WithLogger(gologger.ToJobLogger(a.loggers.Worker)))
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	} else {
		a.worker = orchestration.NewWorker(a.runtime, a.queue, retry)
		a.worker.Logger = a.loggers.Worker
		a.worker.Hook = hook
	}

	a.trigger, err = schedule.NewTrigger(cfg.Schedule.RenewalCron, a.runtime, schedule.WithLogger(a.loggers.Schedule))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.bus = gocommand.NewBus(gocmd.NewRegistry())
	if err := a.bus.Register(gocommand.Handlers{
		Subscriptions: a.service,
		Resolver:      a.service,
		Starter:       a.runtime,
		Instances:     a.runtime,
		Results:       a.results,
	}); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.bus.Initialize(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.router = a.routes()
	return a, nil
}

func openStorage(ctx context.Context, cfg core.PersistenceConfig) (*persistence.Client, error) {
	client, err := sqlstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	driver, err := sqlstore.NormalizeDriver(cfg.Driver)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, client, driver); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("go-subscriptions: migrate: %w", err)
	}
	return client, nil
}

func (a *app) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	handlerOpts := []webhooks.Option{
		webhooks.WithLogger(a.loggers.Webhooks),
		webhooks.WithReplayLedger(core.NewMemoryReplayLedger(0, 0), 0),
	}
	if secret := strings.TrimSpace(a.cfg.Subscription.ClientState); secret != "" {
		handlerOpts = append(handlerOpts, webhooks.WithVerifier(webhooks.NewSecretClientState(secret)))
	}
	webhooks.NewHandler(a.runtime, handlerOpts...).Routes(r, a.cfg.Callback.Path)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/orchestrations/{instanceID}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			instance, err := gocommand.GetInstance(req.Context(), chi.URLParam(req, "instanceID"))
			respond(w, instance, err)
		})
		r.Get("/steps", func(w http.ResponseWriter, req *http.Request) {
			steps, err := gocommand.ListSteps(req.Context(), chi.URLParam(req, "instanceID"))
			respond(w, steps, err)
		})
		r.Get("/results", func(w http.ResponseWriter, req *http.Request) {
			results, err := gocommand.ListResults(req.Context(), chi.URLParam(req, "instanceID"))
			respond(w, results, err)
		})
	})
	return r
}

// Run starts the worker and the renewal trigger and serves HTTP on srv
// until ctx ends.
func (a *app) Run(ctx context.Context, srv *http.Server) error {
	group, ctx := errgroup.WithContext(ctx)
	if a.jobWorker != nil {
		if err := a.jobWorker.Start(ctx); err != nil {
			return err
		}
	} else {
		group.Go(func() error {
			return a.worker.Start(ctx)
		})
	}
	a.trigger.Start()
	core.LogWithLevel(ctx, a.loggers.Schedule, "debug", "next renewal scheduled", map[string]any{
		"next_run": a.trigger.NextRun(),
	})

	group.Go(func() error {
		core.LogWithLevel(ctx, a.loggers.Service, "info", "http server listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		<-a.trigger.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if a.jobWorker != nil {
			if err := a.jobWorker.Stop(shutdownCtx); err != nil {
				core.LogWithLevel(shutdownCtx, a.loggers.Worker, "warn", "job worker stop failed", map[string]any{"error": err.Error()})
			}
		}
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	a.bus.Close()
	if a.queue != nil {
		a.queue.Close()
	}
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func respond(w http.ResponseWriter, value any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		var richErr *goerrors.Error
		switch {
		case errors.Is(err, orchestration.ErrInstanceNotFound), errors.Is(err, core.ErrResultsNotFound):
			status = http.StatusNotFound
		case goerrors.As(err, &richErr) && richErr != nil && richErr.Code >= 400:
			status = richErr.Code
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
