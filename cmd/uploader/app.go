package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/dmmedia/internal/identity"
	"github.com/angelmondragon/dmmedia/internal/media"
	"github.com/angelmondragon/dmmedia/internal/messages"
	"github.com/angelmondragon/dmmedia/internal/transport"
	"github.com/angelmondragon/dmmedia/internal/upload"
	"github.com/angelmondragon/dmmedia/internal/uploadlog"
	"github.com/angelmondragon/dmmedia/pkg/config"
	"github.com/angelmondragon/dmmedia/pkg/db"
	"github.com/angelmondragon/dmmedia/pkg/enums"
	"github.com/angelmondragon/dmmedia/pkg/logger"
	"github.com/angelmondragon/dmmedia/pkg/metrics"
	"github.com/angelmondragon/dmmedia/pkg/migrate"
	"github.com/angelmondragon/dmmedia/pkg/redis"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const (
	shutdownTimeout = 5 * time.Second
	readyTimeout    = 2 * time.Second
)

type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	uploader *upload.Uploader
	sender   *messages.Sender
	users    *identity.Resolver
	records  *uploadlog.Repository

	closers       []func() error
	metricsServer *http.Server
}

func newApp(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logg: logg}
	checks := map[string]db.Pinger{}

	var journal upload.Journal = upload.NopJournal{}
	if cfg.DB.Enabled() {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, a.abort(fmt.Errorf("bootstrap database: %w", err))
		}
		a.closers = append(a.closers, dbClient.Close)
		checks["database"] = dbClient
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return nil, a.abort(fmt.Errorf("run dev migrations: %w", err))
		}
		a.records = uploadlog.NewRepository(dbClient.DB())
		journal = a.records
	}

	var cache identity.Cache = identity.NewMemoryCache(cfg.Identity.CacheCapacity, cfg.Identity.CacheTTL)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, a.abort(fmt.Errorf("bootstrap redis: %w", err))
		}
		a.closers = append(a.closers, redisClient.Close)
		checks["redis"] = redisClient
		cache = identity.NewRedisCache(redisClient, cfg.Identity.CacheTTL)
	}

	registry := prometheus.NewRegistry()
	uploadMetrics := metrics.NewUploadMetrics(registry)
	if cfg.Metrics.Addr != "" {
		a.metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newMetricsRouter(registry, checks),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped unexpectedly", err)
			}
		}()
		logg.Info(logg.WithField(ctx, "addr", cfg.Metrics.Addr), "metrics server listening")
	}

	client := transport.NewClient(cfg.Auth, cfg.Upload.HTTPTimeout, transport.WithLogger(logg))

	pipeline, err := upload.NewPipeline(client, upload.PipelineConfig{
		Endpoint:     cfg.Upload.Endpoint,
		Origin:       cfg.Upload.Origin,
		SegmentBytes: cfg.Upload.SegmentBytes,
		Poll: upload.PollPolicy{
			DefaultInterval: cfg.Upload.PollInterval,
			MaxAttempts:     cfg.Upload.PollMaxAttempts,
			MaxWait:         cfg.Upload.PollMaxWait,
		},
	}, upload.WithPipelineLogger(logg), upload.WithPipelineMetrics(uploadMetrics))
	if err != nil {
		return nil, a.abort(err)
	}

	defaultCategory, err := enums.ParseMediaCategory(cfg.Upload.DefaultCategory)
	if err != nil {
		return nil, a.abort(err)
	}

	a.uploader, err = upload.NewUploader(
		media.NewResolver(media.NewFFProbe(cfg.Upload.FFProbePath)),
		pipeline,
		upload.WithJournal(journal),
		upload.WithLogger(logg),
		upload.WithMetrics(uploadMetrics),
		upload.WithDefaultCategory(defaultCategory),
		upload.WithCategoryPicker(media.Descriptor.DMCategory),
	)
	if err != nil {
		return nil, a.abort(err)
	}

	a.sender, err = messages.NewSender(client, a.uploader, cfg.API.BaseURL, logg)
	if err != nil {
		return nil, a.abort(err)
	}

	a.users, err = identity.NewResolver(cache, identity.NewProfileLookup(client, cfg.API.BaseURL).Lookup, logg)
	if err != nil {
		return nil, a.abort(err)
	}
	return a, nil
}

func newMetricsRouter(registry *prometheus.Registry, checks map[string]db.Pinger) http.Handler {
	r := chi.NewRouter()
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
			writeStatus(w, http.StatusOK, map[string]any{"status": "live"})
		})
		r.Get("/ready", healthReady(checks))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

// healthReady pings every configured backing store; any failure reports 503.
func healthReady(checks map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		failed := make([]string, 0)
		for name, pinger := range checks {
			if err := pinger.Ping(ctx); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			sort.Strings(failed)
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ready"})
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// run uploads the file and, when a recipient is given, sends it as a direct message.
func (a *app) run(ctx context.Context, opts options, out io.Writer) error {
	if opts.list != "" {
		return a.list(ctx, opts, out)
	}

	category, err := enums.ParseMediaCategory(opts.category)
	if err != nil {
		return err
	}

	if !opts.wantsMessage() {
		mediaID, err := a.uploader.UploadMedia(ctx, opts.file, category)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, mediaID)
		return err
	}

	conversationID := opts.conversation
	if conversationID == "" {
		recipientID, err := a.users.UserID(ctx, opts.to)
		if err != nil {
			a.logg.Error(ctx, "failed to resolve recipient", err)
			return err
		}
		conversationID, err = messages.OneToOneConversationID(a.cfg.Auth.SelfUserID, recipientID)
		if err != nil {
			a.logg.Error(ctx, "failed to build conversation id", err)
			return err
		}
	}

	result, err := a.sender.Send(ctx, messages.SendParams{
		ConversationID: conversationID,
		Text:           opts.text,
		MediaPath:      opts.file,
		MediaCategory:  category,
	})
	if err != nil {
		a.logg.Error(ctx, "failed to send direct message", err)
		return err
	}
	for _, id := range result.MessageIDs() {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) list(ctx context.Context, opts options, out io.Writer) error {
	if a.records == nil {
		return fmt.Errorf("%s is not configured", config.EnvDBDSN)
	}
	phase, err := enums.ParseUploadPhase(opts.list)
	if err != nil {
		return err
	}
	records, next, err := a.records.ListByPhase(ctx, phase, uploadlog.Page{Cursor: opts.cursor})
	if err != nil {
		return err
	}
	for _, record := range records {
		mediaID := "-"
		if record.MediaID != nil {
			mediaID = *record.MediaID
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d\n", record.ID, record.CreatedAt.Format(time.RFC3339), mediaID, record.FilePath, record.StatusPolls); err != nil {
			return err
		}
	}
	if next != "" {
		_, err = fmt.Fprintf(out, "next cursor: %s\n", next)
	}
	return err
}

func (a *app) close() error {
	var errs []error
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.metricsServer.Shutdown(ctx))
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return multierr.Combine(errs...)
}

func (a *app) abort(err error) error {
	return multierr.Append(err, a.close())
}
