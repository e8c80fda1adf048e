package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"voicelens/internal/config"
	"voicelens/internal/events"
	"voicelens/internal/httpapi"
	"voicelens/internal/metrics"
	"voicelens/internal/store"
	"voicelens/internal/watch"
	"voicelens/normalize"
	"voicelens/queue"
	"voicelens/registry"
	"voicelens/vcp"
)

// App wires the record engine components together.
type App struct {
	cfg     config.Config
	store   *store.Store
	reg     *registry.Registry
	engine  *normalize.Engine
	mig     *vcp.Migrator
	bus     *events.Bus
	queue   *queue.Queue
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	reg := registry.Default()
	if cfg.VendorCatalog != "" {
		reg, err = registry.LoadFile(cfg.VendorCatalog)
		if err != nil {
			return nil, err
		}
	}
	version, err := vcp.ParseVersion(cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:    cfg,
		store:  st,
		reg:    reg,
		engine: normalize.New(reg, normalize.WithVersion(version)),
		mig:    vcp.NewMigrator(nil),
		bus:    events.NewBus(),
	}
	a.queue = queue.New(cfg.QueueSize, cfg.WorkerCount, time.Duration(cfg.JobTimeoutSec)*time.Second, a.handleJob)
	a.watcher = watch.New(cfg, a)
	a.mux = http.NewServeMux()
	router := httpapi.NewRouter(cfg, st, a, a.mig, reg, a.queue)
	router.Register(a.mux)
	return a, nil
}

// Run starts workers, watcher, and HTTP server.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Backfill(ctx); err != nil {
		log.Printf("backfill: %v", err)
	}
	srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

// Process runs one payload through the pipeline and persists the outcome.
// Fatal failures land in quarantine; the typed error is returned either way
// so callers can distinguish reject from retry.
func (a *App) Process(ctx context.Context, vendor string, payload map[string]any) (*vcp.Message, vcp.Result, error) {
	seq, err := a.nextSequence(ctx, vendor, payload)
	if err != nil {
		return nil, vcp.Result{}, err
	}
	msg, result, err := a.engine.Process(normalize.Request{Vendor: vendor, Payload: payload, Sequence: &seq})
	if err != nil {
		if errors.Is(err, vcp.ErrValidation) || errors.Is(err, vcp.ErrPathConflict) {
			metrics.IncQuarantined()
			if qerr := a.store.Quarantine(ctx, vendor, err.Error(), payload, config.Now()); qerr != nil {
				log.Printf("quarantine vendor=%s: %v", vendor, qerr)
			}
			a.bus.Publish(events.RecordRejected{Vendor: vendor, Reason: err.Error()})
		}
		metrics.IncFailed()
		return nil, result, err
	}
	if err := a.store.SaveRecord(ctx, msg, config.Now()); err != nil {
		metrics.IncFailed()
		return nil, result, err
	}
	metrics.IncNormalized()
	metrics.AddWarnings(len(result.Warnings))
	a.bus.Publish(events.RecordProcessed{
		Vendor:        vendor,
		CallID:        msg.Payload.Call.CallID,
		SchemaVersion: string(msg.SchemaVersion),
		Sequence:      seq,
		Warnings:      len(result.Warnings),
	})
	log.Printf("normalized vendor=%s call=%s seq=%d warnings=%d", vendor, msg.Payload.Call.CallID, seq, len(result.Warnings))
	return msg, result, nil
}

// nextSequence allocates the per-call counter. The call_id is resolved the
// same way the builder resolves it so retried deliveries share a stream.
func (a *App) nextSequence(ctx context.Context, vendor string, payload map[string]any) (int64, error) {
	partial, _, err := a.engine.Map(vendor, payload)
	if err != nil {
		return 0, err
	}
	callID, _ := vcp.Get(partial, "call.call_id")
	id, _ := callID.(string)
	if id == "" {
		id = normalize.DeriveCallID(payload)
	}
	return a.store.NextSequence(ctx, id)
}

// handleJob is the queue handler: every dequeued payload funnels through the
// same ingest path as synchronous HTTP submissions.
func (a *App) handleJob(ctx context.Context, req normalize.Request) error {
	_, _, err := a.Process(ctx, req.Vendor, req.Payload)
	return err
}

// SubmitFile reads a payload file from the inbox and enqueues it for
// asynchronous processing. The vendor comes from the file name. A short
// retry window rides out bursts before the payload is declared dropped.
func (a *App) SubmitFile(ctx context.Context, path string) error {
	base := filepath.Base(path)
	vendor, rest := watch.SplitPayloadName(base)
	if vendor == "" {
		return fmt.Errorf("payload file %s has no vendor prefix", base)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("payload file %s: %w", base, err)
	}
	job := queue.Job{
		ID:      rest,
		Request: normalize.Request{Vendor: vendor, Payload: payload},
	}
	enqueued, dropped := a.queue.EnqueueWithRetry(ctx, job, 2*time.Second, 100*time.Millisecond)
	if dropped {
		return fmt.Errorf("queue full, payload %s dropped", base)
	}
	if !enqueued {
		return ctx.Err()
	}
	return nil
}

// Backfill submits payload files already in the inbox.
func (a *App) Backfill(ctx context.Context) error { return a.watcher.Backfill(ctx) }

func (a *App) Bus() *events.Bus    { return a.bus }
func (a *App) Store() *store.Store { return a.store }
func (a *App) Mux() *http.ServeMux { return a.mux }
func (a *App) Close() error        { return a.store.Close() }
