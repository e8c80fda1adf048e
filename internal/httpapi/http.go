package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"voicelens/internal/config"
	"voicelens/internal/metrics"
	"voicelens/internal/store"
	"voicelens/queue"
	"voicelens/registry"
	"voicelens/vcp"
)

// Processor runs one payload through the normalization pipeline. Implemented
// by the application layer.
type Processor interface {
	Process(ctx context.Context, vendor string, payload map[string]any) (*vcp.Message, vcp.Result, error)
}

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg   config.Config
	store *store.Store
	proc  Processor
	mig   *vcp.Migrator
	reg   *registry.Registry
	queue *queue.Queue
}

func NewRouter(cfg config.Config, st *store.Store, proc Processor, mig *vcp.Migrator, reg *registry.Registry, q *queue.Queue) *Router {
	return &Router{cfg: cfg, store: st, proc: proc, mig: mig, reg: reg, queue: q}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/normalize", r.normalize)
	mux.HandleFunc("/api/migrate", r.migrate)
	mux.HandleFunc("/api/records", r.records)
	mux.HandleFunc("/api/records/", r.recordDetail)
	mux.HandleFunc("/api/quarantine", r.quarantine)
	mux.HandleFunc("/api/vendors", r.vendors)
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/metrics", r.metrics)
}

func (r *Router) normalize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Vendor  string         `json:"vendor"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Vendor == "" || body.Payload == nil {
		http.Error(w, "vendor and payload are required", http.StatusBadRequest)
		return
	}
	msg, result, err := r.proc.Process(req.Context(), body.Vendor, body.Payload)
	switch {
	case errors.Is(err, registry.ErrVendorNotFound):
		respondError(w, http.StatusNotFound, err, result)
		return
	case errors.Is(err, vcp.ErrValidation), errors.Is(err, vcp.ErrPathConflict):
		respondError(w, http.StatusUnprocessableEntity, err, result)
		return
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, err, result)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err, result)
		return
	}
	respondJSON(w, map[string]any{"record": msg, "warnings": result.Warnings})
}

func (r *Router) migrate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Record        *vcp.Message `json:"record"`
		TargetVersion string       `json:"target_version"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Record == nil {
		http.Error(w, "record is required", http.StatusBadRequest)
		return
	}
	target, err := vcp.ParseVersion(body.TargetVersion)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := body.Record
	if target != out.SchemaVersion {
		if vcp.Newer(target, out.SchemaVersion) {
			out, err = r.mig.Upgrade(out, target)
		} else {
			out, err = r.mig.Downgrade(out, target)
		}
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, vcp.ErrUnsupportedVersion) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		metrics.IncMigrations()
	}
	stamped, err := vcp.StampChecksum(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"record": stamped})
}

func (r *Router) records(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	list, err := r.store.ListRecords(req.Context(), req.URL.Query().Get("vendor"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (r *Router) recordDetail(w http.ResponseWriter, req *http.Request) {
	callID := strings.TrimPrefix(req.URL.Path, "/api/records/")
	if callID == "" {
		http.NotFound(w, req)
		return
	}
	rec, err := r.store.LatestRecord(req.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, rec)
}

func (r *Router) quarantine(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListQuarantine(req.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (r *Router) vendors(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, map[string]any{"vendors": r.reg.Names()})
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	counts, _ := r.store.CountRecords(req.Context())
	respondJSON(w, map[string]any{
		"schema_version": r.cfg.SchemaVersion,
		"vendors":        r.reg.Names(),
		"records":        counts,
		"queue":          r.queue.Stats(),
		"workers":        r.cfg.WorkerCount,
	})
}

func (r *Router) metrics(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, metrics.Snapshot())
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !r.queue.Healthy() {
		http.Error(w, "worker pool not started", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, status int, err error, result vcp.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"error": err.Error()}
	if len(result.Errors) > 0 {
		body["issues"] = result.Errors
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write json: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
