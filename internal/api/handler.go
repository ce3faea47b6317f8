package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/confiabar/confiabar/internal/cnpj"
	"github.com/confiabar/confiabar/internal/domain"
	"github.com/confiabar/confiabar/internal/lookup"
	"github.com/confiabar/confiabar/internal/provider"
	"github.com/confiabar/confiabar/internal/scoring"
	"github.com/confiabar/confiabar/internal/store"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	store      domain.Store
	cache      domain.Cache
	bus        domain.EventBus
	lookups    *lookup.Service
	ruleEngine *scoring.RuleEngine
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(st domain.Store, cache domain.Cache, bus domain.EventBus, lookups *lookup.Service, ruleEngine *scoring.RuleEngine, version string) *Handler {
	return &Handler{
		store:      st,
		cache:      cache,
		bus:        bus,
		lookups:    lookups,
		ruleEngine: ruleEngine,
		version:    version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Lookup handles GET /lookup/{cnpj}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.lookups.Lookup(r.Context(), chi.URLParam(r, "cnpj"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record":     result.Record,
		"origin":     result.Origin,
		"identifier": cnpj.Format(result.Record.Identifier),
	})
}

// LookupCEP handles GET /cep/{cep}.
func (h *Handler) LookupCEP(w http.ResponseWriter, r *http.Request) {
	result, err := h.lookups.LookupCEP(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		if errors.Is(err, provider.ErrCEPNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "postal code not found",
			})
			return
		}
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Score handles GET /score/{cnpj}: lookup plus community aggregates
// through the scoring engine and any custom alert rules.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.lookups.Lookup(ctx, chi.URLParam(r, "cnpj"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	identifier := result.Record.Identifier

	stats, err := h.store.ReportStats(ctx, identifier)
	if err != nil {
		slog.Error("failed to aggregate reports", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to aggregate community reports",
		})
		return
	}

	penalties, err := h.store.CountPenalties(ctx, identifier)
	if err != nil {
		slog.Error("failed to count penalties", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to count penalties",
		})
		return
	}

	in := scoring.Input{
		Record:       result.Record,
		ReportStats:  stats,
		PenaltyCount: penalties,
		Now:          time.Now().UTC(),
	}
	score := scoring.Score(in)
	if h.ruleEngine != nil {
		h.ruleEngine.Apply(in, score)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"score":  score,
		"record": result.Record,
		"origin": result.Origin,
	})
}

// CreateReportRequest is the request body for POST /establishments/{cnpj}/reports.
type CreateReportRequest struct {
	Cleanliness   int    `json:"cleanliness"`
	SealedBottles bool   `json:"sealedBottles"`
	InvoiceIssued bool   `json:"invoiceIssued"`
	NormalPrices  bool   `json:"normalPrices"`
	Comment       string `json:"comment,omitempty"`
}

// CreateReport handles POST /establishments/{cnpj}/reports.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier, ok := h.establishmentParam(w, r)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Cleanliness < 1 || req.Cleanliness > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "cleanliness must be between 1 and 5",
		})
		return
	}

	report := &domain.UserReport{
		ID:            uuid.NewString(),
		Identifier:    identifier,
		Cleanliness:   req.Cleanliness,
		SealedBottles: req.SealedBottles,
		InvoiceIssued: req.InvoiceIssued,
		NormalPrices:  req.NormalPrices,
		Comment:       req.Comment,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.store.SaveReport(ctx, report); err != nil {
		slog.Error("failed to save report", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save report",
		})
		return
	}

	h.publishMutation(ctx, domain.TopicReportCreated, identifier, report.ID)

	writeJSON(w, http.StatusCreated, report)
}

// ListReports handles GET /establishments/{cnpj}/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	identifier, ok := h.establishmentParam(w, r)
	if !ok {
		return
	}

	reports, err := h.store.ListReports(r.Context(), identifier)
	if err != nil {
		slog.Error("failed to list reports", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list reports",
		})
		return
	}

	stats, err := h.store.ReportStats(r.Context(), identifier)
	if err != nil {
		slog.Error("failed to aggregate reports", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to aggregate community reports",
		})
		return
	}

	if reports == nil {
		reports = []*domain.UserReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"stats":   stats,
	})
}

// DeleteReport handles DELETE /establishments/{cnpj}/reports/{id}.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier, ok := h.establishmentParam(w, r)
	if !ok {
		return
	}
	reportID := chi.URLParam(r, "id")

	if err := h.store.DeleteReport(ctx, identifier, reportID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "report not found",
			})
			return
		}
		slog.Error("failed to delete report", "identifier", identifier, "report_id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete report",
		})
		return
	}

	h.publishMutation(ctx, domain.TopicReportDeleted, identifier, reportID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "report deleted",
	})
}

// CreatePenaltyRequest is the request body for POST /establishments/{cnpj}/penalties.
type CreatePenaltyRequest struct {
	Reason  string `json:"reason,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// CreatePenalty handles POST /establishments/{cnpj}/penalties.
func (h *Handler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier, ok := h.establishmentParam(w, r)
	if !ok {
		return
	}

	var req CreatePenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	penalty := &domain.PenaltyReport{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Reason:     req.Reason,
		Comment:    req.Comment,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.store.SavePenalty(ctx, penalty); err != nil {
		slog.Error("failed to save penalty", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save penalty",
		})
		return
	}

	h.publishMutation(ctx, domain.TopicPenaltyCreated, identifier, penalty.ID)

	writeJSON(w, http.StatusCreated, penalty)
}

// ListPenalties handles GET /establishments/{cnpj}/penalties.
func (h *Handler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	identifier, ok := h.establishmentParam(w, r)
	if !ok {
		return
	}

	penalties, err := h.store.ListPenalties(r.Context(), identifier)
	if err != nil {
		slog.Error("failed to list penalties", "identifier", identifier, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list penalties",
		})
		return
	}

	if penalties == nil {
		penalties = []*domain.PenaltyReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"penalties": penalties,
		"count":     len(penalties),
	})
}

// History handles GET /history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	entries, err := h.store.ListSearches(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list search history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list search history",
		})
		return
	}

	if entries == nil {
		entries = []*domain.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

// ClearHistory handles DELETE /history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearSearches(r.Context()); err != nil {
		slog.Error("failed to clear search history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to clear search history",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "history cleared",
	})
}

// Stats handles GET /stats, serving the last aggregate snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		slog.Error("failed to read aggregate stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /export: a snapshot of the service-owned data for
// backup or offline inspection.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.GetStats(ctx)
	if err != nil {
		slog.Error("failed to read aggregate stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}

	reports, err := h.store.ListAllReports(ctx)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}

	penalties, err := h.store.ListAllPenalties(ctx)
	if err != nil {
		slog.Error("failed to list penalties", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}

	history, err := h.store.ListSearches(ctx, 0)
	if err != nil {
		slog.Error("failed to list search history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}

	rules, err := h.store.ListAlertRules(ctx)
	if err != nil {
		slog.Error("failed to list alert rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}

	if reports == nil {
		reports = []*domain.UserReport{}
	}
	if penalties == nil {
		penalties = []*domain.PenaltyReport{}
	}
	if history == nil {
		history = []*domain.SearchEntry{}
	}
	if rules == nil {
		rules = []*domain.AlertRuleConfig{}
	}

	w.Header().Set("Content-Disposition", "attachment; filename=confiabar-export.json")
	writeJSON(w, http.StatusOK, map[string]any{
		"exportedAt": time.Now().UTC(),
		"version":    h.version,
		"stats":      stats,
		"reports":    reports,
		"penalties":  penalties,
		"history":    history,
		"alertRules": rules,
	})
}

// ListRules returns all alert rules loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.ruleEngine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// CreateRuleRequest is the request body for creating an alert rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Message     string `json:"message"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new alert rule and saves it to the database.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, expression, and message are required",
		})
		return
	}

	rule := &domain.AlertRuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Message:     req.Message,
		Enabled:     req.Enabled,
	}

	if err := h.ruleEngine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if err := h.store.SaveAlertRule(ctx, rule); err != nil {
		slog.Error("failed to save alert rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("alert rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all alert rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.store.ListAlertRules(ctx)
	if err != nil {
		slog.Error("failed to list alert rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.ruleEngine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("alert rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// establishmentParam validates the {cnpj} path parameter and writes the
// error response itself when invalid.
func (h *Handler) establishmentParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	identifier := cnpj.Normalize(chi.URLParam(r, "cnpj"))
	if !cnpj.IsValid(identifier) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CNPJ",
		})
		return "", false
	}
	return identifier, true
}

// publishMutation emits a store mutation event; publish failures are
// logged, never surfaced.
func (h *Handler) publishMutation(ctx context.Context, topic, identifier, id string) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"identifier": identifier,
		"id":         id,
	})
	if err := h.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish mutation event",
			"topic", topic,
			"identifier", identifier,
			"error", err,
		)
	}
}

// writeLookupError maps orchestrator errors onto HTTP responses.
func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, lookup.ErrInvalidIdentifier) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid identifier",
		})
		return
	}

	var cascade *provider.CascadeError
	if errors.As(err, &cascade) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "all providers unavailable",
			"details": cascade.Error(),
		})
		return
	}

	slog.Error("lookup failed", "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{
		"error": "lookup failed",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
