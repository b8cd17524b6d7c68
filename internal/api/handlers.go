package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/notify"
)

// FeedService is the summary and profile surface the handlers use
type FeedService interface {
	Summary(ctx context.Context, userID, wallet string) (*models.Summary, error)
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
	Opened(ctx context.Context, userID string) (time.Time, error)
	MarkShown(ctx context.Context, userID string, dedupeKeys []string) error
	UpdatePreferences(ctx context.Context, p *models.UserProfile) error
}

// PulseService returns the encoded daily pulse
type PulseService interface {
	Get(ctx context.Context, userID, timezone string, lastOpenedAt *time.Time) ([]byte, error)
}

// Notifier decides whether a push notification may be sent
type Notifier interface {
	Request(ctx context.Context, userID string, category models.NotificationCategory, timezone string, dnd models.DNDWindow) (notify.Decision, error)
}

// HealthSource returns the provider status snapshot
type HealthSource interface {
	Snapshot(ctx context.Context) models.ProviderStatus
}

// Pinger is a backing store that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	feed           FeedService
	pulses         PulseService
	notifier       Notifier
	health         HealthSource
	db             Pinger
	redis          Pinger
	defaultDND     models.DNDWindow
	requestTimeout time.Duration
}

// Options holds the optional handler dependencies and defaults
type Options struct {
	DB             Pinger
	Redis          Pinger // nil when running without Redis
	DefaultDND     models.DNDWindow
	RequestTimeout time.Duration
}

// NewHandler creates a new Handler
func NewHandler(feed FeedService, pulses PulseService, notifier Notifier, health HealthSource, opts Options) *Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		feed:           feed,
		pulses:         pulses,
		notifier:       notifier,
		health:         health,
		db:             opts.DB,
		redis:          opts.Redis,
		defaultDND:     opts.DefaultDND,
		requestTimeout: timeout,
	}
}

// GetSummary handles GET /users/{userID}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	userID := mux.Vars(r)["userID"]
	summary, err := h.feed.Summary(ctx, userID, r.URL.Query().Get("wallet"))
	if err != nil {
		log.Printf("Summary for %s failed: %v", userID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", summary.CachePolicy.StaleTimeSec))
	respondJSON(w, http.StatusOK, summary)
}

// GetPulse handles GET /users/{userID}/pulse
func (h *Handler) GetPulse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	userID := mux.Vars(r)["userID"]
	profile, err := h.feed.Profile(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := h.pulses.Get(ctx, userID, profile.Timezone, profile.LastOpenedAt)
	if err != nil {
		log.Printf("Pulse for %s failed: %v", userID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Stored bytes are returned as-is so repeat reads are identical.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// MarkOpened handles POST /users/{userID}/opened
func (h *Handler) MarkOpened(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	userID := mux.Vars(r)["userID"]
	at, err := h.feed.Opened(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]time.Time{"last_opened_at": at})
}

// MarkShown handles POST /users/{userID}/shown
func (h *Handler) MarkShown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DedupeKeys []string `json:"dedupe_keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.DedupeKeys) == 0 {
		http.Error(w, "dedupe_keys is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.feed.MarkShown(ctx, mux.Vars(r)["userID"], req.DedupeKeys); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestNotification handles POST /users/{userID}/notifications
func (h *Handler) RequestNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category models.NotificationCategory `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	userID := mux.Vars(r)["userID"]
	profile, err := h.feed.Profile(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dnd := profile.DND
	if dnd.Start == "" && dnd.End == "" {
		dnd = h.defaultDND
	}

	decision, err := h.notifier.Request(ctx, userID, req.Category, profile.Timezone, dnd)
	if errors.Is(err, notify.ErrUnknownCategory) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

type preferencesRequest struct {
	Timezone    *string           `json:"timezone"`
	DND         *models.DNDWindow `json:"dnd"`
	Onboarded   *bool             `json:"onboarded"`
	SavedRefs   []string          `json:"saved_refs"`
	AlertTags   []string          `json:"alert_tags"`
	WalletRoles map[string]string `json:"wallet_roles"`
}

// UpdatePreferences handles PUT /users/{userID}/preferences. Omitted fields
// keep their stored values.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
	}
	if req.DND != nil {
		if err := notify.ValidateDND(*req.DND); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	userID := mux.Vars(r)["userID"]
	profile, err := h.feed.Profile(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	applyPreferences(profile, req, h.defaultDND)

	if err := h.feed.UpdatePreferences(ctx, profile); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func applyPreferences(p *models.UserProfile, req preferencesRequest, defaultDND models.DNDWindow) {
	if req.Timezone != nil {
		p.Timezone = *req.Timezone
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if req.DND != nil {
		p.DND = *req.DND
	}
	if p.DND.Start == "" && p.DND.End == "" {
		p.DND = defaultDND
	}
	if req.Onboarded != nil {
		p.Onboarded = *req.Onboarded
	}
	if req.SavedRefs != nil {
		p.SavedRefs = req.SavedRefs
	}
	if req.AlertTags != nil {
		p.AlertTags = req.AlertTags
	}
	if req.WalletRoles != nil {
		p.WalletRoles = req.WalletRoles
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{}
	allHealthy := true

	// Check database
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
		"providers": h.health.Snapshot(ctx),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
