package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
)

const (
	ValidationTokenParam = "validationToken"

	defaultMaxBodyBytes int64 = 1 << 20 // 1 MiB
	defaultReplayTTL          = 10 * time.Minute
)

// StartResponse is the body returned once a notification orchestration is
// started.
type StartResponse struct {
	InstanceID string `json:"instanceId"`
}

type Handler struct {
	Starter       core.OrchestrationStarter
	Orchestration string
	Verifier      ClientStateVerifier
	Ledger        core.ReplayLedger
	ReplayTTL     time.Duration
	MaxBodyBytes  int64
	Logger        core.Logger
}

type Option func(*Handler)

func WithVerifier(verifier ClientStateVerifier) Option {
	return func(h *Handler) {
		h.Verifier = verifier
	}
}

// WithReplayLedger drops notifications already seen within ttl.
func WithReplayLedger(ledger core.ReplayLedger, ttl time.Duration) Option {
	return func(h *Handler) {
		h.Ledger = ledger
		h.ReplayTTL = ttl
	}
}

func WithMaxBodyBytes(limit int64) Option {
	return func(h *Handler) {
		h.MaxBodyBytes = limit
	}
}

func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		h.Logger = logger
	}
}

func NewHandler(starter core.OrchestrationStarter, opts ...Option) *Handler {
	handler := &Handler{
		Starter:       starter,
		Orchestration: core.OrchestrationSubscriptionNotification,
		ReplayTTL:     defaultReplayTTL,
		MaxBodyBytes:  defaultMaxBodyBytes,
		Logger:        glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Routes mounts the notification endpoint on path for both verbs the
// provider uses.
func (h *Handler) Routes(r chi.Router, path string) {
	if strings.TrimSpace(path) == "" {
		path = core.DefaultCallbackPath
	}
	r.Post(path, h.ServeHTTP)
	r.Get(path, h.ServeHTTP)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := r.URL.Query().Get(ValidationTokenParam); token != "" {
		h.log(ctx, "info", "subscription validation handshake", map[string]any{"token_length": len(token)})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, token)
		return
	}

	collection, err := h.decode(w, r)
	if err != nil {
		h.log(ctx, "warn", "notification payload ignored", map[string]any{"error": err.Error()})
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if collection.Empty() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	received := len(collection.Value)
	var claimed []string
	collection.Value, claimed = h.filter(ctx, collection.Value)
	if collection.Empty() {
		h.log(ctx, "info", "notifications dropped before orchestration", map[string]any{"received": received})
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if h.Starter == nil {
		h.release(ctx, claimed)
		h.log(ctx, "error", "notification orchestration starter is not configured", nil)
		http.Error(w, "orchestration starter unavailable", http.StatusInternalServerError)
		return
	}
	instanceID, err := h.Starter.StartNew(ctx, h.orchestration(), collection)
	if err != nil {
		h.release(ctx, claimed)
		h.log(ctx, "error", "notification orchestration start failed", map[string]any{
			"error":         err.Error(),
			"notifications": len(collection.Value),
		})
		http.Error(w, "orchestration start failed", http.StatusInternalServerError)
		return
	}

	h.log(ctx, "info", "started orchestration", map[string]any{
		"instance_id":   instanceID,
		"orchestration": h.orchestration(),
		"notifications": len(collection.Value),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(StartResponse{InstanceID: instanceID})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (core.NotificationCollection, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return core.NotificationCollection{}, nil
	}
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return core.NotificationCollection{}, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return core.NotificationCollection{}, nil
	}
	var collection core.NotificationCollection
	if err := json.Unmarshal(body, &collection); err != nil {
		return core.NotificationCollection{}, errors.New("webhooks: undecodable notification payload")
	}
	return collection, nil
}

// filter applies clientState verification and replay suppression, keeping
// the relative order of the notifications that survive. It also returns the
// replay keys it claimed.
func (h *Handler) filter(ctx context.Context, notifications []core.ChangeNotification) ([]core.ChangeNotification, []string) {
	kept := make([]core.ChangeNotification, 0, len(notifications))
	var claimedKeys []string
	for _, notification := range notifications {
		if h.Verifier != nil && !h.Verifier.Verify(ctx, notification) {
			h.log(ctx, "warn", "notification rejected", map[string]any{
				"reason":          "client_state",
				"subscription_id": notification.SubscriptionID,
			})
			continue
		}
		if h.Ledger != nil {
			key := ReplayKey(notification)
			claimed, err := h.Ledger.Claim(ctx, key, h.ReplayTTL)
			switch {
			case err != nil:
				h.log(ctx, "warn", "replay ledger claim failed", map[string]any{"error": err.Error()})
			case !claimed:
				h.log(ctx, "debug", "notification deduped", map[string]any{
					"subscription_id": notification.SubscriptionID,
					"resource":        notification.Resource,
				})
				continue
			default:
				claimedKeys = append(claimedKeys, key)
			}
		}
		kept = append(kept, notification)
	}
	return kept, claimedKeys
}

// release returns claims taken for a delivery that never started, so the
// provider's retry is not mistaken for a replay.
func (h *Handler) release(ctx context.Context, keys []string) {
	if h.Ledger == nil {
		return
	}
	for _, key := range keys {
		if err := h.Ledger.Release(ctx, key); err != nil {
			h.log(ctx, "warn", "replay ledger release failed", map[string]any{"error": err.Error()})
		}
	}
}

// ReplayKey identifies a notification across redeliveries.
func ReplayKey(notification core.ChangeNotification) string {
	if id := strings.TrimSpace(notification.ID); id != "" {
		return notification.SubscriptionID + ":" + id
	}
	return notification.SubscriptionID + ":" + notification.ChangeType + ":" + notification.Resource
}

func (h *Handler) orchestration() string {
	if name := strings.TrimSpace(h.Orchestration); name != "" {
		return name
	}
	return core.OrchestrationSubscriptionNotification
}

func (h *Handler) log(ctx context.Context, level string, message string, fields map[string]any) {
	if h == nil || h.Logger == nil {
		return
	}
	core.LogWithLevel(ctx, h.Logger, level, message, fields)
}

var _ http.Handler = (*Handler)(nil)
