package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type stubResourceClient struct {
	mu sync.Mutex

	subscriptions []Subscription
	listErr       error
	createErr     error
	batchErr      error
	responses     map[string]BatchResponse

	listCalls   int
	createCalls []CreateSubscriptionInput
	batchCalls  [][]BatchStep
}

func (c *stubResourceClient) ListSubscriptions(context.Context) ([]Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]Subscription(nil), c.subscriptions...), nil
}

func (c *stubResourceClient) CreateSubscription(_ context.Context, in CreateSubscriptionInput) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls = append(c.createCalls, in)
	if c.createErr != nil {
		return Subscription{}, c.createErr
	}
	return Subscription{
		ID:                 "sub_1",
		Resource:           in.Resource,
		ChangeType:         ChangeTypeCreated,
		NotificationURL:    in.NotificationURL,
		ExpirationDateTime: in.ExpirationDateTime,
		ClientState:        in.ClientState,
	}, nil
}

func (c *stubResourceClient) SubmitBatch(_ context.Context, steps []BatchStep) (map[string]BatchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchCalls = append(c.batchCalls, append([]BatchStep(nil), steps...))
	if c.batchErr != nil {
		return nil, c.batchErr
	}
	return c.responses, nil
}

type stubLoggerProvider struct {
	logger Logger
}

func (p stubLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Callback.PublicBaseURL = "https://hooks.example.com"
	return cfg
}

func newTestService(t *testing.T, client ResourceClient, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithResourceClient(client),
		WithClock(func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		}),
	}
	svc, err := NewService(testConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func jsonBody(t *testing.T, value any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return raw
}
