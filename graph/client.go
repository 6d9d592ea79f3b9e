package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/transport"
)

const maxListPages = 100

type Client struct {
	baseURL      string
	maxBatchSize int
	timeout      time.Duration
	rest         *transport.RESTAdapter
	throttle     core.ThrottlePolicy
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for every call.
func WithHTTPClient(doer transport.HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.rest.Client = doer
		}
	}
}

// WithThrottlePolicy gates every call through policy. Buckets are named
// graph.<operation>.
func WithThrottlePolicy(policy core.ThrottlePolicy) Option {
	return func(c *Client) {
		c.throttle = policy
	}
}

func NewClient(cfg core.ProviderConfig, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("graph: token source is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = core.DefaultProviderBaseURL
	}
	maxBatchSize := cfg.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = core.DefaultMaxBatchSize
	}
	client := &Client{
		baseURL:      baseURL,
		maxBatchSize: maxBatchSize,
		timeout:      cfg.Timeout,
		rest:         transport.NewRESTAdapter(nil, BearerSigner{Source: tokens}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type subscriptionPage struct {
	Value    []core.Subscription `json:"value"`
	NextLink string              `json:"@odata.nextLink,omitempty"`
}

// ListSubscriptions returns every subscription visible to the caller,
// following @odata.nextLink until the provider stops paging.
func (c *Client) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	out := []core.Subscription{}
	next := c.baseURL + "/subscriptions"
	for page := 0; next != ""; page++ {
		if page >= maxListPages {
			return nil, core.NewTransportFailure(
				fmt.Sprintf("graph: list subscriptions exceeded %d pages", maxListPages),
				0,
				map[string]any{"operation": "list_subscriptions"},
			)
		}
		var decoded subscriptionPage
		if err := c.call(ctx, "list_subscriptions", http.MethodGet, next, nil, &decoded, http.StatusOK); err != nil {
			return nil, err
		}
		out = append(out, decoded.Value...)
		link, err := c.nextPage(decoded.NextLink)
		if err != nil {
			return nil, err
		}
		next = link
	}
	return out, nil
}

// nextPage resolves an @odata.nextLink against the base URL. Links that
// leave the provider's scheme and host are refused so the bearer token is
// never sent elsewhere.
func (c *Client) nextPage(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil
	}
	meta := map[string]any{"operation": "list_subscriptions", "next_link": link}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", core.WrapTransportFailure(err, "graph: invalid base url", 0, meta)
	}
	target, err := base.Parse(link)
	if err != nil {
		return "", core.WrapTransportFailure(err, "graph: invalid next link", 0, meta)
	}
	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return "", core.NewTransportFailure("graph: next link points outside the provider host", 0, meta)
	}
	return target.String(), nil
}

type createSubscriptionBody struct {
	ChangeType         string `json:"changeType"`
	NotificationURL    string `json:"notificationUrl"`
	Resource           string `json:"resource"`
	ExpirationDateTime string `json:"expirationDateTime"`
	ClientState        string `json:"clientState,omitempty"`
}

func (c *Client) CreateSubscription(ctx context.Context, in core.CreateSubscriptionInput) (core.Subscription, error) {
	payload, err := json.Marshal(createSubscriptionBody{
		ChangeType:         core.ChangeTypeCreated,
		NotificationURL:    in.NotificationURL,
		Resource:           in.Resource,
		ExpirationDateTime: in.ExpirationDateTime.UTC().Format(time.RFC3339Nano),
		ClientState:        in.ClientState,
	})
	if err != nil {
		return core.Subscription{}, core.WrapTransportFailure(err, "graph: encode subscription", 0, nil)
	}
	var created core.Subscription
	if err := c.call(ctx, "create_subscription", http.MethodPost, c.baseURL+"/subscriptions", payload, &created,
		http.StatusCreated, http.StatusOK); err != nil {
		return core.Subscription{}, err
	}
	return created, nil
}

type batchRequestBody struct {
	Requests []core.BatchStep `json:"requests"`
}

type batchResponseBody struct {
	Responses []core.BatchResponse `json:"responses"`
}

// SubmitBatch posts steps as multiplexed $batch calls of at most
// maxBatchSize requests each. Step ids pass through unchanged, so responses
// from every chunk land in one map keyed by the caller's ids.
func (c *Client) SubmitBatch(ctx context.Context, steps []core.BatchStep) (map[string]core.BatchResponse, error) {
	out := make(map[string]core.BatchResponse, len(steps))
	for _, chunk := range chunkSteps(steps, c.maxBatchSize) {
		payload, err := json.Marshal(batchRequestBody{Requests: chunk})
		if err != nil {
			return nil, core.WrapTransportFailure(err, "graph: encode batch", 0, nil)
		}
		var decoded batchResponseBody
		if err := c.call(ctx, "submit_batch", http.MethodPost, c.baseURL+"/$batch", payload, &decoded, http.StatusOK); err != nil {
			return nil, err
		}
		for _, response := range decoded.Responses {
			out[response.ID] = response
		}
	}
	return out, nil
}

func chunkSteps(steps []core.BatchStep, size int) [][]core.BatchStep {
	if len(steps) == 0 {
		return nil
	}
	if size <= 0 {
		size = core.DefaultMaxBatchSize
	}
	chunks := make([][]core.BatchStep, 0, (len(steps)+size-1)/size)
	for start := 0; start < len(steps); start += size {
		end := start + size
		if end > len(steps) {
			end = len(steps)
		}
		chunks = append(chunks, steps[start:end])
	}
	return chunks
}

func (c *Client) call(
	ctx context.Context,
	operation string,
	method string,
	url string,
	body []byte,
	target any,
	accepted ...int,
) error {
	if c == nil || c.rest == nil {
		return core.NewTransportFailure("graph: client is not configured", 0, nil)
	}
	metadata := map[string]any{"operation": operation, "method": method, "url": url}
	bucket := "graph." + operation
	if c.throttle != nil {
		if err := c.throttle.BeforeCall(ctx, bucket); err != nil {
			return core.WrapTransportFailure(err, "graph: "+operation+" throttled", http.StatusTooManyRequests, metadata)
		}
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method:  method,
		URL:     url,
		Body:    body,
		Timeout: c.timeout,
	})
	if err != nil {
		return core.WrapTransportFailure(err, "graph: "+operation+" request failed", 0, metadata)
	}
	if c.throttle != nil {
		if err := c.throttle.AfterCall(ctx, bucket, core.ProviderResponseMeta{
			StatusCode: res.StatusCode,
			Headers:    res.Headers,
			Metadata:   map[string]any{"operation": operation},
		}); err != nil {
			return core.WrapTransportFailure(err, "graph: record "+operation+" throttle state", 0, metadata)
		}
	}
	if !statusAccepted(res.StatusCode, accepted) {
		metadata["status_code"] = res.StatusCode
		metadata["error_code"] = providerErrorCode(res.Body)
		return core.NewTransportFailure(
			fmt.Sprintf("graph: %s returned status %d", operation, res.StatusCode),
			res.StatusCode,
			metadata,
		)
	}
	if target == nil || len(res.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, target); err != nil {
		return core.WrapTransportFailure(err, "graph: decode "+operation+" response", 0, metadata)
	}
	return nil
}

func statusAccepted(status int, accepted []int) bool {
	for _, code := range accepted {
		if status == code {
			return true
		}
	}
	return false
}

func providerErrorCode(body []byte) string {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Code
}

var _ core.ResourceClient = (*Client)(nil)
