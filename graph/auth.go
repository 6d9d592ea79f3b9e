package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-subscriptions/transport"
)

// TokenSource yields the bearer token for the next outbound call. Refreshing
// and caching are the implementation's concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenSourceFunc func(ctx context.Context) (string, error)

func (fn TokenSourceFunc) Token(ctx context.Context) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("graph: token source is nil")
	}
	return fn(ctx)
}

type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", fmt.Errorf("graph: static access token is empty")
	}
	return token, nil
}

type BearerSigner struct {
	Source TokenSource
}

func (s BearerSigner) Sign(ctx context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("graph: http request is required")
	}
	if s.Source == nil {
		return fmt.Errorf("graph: token source is required for bearer signing")
	}
	token, err := s.Source.Token(ctx)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("graph: access token is required for bearer signing")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

var _ transport.Signer = BearerSigner{}
