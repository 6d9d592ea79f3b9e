package core

import (
	"context"
	"fmt"
	"strings"
)

type CallbackURLResolveRequest struct {
	Resource string
	Metadata map[string]any
}

// CallbackURLResolver produces the notificationUrl registered with the provider.
type CallbackURLResolver interface {
	ResolveCallbackURL(ctx context.Context, req CallbackURLResolveRequest) (string, error)
}

type CallbackURLResolverFunc func(ctx context.Context, req CallbackURLResolveRequest) (string, error)

func (fn CallbackURLResolverFunc) ResolveCallbackURL(ctx context.Context, req CallbackURLResolveRequest) (string, error) {
	if fn == nil {
		return "", nil
	}
	url, err := fn(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(url), nil
}

// StaticCallbackURLResolver joins the externally reachable base URL with
// the ingress path.
type StaticCallbackURLResolver struct {
	BaseURL string
	Path    string
}

func NewStaticCallbackURLResolver(cfg CallbackConfig) StaticCallbackURLResolver {
	return StaticCallbackURLResolver{BaseURL: cfg.PublicBaseURL, Path: cfg.Path}
}

func (r StaticCallbackURLResolver) ResolveCallbackURL(context.Context, CallbackURLResolveRequest) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(r.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("core: callback public base url is required")
	}
	path := strings.TrimSpace(r.Path)
	if path == "" {
		path = DefaultCallbackPath
	}
	return base + "/" + strings.TrimLeft(path, "/"), nil
}

var _ CallbackURLResolver = StaticCallbackURLResolver{}
