package webhooks

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/goliatone/go-subscriptions/core"
)

// ClientStateVerifier decides whether a notification carries the secret
// registered when its subscription was created.
type ClientStateVerifier interface {
	Verify(ctx context.Context, notification core.ChangeNotification) bool
}

type ClientStateVerifierFunc func(ctx context.Context, notification core.ChangeNotification) bool

func (fn ClientStateVerifierFunc) Verify(ctx context.Context, notification core.ChangeNotification) bool {
	if fn == nil {
		return true
	}
	return fn(ctx, notification)
}

type SecretClientState struct {
	Secret string
}

// NewSecretClientState returns nil for an empty secret so that handlers
// skip verification when none is configured.
func NewSecretClientState(secret string) ClientStateVerifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return SecretClientState{Secret: secret}
}

func (v SecretClientState) Verify(_ context.Context, notification core.ChangeNotification) bool {
	return subtle.ConstantTimeCompare([]byte(v.Secret), []byte(notification.ClientState)) == 1
}
