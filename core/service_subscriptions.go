package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EnsureSubscription creates a subscription for req.Resource only when the
// provider reports none whose resource matches exactly. An existing match is
// treated as present regardless of how close it is to expiry; the staleness
// window this leaves equals the renewal trigger interval.
//
// A failed list propagates. A failed create is logged and reported through
// the result action so the next scheduled run retries the same check.
func (s *Service) EnsureSubscription(ctx context.Context, req EnsureSubscriptionRequest) (EnsureSubscriptionResult, error) {
	startedAt := time.Now()
	if s == nil || s.resourceClient == nil {
		return EnsureSubscriptionResult{}, s.mapError(fmt.Errorf("core: ensure subscription requires a resource client"))
	}

	resource := req.Resource
	if strings.TrimSpace(resource) == "" {
		resource = s.config.Subscription.Resource
	}
	if strings.TrimSpace(resource) == "" {
		return EnsureSubscriptionResult{}, s.mapError(fmt.Errorf("core: subscription resource is required"))
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.config.Subscription.TTL()
	}
	if ttl <= 0 {
		return EnsureSubscriptionResult{}, s.mapError(fmt.Errorf("core: subscription ttl must be positive"))
	}

	fields := map[string]any{"resource": resource}

	subscriptions, err := s.resourceClient.ListSubscriptions(ctx)
	if err != nil {
		s.observeOperation(ctx, startedAt, "ensure_subscription", err, fields)
		return EnsureSubscriptionResult{}, err
	}

	matches := 0
	for _, subscription := range subscriptions {
		if subscription.Resource == resource {
			matches++
		}
	}
	if matches > 0 {
		fields["action"] = string(EnsureActionExisting)
		fields["matches"] = matches
		s.logInfo(ctx, fmt.Sprintf("%d subscriptions found for resource %s", matches, resource), fields)
		s.observeOperation(ctx, startedAt, "ensure_subscription", nil, fields)
		return EnsureSubscriptionResult{
			Resource: resource,
			Action:   EnsureActionExisting,
			Matches:  matches,
		}, nil
	}

	notificationURL, err := s.callbackURLResolver.ResolveCallbackURL(ctx, CallbackURLResolveRequest{Resource: resource})
	if err != nil {
		s.observeOperation(ctx, startedAt, "ensure_subscription", err, fields)
		return EnsureSubscriptionResult{}, s.mapError(err)
	}

	expiresAt := s.clock().Add(ttl)
	s.logInfo(ctx, "creating new subscription", map[string]any{
		"resource":            resource,
		"notification_url":    notificationURL,
		"expiration_datetime": expiresAt.Format(time.RFC3339),
	})

	created, err := s.resourceClient.CreateSubscription(ctx, CreateSubscriptionInput{
		Resource:           resource,
		NotificationURL:    notificationURL,
		ExpirationDateTime: expiresAt,
		ClientState:        s.config.Subscription.ClientState,
	})
	if err != nil {
		failure := newSubscriptionCreateFailure(err, resource)
		fields["action"] = string(EnsureActionCreateFailed)
		s.observeOperation(ctx, startedAt, "ensure_subscription", failure, fields)
		return EnsureSubscriptionResult{
			Resource: resource,
			Action:   EnsureActionCreateFailed,
			Error:    failure.Error(),
		}, nil
	}

	fields["action"] = string(EnsureActionCreated)
	fields["subscription_id"] = created.ID
	s.observeOperation(ctx, startedAt, "ensure_subscription", nil, fields)
	return EnsureSubscriptionResult{
		Resource:     resource,
		Action:       EnsureActionCreated,
		Subscription: &created,
	}, nil
}
