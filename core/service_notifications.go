package core

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// ResolveNotifications turns notifications into one multiplexed fetch and
// returns one result per input, in input order. A sub-response with any
// status other than 200, or no sub-response at all, yields Unresolved; only a
// failure of the batch call itself is returned as an error.
func (s *Service) ResolveNotifications(ctx context.Context, notifications []ChangeNotification) ([]ResolvedResult, error) {
	startedAt := time.Now()
	if s == nil || s.resourceClient == nil {
		return nil, s.mapError(fmt.Errorf("core: resolve notifications requires a resource client"))
	}
	if len(notifications) == 0 {
		return []ResolvedResult{}, nil
	}

	for index, notification := range notifications {
		s.logDebug(ctx, fmt.Sprintf("notification #%d", index+1), notificationFields(notification))
	}

	steps := NewBatchSteps(notifications)
	responses, err := s.resourceClient.SubmitBatch(ctx, steps)
	if err != nil {
		s.observeOperation(ctx, startedAt, "resolve_notifications", err, map[string]any{
			"notifications": len(notifications),
		})
		return nil, err
	}

	results := CorrelateBatchResponses(len(notifications), responses)

	unresolved := 0
	for _, result := range results {
		if !result.Resolved {
			unresolved++
		}
	}
	fields := map[string]any{
		"notifications": len(notifications),
		"resolved":      len(results) - unresolved,
		"unresolved":    unresolved,
	}
	if unresolved > 0 {
		s.logWarn(ctx, "batch resolved partially", fields)
	}
	s.observeOperation(ctx, startedAt, "resolve_notifications", nil, fields)
	return results, nil
}

// CorrelateBatchResponses maps responses keyed by stringified index back to
// positions 0..n-1. Each position is looked up concurrently and written only
// by its own goroutine; the call returns once every position is settled.
func CorrelateBatchResponses(n int, responses map[string]BatchResponse) []ResolvedResult {
	results := make([]ResolvedResult, n)
	var group errgroup.Group
	for index := 0; index < n; index++ {
		group.Go(func() error {
			response, ok := responses[strconv.Itoa(index)]
			if !ok || response.Status != http.StatusOK {
				results[index] = Unresolved()
				return nil
			}
			results[index] = Resolved(response.Body)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func notificationFields(notification ChangeNotification) map[string]any {
	fields := map[string]any{
		"subscription_id": notification.SubscriptionID,
		"change_type":     notification.ChangeType,
		"client_state":    notification.ClientState,
		"resource":        notification.Resource,
	}
	if notification.SubscriptionExpirationDateTime != nil {
		fields["expiration"] = notification.SubscriptionExpirationDateTime.UTC().Format(time.RFC3339)
	}
	return fields
}
