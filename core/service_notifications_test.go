package core

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
)

func TestResolveNotifications_PreservesInputOrder(t *testing.T) {
	client := &stubResourceClient{
		responses: map[string]BatchResponse{
			"1": {ID: "1", Status: 200, Body: json.RawMessage(`{"id":"Y"}`)},
			"0": {ID: "0", Status: 200, Body: json.RawMessage(`{"id":"X"}`)},
		},
	}
	svc := newTestService(t, client)

	results, err := svc.ResolveNotifications(context.Background(), []ChangeNotification{
		{Resource: "communications/callRecords/X"},
		{Resource: "communications/callRecords/Y"},
	})
	if err != nil {
		t.Fatalf("resolve notifications: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %d", len(results))
	}
	if results[0].ResourceID() != "X" || results[1].ResourceID() != "Y" {
		t.Fatalf("expected [X, Y], got [%s, %s]", results[0].ResourceID(), results[1].ResourceID())
	}

	if len(client.batchCalls) != 1 {
		t.Fatalf("expected exactly one batch call, got %d", len(client.batchCalls))
	}
	steps := client.batchCalls[0]
	if steps[0].ID != "0" || steps[1].ID != "1" {
		t.Fatalf("expected positional ids, got %+v", steps)
	}
	if steps[0].Method != "GET" || steps[0].URL != "communications/callRecords/X" {
		t.Fatalf("unexpected first step %+v", steps[0])
	}
}

func TestResolveNotifications_NonOKYieldsUnresolved(t *testing.T) {
	client := &stubResourceClient{
		responses: map[string]BatchResponse{
			"0": {ID: "0", Status: 200, Body: json.RawMessage(`{"id":"B"}`)},
			"1": {ID: "1", Status: 404, Body: json.RawMessage(`{"error":{"code":"NotFound"}}`)},
		},
	}
	svc := newTestService(t, client)

	results, err := svc.ResolveNotifications(context.Background(), []ChangeNotification{
		{Resource: "r/B"},
		{Resource: "r/missing"},
	})
	if err != nil {
		t.Fatalf("resolve notifications: %v", err)
	}
	raw, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("marshal results: %v", err)
	}
	if string(raw) != `[{"id":"B"},null]` {
		t.Fatalf("expected [B, null], got %s", raw)
	}
}

func TestResolveNotifications_MissingResponseYieldsUnresolved(t *testing.T) {
	client := &stubResourceClient{
		responses: map[string]BatchResponse{
			"2": {ID: "2", Status: 200, Body: json.RawMessage(`{"id":"C"}`)},
		},
	}
	svc := newTestService(t, client)

	results, err := svc.ResolveNotifications(context.Background(), []ChangeNotification{
		{Resource: "r/A"}, {Resource: "r/B"}, {Resource: "r/C"},
	})
	if err != nil {
		t.Fatalf("resolve notifications: %v", err)
	}
	if results[0].Resolved || results[1].Resolved || !results[2].Resolved {
		t.Fatalf("unexpected resolution pattern %+v", results)
	}
}

func TestResolveNotifications_EmptyInputSkipsBatchCall(t *testing.T) {
	client := &stubResourceClient{}
	svc := newTestService(t, client)

	results, err := svc.ResolveNotifications(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve notifications: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	if len(client.batchCalls) != 0 {
		t.Fatalf("expected no batch call for empty input")
	}
}

func TestResolveNotifications_BatchFailurePropagates(t *testing.T) {
	client := &stubResourceClient{batchErr: NewTransportFailure("graph: batch returned 500", 500, nil)}
	svc := newTestService(t, client)

	_, err := svc.ResolveNotifications(context.Background(), []ChangeNotification{{Resource: "r/A"}})
	if !IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestCorrelateBatchResponses_LargeSetKeepsPositions(t *testing.T) {
	const n = 64
	responses := map[string]BatchResponse{}
	for i := n - 1; i >= 0; i-- {
		if i%3 == 0 {
			continue
		}
		id := jsonBody(t, map[string]int{"position": i})
		responses[strconv.Itoa(i)] = BatchResponse{ID: strconv.Itoa(i), Status: 200, Body: id}
	}

	results := CorrelateBatchResponses(n, responses)
	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}
	for i, result := range results {
		if i%3 == 0 {
			if result.Resolved {
				t.Fatalf("expected position %d unresolved", i)
			}
			continue
		}
		var payload struct {
			Position int `json:"position"`
		}
		if err := json.Unmarshal(result.Payload, &payload); err != nil {
			t.Fatalf("decode position %d: %v", i, err)
		}
		if payload.Position != i {
			t.Fatalf("expected position %d, got %d", i, payload.Position)
		}
	}
}
