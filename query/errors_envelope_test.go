package query

import (
	"context"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-subscriptions/core"
)

func TestGetInstanceMessage_ValidateReturnsRichError(t *testing.T) {
	err := (GetInstanceMessage{}).Validate()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorBadInput || rich.Code != http.StatusBadRequest {
		t.Fatalf("unexpected envelope %q %d", rich.TextCode, rich.Code)
	}
}

func TestListResultsQuery_NilReaderReturnsRichError(t *testing.T) {
	var q *ListResultsQuery
	_, err := q.Query(context.Background(), ListResultsMessage{BatchID: "b"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal envelope, got %v", err)
	}
}

func TestListResultsQuery_MissingBatchIsNotFound(t *testing.T) {
	q := NewListResultsQuery(core.NewMemoryResultSink())
	_, err := q.Query(context.Background(), ListResultsMessage{BatchID: "missing"})
	if !errors.Is(err, core.ErrResultsNotFound) {
		t.Fatalf("expected results sentinel preserved, got %v", err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Code != http.StatusNotFound || rich.TextCode != core.ServiceErrorNotFound {
		t.Fatalf("expected not-found envelope, got %v", err)
	}
}
