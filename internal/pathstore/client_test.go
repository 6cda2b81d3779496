package pathstore

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dgallion1/lawgest/internal/pathstore/pathstoretest"
)

func TestClient_PutGetDelete(t *testing.T) {
	srv := pathstoretest.New()
	defer srv.Close()
	c := NewClient(srv.URL+"/", "key")
	ctx := context.Background()

	if err := c.PutNode(ctx, "laws/ley/meta", NodeRequest{Value: map[string]any{"title": "Ley"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	node, err := c.GetNode(ctx, "laws/ley/meta")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var v struct {
		Title string `json:"title"`
	}
	if err := node.Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Title != "Ley" {
		t.Errorf("expected title %q, got %q", "Ley", v.Title)
	}

	missing, err := c.GetNode(ctx, "laws/otra/meta")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for a missing key, got %v, %v", missing, err)
	}

	if err := c.DeleteNode(ctx, "laws/ley", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(srv.Keys()) != 0 {
		t.Errorf("expected empty store, got %v", srv.Keys())
	}
}

func TestClient_ListChildren(t *testing.T) {
	srv := pathstoretest.New()
	defer srv.Close()
	c := NewClient(srv.URL, "key")
	ctx := context.Background()

	for _, k := range []string{"laws/a/meta", "laws/b/meta", "other/x"} {
		if err := c.PutNode(ctx, k, NodeRequest{Value: 1}); err != nil {
			t.Fatal(err)
		}
	}
	nodes, err := c.ListChildren(ctx, "laws", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Key != "laws/a/meta" {
		t.Errorf("unexpected nodes %+v", nodes)
	}
	nodes, err = c.ListChildren(ctx, "laws", 1)
	if err != nil || len(nodes) != 1 {
		t.Errorf("expected limit to apply, got %d nodes, %v", len(nodes), err)
	}
}

func TestClient_RetryableErrors(t *testing.T) {
	srv := pathstoretest.New()
	defer srv.Close()
	c := NewClient(srv.URL, "key")
	ctx := context.Background()

	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		srv.FailNext(tt.status)
		err := c.PutNode(ctx, "k", NodeRequest{Value: 1})
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		var re *RetryableError
		if errors.As(err, &re) != tt.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, err)
		}
	}
}

func TestRetry(t *testing.T) {
	backoff = func(int) time.Duration { return time.Millisecond }
	defer func() { backoff = Backoff }()

	srv := pathstoretest.New()
	defer srv.Close()
	c := NewClient(srv.URL, "key")
	ctx := context.Background()

	srv.FailNext(http.StatusServiceUnavailable, http.StatusTooManyRequests)
	waits := 0
	err := Retry(ctx, func() error {
		return c.PutNode(ctx, "k", NodeRequest{Value: 1})
	}, func(int, error) { waits++ })
	if err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if waits != 2 {
		t.Errorf("expected 2 waits, got %d", waits)
	}

	srv.FailNext(http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)
	err = Retry(ctx, func() error {
		return c.PutNode(ctx, "k", NodeRequest{Value: 1})
	}, nil)
	if !IsRetryable(err) {
		t.Errorf("expected the last retryable error, got %v", err)
	}

	calls := 0
	err = Retry(ctx, func() error {
		calls++
		return errors.New("permanent")
	}, nil)
	if err == nil || calls != 1 {
		t.Errorf("expected one call for a permanent error, got %d", calls)
	}
}

func TestBackoff(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}
