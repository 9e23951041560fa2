package obs

import (
	"context"
	"testing"
)

func TestWithRequestIDKeepsExisting(t *testing.T) {
	ctx := WithRequestID(context.Background())
	id := RequestID(ctx)
	if id == "" {
		t.Fatalf("expected a request id")
	}

	if got := RequestID(WithRequestID(ctx)); got != id {
		t.Fatalf("request id changed from %q to %q", id, got)
	}
}
