package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestZeroValueIsSafe(t *testing.T) {
	var o Observability

	ctx, span := o.StartSpan(context.Background(), "mentor-assign-primary", attribute.Int("fellows", 3))
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() {
		o.RecordRun(ctx, "global-optimal", "matched", 2, 15*time.Millisecond)
		o.Shutdown()
	})
}

func TestNewRecordsRuns(t *testing.T) {
	o, err := New("mentor-matching-test")
	if err != nil {
		t.Skipf("prometheus exporter unavailable: %v", err)
	}
	defer o.Shutdown()

	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "greedy-topk", "matched", 4, time.Millisecond)
	})
}
