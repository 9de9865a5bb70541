package core

import (
	"context"
	"time"
)

// MetricsRecorder receives one observation per coordinator operation. The
// operation label is the coordinator verb (create_driver, update_truck, ...),
// success reflects the final transaction outcome after retries.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}
