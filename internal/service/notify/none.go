package notify

import (
	"context"

	"OracleDash/internal/domain/models"
)

// None is the single-replica broadcaster: publishing is a no-op and no peer
// events ever arrive.
type None struct{}

func NewNone() *None { return &None{} }

func (*None) Publish(context.Context, models.CycleEvent) error { return nil }

// Subscribe blocks until ctx is done.
func (*None) Subscribe(ctx context.Context, _ func(models.CycleEvent)) error {
	<-ctx.Done()
	return nil
}

func (*None) Backend() string { return BackendNone }
func (*None) Close() error    { return nil }
