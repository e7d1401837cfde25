// Package source loads entities by key for projection: documents on disk,
// rows of a SQL table, or responses of a unary gRPC method.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hanpama/restql/internal/eventbus"
	"github.com/hanpama/restql/internal/events"
)

// ErrNotFound is returned by Fetch when no entity exists for the key.
var ErrNotFound = errors.New("source: entity not found")

// Source loads one entity by key. Implementations must be safe for
// concurrent use.
type Source interface {
	Fetch(ctx context.Context, key string) (any, error)
}

// Memory serves entities held in process.
type Memory map[string]any

func (m Memory) Fetch(_ context.Context, key string) (any, error) {
	e, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return e, nil
}

type observed struct {
	name string
	src  Source
}

// Observe wraps src so every Fetch emits SourceFetchStart and
// SourceFetchFinish events under name.
func Observe(name string, src Source) Source { return &observed{name: name, src: src} }

func (o *observed) Fetch(ctx context.Context, key string) (any, error) {
	start := time.Now()
	eventbus.Publish(ctx, events.SourceFetchStart{Source: o.name, Key: key})
	e, err := o.src.Fetch(ctx, key)
	eventbus.Publish(ctx, events.SourceFetchFinish{Source: o.name, Key: key, Err: err, Duration: time.Since(start)})
	return e, err
}
