package skillgraph

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Ref holds the process-wide current Catalog. Readers take a snapshot with
// Load and keep using it for the rest of their request; Reload swaps in a
// freshly built catalog without touching the one in-flight readers hold.
type Ref struct {
	cur   atomic.Pointer[Catalog]
	group singleflight.Group
}

// NewRef returns a Ref pointing at c.
func NewRef(c *Catalog) *Ref {
	r := &Ref{}
	r.cur.Store(c)
	return r
}

// Load returns the current catalog.
func (r *Ref) Load() *Catalog {
	return r.cur.Load()
}

// Reload builds a new catalog from src and swaps it in. On failure the
// current catalog stays in place. Concurrent callers share one build.
func (r *Ref) Reload(ctx context.Context, src Source) (*Catalog, error) {
	v, err, _ := r.group.Do("reload", func() (any, error) {
		c, err := Load(ctx, src)
		if err != nil {
			return nil, err
		}
		r.cur.Store(c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}
