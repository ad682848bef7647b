// Package fabric is the in-process stand-in for the distributed runtime the
// collectives are built against: ranked remote async dispatch, a named
// barrier, and a distributed-object registry. It plays exactly the role
// go-mcast's core.Transport played for that library's multicast protocol —
// a small interface of a handful of verbs sitting between the algorithm and
// whatever actually moves bytes between localities — except here the
// "transport" is a set of goroutines sharing memory rather than a reliable
// multicast library, since go-mcast's own relt dependency is not a
// published module and cannot be wired.
package fabric

import (
	"context"
	"fmt"
	"sync"
)

// Runtime is the external surface every collective is built against.
type Runtime interface {
	Rank() int
	RankCount() int

	// RemoteAsync schedules fn to run asynchronously "at" target. In this
	// in-process fabric that's just a goroutine, but the interface is the
	// seam a real RPC/active-message transport would sit behind.
	RemoteAsync(ctx context.Context, target int, fn func(ctx context.Context))

	// Barrier blocks every rank that calls it under the same name until
	// all RankCount() participants have arrived.
	Barrier(ctx context.Context, name string) error

	// DistributedObject builds (once, collectively) or fetches the n
	// replicas registered under name, invoking factory(rank) exactly once
	// per rank the first time any participant asks for this name.
	DistributedObject(ctx context.Context, name string, n int, factory func(rank int) interface{}) ([]interface{}, error)

	// Release discards the distributed-object and barrier state registered
	// under name, so the name can be reused by a later collective instance.
	// It does not coordinate with other ranks — the caller is responsible
	// for making sure every rank is done with name before any of them
	// releases it.
	Release(name string) error
}

type objectEntry struct {
	once     sync.Once
	replicas []interface{}
}

type barrierState struct {
	mu      sync.Mutex
	arrived int
	total   int
	done    chan struct{}
}

// shared is the state every rank's view of the fabric shares, the
// goroutine-local equivalent of a cluster-wide AGAS-style registry.
type shared struct {
	n int

	objMu   sync.Mutex
	objects map[string]*objectEntry

	barMu    sync.Mutex
	barriers map[string]*barrierState
}

func newShared(n int) *shared {
	return &shared{
		n:        n,
		objects:  make(map[string]*objectEntry),
		barriers: make(map[string]*barrierState),
	}
}

// NewCluster builds n Runtime views of the same in-process fabric, one per
// rank, sharing a single object registry and barrier table — the
// equivalent of go-mcast's test.CreateCluster bootstrapping N peers that
// all agree on the same partition set.
func NewCluster(n int) []Runtime {
	s := newShared(n)
	nodes := make([]Runtime, n)
	for rank := 0; rank < n; rank++ {
		nodes[rank] = &node{rank: rank, shared: s}
	}
	return nodes
}

type node struct {
	rank   int
	shared *shared
}

func (nd *node) Rank() int      { return nd.rank }
func (nd *node) RankCount() int { return nd.shared.n }

func (nd *node) RemoteAsync(ctx context.Context, target int, fn func(ctx context.Context)) {
	go fn(ctx)
}

func (nd *node) Barrier(ctx context.Context, name string) error {
	s := nd.shared
	s.barMu.Lock()
	b, ok := s.barriers[name]
	if !ok {
		b = &barrierState{total: s.n, done: make(chan struct{})}
		s.barriers[name] = b
	}
	s.barMu.Unlock()

	b.mu.Lock()
	b.arrived++
	reached := b.arrived == b.total
	done := b.done
	b.mu.Unlock()

	if reached {
		close(done)
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("fabric: barrier %q canceled: %w", name, ctx.Err())
	}
}

func (nd *node) DistributedObject(ctx context.Context, name string, n int, factory func(rank int) interface{}) ([]interface{}, error) {
	s := nd.shared
	s.objMu.Lock()
	entry, ok := s.objects[name]
	if !ok {
		entry = &objectEntry{}
		s.objects[name] = entry
	}
	s.objMu.Unlock()

	entry.once.Do(func() {
		replicas := make([]interface{}, n)
		for rank := 0; rank < n; rank++ {
			replicas[rank] = factory(rank)
		}
		entry.replicas = replicas
	})
	return entry.replicas, nil
}

func (nd *node) Release(name string) error {
	s := nd.shared
	s.objMu.Lock()
	delete(s.objects, name)
	s.objMu.Unlock()

	s.barMu.Lock()
	delete(s.barriers, name)
	delete(s.barriers, name+"/fence")
	s.barMu.Unlock()
	return nil
}
