// Package collective implements the eight collective communication state
// machines — broadcast, scatter, gather and reduce, each over a binary and
// a binomial tree — on top of the in-process fabric.Runtime. Construction
// takes a shared name and a small configuration, the same way go-mcast
// builds a Unity from a shared name plus types.Configuration, rather than
// threading a long parameter list through every constructor.
package collective

import (
	"context"
	goruntime "runtime"
	"sync/atomic"

	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/obslog"
	"github.com/jabolina/collectives/internal/wire"
)

// Topology selects which tree shape a collective instance routes through.
type Topology int

const (
	Binary Topology = iota
	Binomial
)

// Blocking selects whether Invoke returns only after every participant has
// also finished (a trailing named barrier) or as soon as this rank's own
// part of the exchange is done.
type Blocking int

const (
	Nonblocking Blocking = iota
	IsBlocking
)

// ReduceOp combines two already-encoded values. It must be associative. The
// binary schedule combines in tree pre-order and the binomial schedule in
// arrival order, neither in rank order, so the result equals the rank-order
// fold only when op is also commutative.
type ReduceOp func(a, b []byte) ([]byte, error)

// Config carries the knobs every collective construction accepts through
// functional options.
type Config struct {
	Topology      Topology
	Blocking      Blocking
	Codec         wire.Codec
	Logger        obslog.Logger
	SpinWarnEvery int
	Strict        bool
}

func defaultConfig() Config {
	return Config{
		Topology:      Binary,
		Blocking:      IsBlocking,
		Codec:         wire.JSONCodec{},
		Logger:        obslog.NewDefault(),
		SpinWarnEvery: 200000,
		Strict:        false,
	}
}

type Option func(*Config)

func WithTopology(t Topology) Option { return func(c *Config) { c.Topology = t } }
func WithBlocking() Option           { return func(c *Config) { c.Blocking = IsBlocking } }
func WithNonblocking() Option        { return func(c *Config) { c.Blocking = Nonblocking } }
func WithCodec(codec wire.Codec) Option {
	return func(c *Config) { c.Codec = codec }
}
func WithLogger(l obslog.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithSpinWarnEvery changes how many unsuccessful poll attempts a spin loop
// tolerates before logging a diagnostic warning. The spin itself never
// aborts or times out — this only controls when it starts complaining.
func WithSpinWarnEvery(attempts int) Option {
	return func(c *Config) { c.SpinWarnEvery = attempts }
}

// WithStrict turns on debugcheck assertions for caller misuse: a nil reduce
// op, an empty gather block, scatter input passed by a non-root rank, and a
// non-positive scatter blockSize on the binary root. Uneven scatter input is
// not one of them; it returns ErrUnevenInput with or without WithStrict.
// A violation panics instead of silently producing a wrong answer; intended
// for development and test builds, not production use where the cost of the
// extra checks outweighs catching a bug that testing should have already
// caught.
func WithStrict() Option {
	return func(c *Config) { c.Strict = true }
}

func buildConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// base holds the identity and bookkeeping shared by every collective op.
type base struct {
	rt   fabric.Runtime
	name string
	root int
	n    int
	rel  int // this rank in rotated coordinates: rel 0 is always the root
	cfg  Config

	invoked int32
}

func newBase(rt fabric.Runtime, name string, root int, opts ...Option) (*base, error) {
	n := rt.RankCount()
	if root < 0 || root >= n {
		return nil, ErrRootOutOfRange
	}
	me := rt.Rank()
	return &base{
		rt:   rt,
		name: name,
		root: root,
		n:    n,
		rel:  rotate(me, root, n),
		cfg:  buildConfig(opts...),
	}, nil
}

// markInvoked enforces the one-shot contract: a constructed instance may be
// invoked exactly once.
func (b *base) markInvoked() error {
	if !atomic.CompareAndSwapInt32(&b.invoked, 0, 1) {
		return ErrAlreadyInvoked
	}
	return nil
}

// rotate maps an actual rank into coordinates where rel 0 is the root,
// rel = (me - root) mod n, so the rank passed as root is always rel 0.
func rotate(me, root, n int) int {
	return ((me-root)%n + n) % n
}

// unrotate maps a rotated coordinate back to the actual rank that owns it,
// the true inverse of rotate: me = (rel + root) mod n.
func unrotate(rel, root, n int) int {
	return (rel + root) % n
}

// spin blocks until poll returns true, yielding between attempts and
// logging a diagnostic after enough unsuccessful attempts. It never times
// out and never gives up silently — the core recognizes no timeout failure
// mode for this wait, only a diagnostic.
func (b *base) spin(what string, poll func() bool) {
	attempts := 0
	for !poll() {
		attempts++
		if b.cfg.SpinWarnEvery > 0 && attempts%b.cfg.SpinWarnEvery == 0 {
			b.cfg.Logger.WithField("rel", b.rel).Warnf("still spinning on %s after %d attempts", what, attempts)
		}
		goruntime.Gosched()
	}
}

// fence runs the trailing barrier when the instance is configured as
// blocking; a nonblocking instance returns as soon as its own local part of
// the algorithm is done.
func (b *base) fence(ctx context.Context) error {
	if b.cfg.Blocking != IsBlocking {
		return nil
	}
	return b.rt.Barrier(ctx, b.name+"/fence")
}

// sendTo unrotates targetRel into an actual rank and dispatches fn there via
// RemoteAsync, passing the resolved target back so fn can index into a
// per-rank replica slice (mailbox boxes) without re-deriving it. Every
// algorithm's outgoing send routes through this instead of repeating the
// unrotate-then-RemoteAsync pair inline.
func (b *base) sendTo(ctx context.Context, targetRel int, fn func(ctx context.Context, target int)) {
	target := unrotate(targetRel, b.root, b.n)
	b.rt.RemoteAsync(ctx, target, func(c context.Context) { fn(c, target) })
}

// Close releases the distributed-object and barrier state registered under
// this instance's name, matching spec.md §3's "destroyed when the
// collective is destroyed" lifecycle. It does not itself coordinate across
// ranks — callers under a blocking policy already get that from the
// trailing fence; nonblocking callers must synchronize before calling
// Close the same way they must before reusing the name for anything else.
func (b *base) Close() error {
	return b.rt.Release(b.name)
}
