package collective_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jabolina/collectives/collective"
	"github.com/jabolina/collectives/internal/fabric"
)

func topologies() []collective.Option {
	return []collective.Option{
		collective.WithTopology(collective.Binary),
		collective.WithTopology(collective.Binomial),
	}
}

func sumOp(a, b []byte) ([]byte, error) {
	av, err := strconv.Atoi(string(a))
	if err != nil {
		return nil, err
	}
	bv, err := strconv.Atoi(string(b))
	if err != nil {
		return nil, err
	}
	return []byte(strconv.Itoa(av + bv)), nil
}

// TestBroadcast covers B1 with n=4: every participant ends up with the
// root's value, under both topologies and roots 0 and 2.
func TestBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, topo := range topologies() {
		for _, root := range []int{0, 2} {
			c := newCluster(4)
			ctx := context.Background()
			got := make([][]byte, 4)
			var errs []error
			ok := waitOrTimeout(func() {
				errs = runAll(c, func(rt fabric.Runtime) error {
					bc, err := collective.NewBroadcast(ctx, rt, "bcast", root, topo)
					if err != nil {
						return err
					}
					value := []byte(nil)
					if rt.Rank() == root {
						value = []byte("payload")
					}
					if err := bc.Invoke(ctx, &value); err != nil {
						return err
					}
					got[rt.Rank()] = value
					return nil
				})
			}, 5*time.Second)
			require.True(t, ok, "broadcast did not complete")
			for _, err := range errs {
				require.NoError(t, err)
			}
			for i := range got {
				require.Equal(t, "payload", string(got[i]), "rank %d root %d", i, root)
			}
		}
	}
}

// TestScatter covers S1: the root's input is split into blockSize chunks,
// one delivered per rank, in rank order.
func TestScatter(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	const blockSize = 2
	for _, topo := range topologies() {
		c := newCluster(n)
		ctx := context.Background()
		got := make([][][]byte, n)
		var errs []error
		ok := waitOrTimeout(func() {
			errs = runAll(c, func(rt fabric.Runtime) error {
				sc, err := collective.NewScatter(ctx, rt, "scatter", 0, topo)
				if err != nil {
					return err
				}
				var in [][]byte
				if rt.Rank() == 0 {
					for i := 0; i < n*blockSize; i++ {
						in = append(in, block(i))
					}
				}
				var out [][]byte
				if err := sc.Invoke(ctx, in, blockSize, &out); err != nil {
					return err
				}
				got[rt.Rank()] = out
				return nil
			})
		}, 5*time.Second)
		require.True(t, ok, "scatter did not complete")
		for _, err := range errs {
			require.NoError(t, err)
		}
		for rank := 0; rank < n; rank++ {
			require.Len(t, got[rank], blockSize)
			require.Equal(t, string(block(rank*blockSize)), string(got[rank][0]))
			require.Equal(t, string(block(rank*blockSize+1)), string(got[rank][1]))
		}
	}
}

// TestGather covers G1: the root ends up with every rank's block,
// concatenated in ascending rank order, regardless of topology.
func TestGather(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, topo := range topologies() {
		for _, n := range []int{3, 4, 7} {
			c := newCluster(n)
			ctx := context.Background()
			var rootOut [][]byte
			var errs []error
			ok := waitOrTimeout(func() {
				errs = runAll(c, func(rt fabric.Runtime) error {
					g, err := collective.NewGather(ctx, rt, "gather", 0, topo)
					if err != nil {
						return err
					}
					in := [][]byte{block(rt.Rank())}
					var out [][]byte
					if err := g.Invoke(ctx, in, &out); err != nil {
						return err
					}
					if rt.Rank() == 0 {
						rootOut = out
					}
					return nil
				})
			}, 5*time.Second)
			require.True(t, ok, "gather did not complete n=%d", n)
			for _, err := range errs {
				require.NoError(t, err)
			}
			require.Len(t, rootOut, n)
			for i := 0; i < n; i++ {
				require.Equal(t, string(block(i)), string(rootOut[i]), "n=%d position %d", n, i)
			}
		}
	}
}

// TestReduce covers R1/R2: the root ends up with the sum of every rank's
// value, regardless of topology or participant count.
func TestReduce(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, topo := range topologies() {
		for _, n := range []int{3, 5, 8} {
			c := newCluster(n)
			ctx := context.Background()
			var rootOut []byte
			var errs []error
			ok := waitOrTimeout(func() {
				errs = runAll(c, func(rt fabric.Runtime) error {
					r, err := collective.NewReduce(ctx, rt, "reduce", 0, sumOp, topo)
					if err != nil {
						return err
					}
					in := [][]byte{[]byte(strconv.Itoa(rt.Rank()))}
					var out []byte
					if err := r.Invoke(ctx, in, []byte("0"), &out); err != nil {
						return err
					}
					if rt.Rank() == 0 {
						rootOut = out
					}
					return nil
				})
			}, 5*time.Second)
			require.True(t, ok, "reduce did not complete n=%d", n)
			for _, err := range errs {
				require.NoError(t, err)
			}
			expected := n * (n - 1) / 2
			require.Equal(t, strconv.Itoa(expected), string(rootOut), "n=%d", n)
		}
	}
}

// TestRotationInvariance checks that an arbitrary, non-zero root still
// produces the same logical result as root 0 would, i.e. the rotated
// coordinate system is transparent to callers.
func TestRotationInvariance(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 5
	for _, topo := range topologies() {
		for _, root := range []int{0, 1, 4} {
			c := newCluster(n)
			ctx := context.Background()
			var rootOut []byte
			var errs []error
			ok := waitOrTimeout(func() {
				errs = runAll(c, func(rt fabric.Runtime) error {
					r, err := collective.NewReduce(ctx, rt, "reduce-rot", root, sumOp, topo)
					if err != nil {
						return err
					}
					in := [][]byte{[]byte(strconv.Itoa(rt.Rank() + 1))}
					var out []byte
					if err := r.Invoke(ctx, in, []byte("0"), &out); err != nil {
						return err
					}
					if rt.Rank() == root {
						rootOut = out
					}
					return nil
				})
			}, 5*time.Second)
			require.True(t, ok, "reduce did not complete root=%d", root)
			for _, err := range errs {
				require.NoError(t, err)
			}
			require.Equal(t, strconv.Itoa(n*(n+1)/2), string(rootOut), "root=%d", root)
		}
	}
}

// TestInvokeOnceOnly covers the one-shot-per-instance contract.
func TestInvokeOnceOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newCluster(2)
	ctx := context.Background()
	rt := c.runtimes[0]
	// Rank 1 must also participate so the trailing fence barrier closes.
	var wg sync.WaitGroup
	var peerErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		peerBc, err := collective.NewBroadcast(ctx, c.runtimes[1], "once", 0)
		if err != nil {
			peerErr = err
			return
		}
		value := []byte(nil)
		peerErr = peerBc.Invoke(ctx, &value)
	}()

	bc, err := collective.NewBroadcast(ctx, rt, "once", 0)
	require.NoError(t, err)
	value := []byte("x")
	require.NoError(t, bc.Invoke(ctx, &value))
	wg.Wait()
	require.NoError(t, peerErr)

	err = bc.Invoke(ctx, &value)
	require.ErrorIs(t, err, collective.ErrAlreadyInvoked)
}

// TestCloseAllowsNameReuse covers the lifecycle contract: once every
// participant has finished with an instance and called Close, the same name
// can back a brand new collective instead of colliding with the torn-down
// one's state.
func TestCloseAllowsNameReuse(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newCluster(3)
	ctx := context.Background()

	errs := runAll(c, func(rt fabric.Runtime) error {
		bc, err := collective.NewBroadcast(ctx, rt, "reusable", 0)
		if err != nil {
			return err
		}
		value := []byte(nil)
		if rt.Rank() == 0 {
			value = []byte("first")
		}
		if err := bc.Invoke(ctx, &value); err != nil {
			return err
		}
		return bc.Close()
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	errs = runAll(c, func(rt fabric.Runtime) error {
		bc, err := collective.NewBroadcast(ctx, rt, "reusable", 1)
		if err != nil {
			return err
		}
		value := []byte(nil)
		if rt.Rank() == 1 {
			value = []byte("second")
		}
		if err := bc.Invoke(ctx, &value); err != nil {
			return err
		}
		require.Equal(t, "second", string(value))
		return nil
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
}

// TestRootOutOfRange covers the misuse contract around an invalid root.
func TestRootOutOfRange(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newCluster(3)
	ctx := context.Background()
	_, err := collective.NewBroadcast(ctx, c.runtimes[0], "bad-root", 99)
	require.ErrorIs(t, err, collective.ErrRootOutOfRange)
}
