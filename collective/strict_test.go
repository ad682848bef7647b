package collective_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jabolina/collectives/collective"
	"github.com/jabolina/collectives/internal/fabric"
)

// TestStrictCatchesNonRootScatterInput covers the WithStrict debug-assertion
// path: a non-root rank that (mis)supplies scatter input should panic
// instead of having its input silently ignored, when Strict is enabled. Only
// the misbehaving rank is driven directly (not through runAll/waitOrTimeout)
// because it is expected to panic before ever touching its mailbox, so there
// is no peer to coordinate with.
func TestStrictCatchesNonRootScatterInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newCluster(2)
	ctx := context.Background()

	rt := c.runtimes[1] // non-root
	sc, err := collective.NewScatter(ctx, rt, "strict-scatter", 0, collective.WithStrict())
	require.NoError(t, err)

	misusedInput := [][]byte{block(0)}
	var out [][]byte
	require.Panics(t, func() {
		_ = sc.Invoke(ctx, misusedInput, 1, &out)
	})
}

// TestStrictOffByDefault confirms the same misuse does not panic without
// WithStrict — the assertion is opt-in, not on by default — by letting the
// whole cluster actually complete the scatter. The non-root rank's ignored
// extra input does not change its result.
func TestStrictOffByDefault(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newCluster(2)
	ctx := context.Background()

	got := make([][][]byte, 2)
	errs := runAll(c, func(rt fabric.Runtime) error {
		sc, err := collective.NewScatter(ctx, rt, "non-strict-scatter", 0)
		if err != nil {
			return err
		}
		in := [][]byte{block(0), block(1)}
		if rt.Rank() != 0 {
			// Misuse: a non-root rank also passing input. Ignored, not asserted,
			// because WithStrict was not requested.
			in = [][]byte{block(99)}
		}
		var out [][]byte
		if err := sc.Invoke(ctx, in, 1, &out); err != nil {
			return err
		}
		got[rt.Rank()] = out
		return nil
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, string(block(0)), string(got[0][0]))
	require.Equal(t, string(block(1)), string(got[1][0]))
}
