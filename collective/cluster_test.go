package collective_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jabolina/collectives/internal/fabric"
)

// cluster is a thin test harness wrapping fabric.NewCluster, in the shape of
// the teacher's own UnityCluster: a fixed set of runtime views plus a way to
// run a function against every view concurrently and collect results.
type cluster struct {
	runtimes []fabric.Runtime
}

func newCluster(n int) *cluster {
	return &cluster{runtimes: fabric.NewCluster(n)}
}

// runAll invokes fn once per participant concurrently and returns the
// per-rank errors, in rank order.
func runAll(c *cluster, fn func(rt fabric.Runtime) error) []error {
	errs := make([]error, len(c.runtimes))
	var wg sync.WaitGroup
	for i, rt := range c.runtimes {
		wg.Add(1)
		go func(i int, rt fabric.Runtime) {
			defer wg.Done()
			errs[i] = fn(rt)
		}(i, rt)
	}
	wg.Wait()
	return errs
}

// waitOrTimeout runs cb and reports whether it finished before duration
// elapses, the same shape as the teacher's WaitThisOrTimeout — used here to
// turn a hang in the algorithm under test into a failed assertion instead of
// a wedged test binary.
func waitOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

func block(i int) []byte { return []byte(fmt.Sprintf("v%d", i)) }
