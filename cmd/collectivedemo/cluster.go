package main

import (
	"github.com/jabolina/collectives/internal/fabric"
)

// runOnCluster spins up n in-process ranks sharing one fabric.NewCluster and
// runs fn concurrently on each, the same shape as go-mcast's
// test.CreateCluster bootstrapping every peer before a test body runs. The
// spawning and draining itself goes through fabric.Invoker, the same
// WaitGroup-backed spawner go-mcast's own test.TestInvoker provides for
// bringing up a cluster and then cleanly waiting on it. Errors are returned
// in rank order; the first one found is what callers report, but every
// rank's failure is preserved for inspection.
func runOnCluster(n int, fn func(rt fabric.Runtime) error) []error {
	runtimes := fabric.NewCluster(n)
	errs := make([]error, n)
	invoker := fabric.NewInvoker()
	for i, rt := range runtimes {
		i, rt := i, rt
		invoker.Spawn(func() { errs[i] = fn(rt) })
	}
	invoker.Wait()
	return errs
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
