package fabric

import "sync"

// Invoker spawns work and lets a caller wait for all of it to finish,
// mirroring go-mcast's core.Invoker / test.TestInvoker shape: a thin
// WaitGroup-backed goroutine spawner used by test harnesses to bring up a
// whole cluster and then cleanly wait for it to settle.
type Invoker interface {
	Spawn(f func())
	Wait()
}

type waitGroupInvoker struct {
	wg sync.WaitGroup
}

func NewInvoker() Invoker {
	return &waitGroupInvoker{}
}

func (i *waitGroupInvoker) Spawn(f func()) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		f()
	}()
}

func (i *waitGroupInvoker) Wait() {
	i.wg.Wait()
}
