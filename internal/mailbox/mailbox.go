// Package mailbox implements the tagged, flag-guarded rendezvous record each
// collective algorithm publishes through the distributed object registry:
// one replica per rank, addressed by a shared name, used as a one-shot or
// accumulating channel between a sender and a receiver that never share a
// goroutine. Every variant here is grounded on the same shape go-mcast's
// core.Memo and mutex-guarded peer state use: a flag that atomically
// transitions to signal availability, and a payload a reader only
// dereferences once that transition has been observed.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// Box is a single-flag, single-payload slot: exactly one pending send is
// ever in flight at a time. Used by broadcast (both topologies) and
// scatter-binomial.
type Box struct {
	flag    int32
	mu      sync.Mutex
	payload []byte
}

func NewBox() *Box { return &Box{} }

// Send publishes payload and flips the flag from empty to full.
func (b *Box) Send(payload []byte) {
	b.mu.Lock()
	b.payload = payload
	b.mu.Unlock()
	atomic.StoreInt32(&b.flag, 1)
}

// TryRecv atomically claims the payload if present, resetting the flag to
// empty so the slot can be reused by a later round.
func (b *Box) TryRecv() ([]byte, bool) {
	if !atomic.CompareAndSwapInt32(&b.flag, 1, 0) {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payload, true
}

// ElementsBox is a Box whose payload is a list of elements rather than one
// opaque blob. Used by scatter-binary, where a parent delivers a residual
// bundle to a child exactly once.
type ElementsBox struct {
	flag    int32
	mu      sync.Mutex
	payload [][]byte
}

func NewElementsBox() *ElementsBox { return &ElementsBox{} }

func (b *ElementsBox) Send(payload [][]byte) {
	b.mu.Lock()
	b.payload = payload
	b.mu.Unlock()
	atomic.StoreInt32(&b.flag, 1)
}

func (b *ElementsBox) TryRecv() ([][]byte, bool) {
	if !atomic.CompareAndSwapInt32(&b.flag, 1, 0) {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payload, true
}

// Parity selects which slot of a dual-slot mailbox a sender should use.
// Left binary-tree children are always odd-ranked, right children always
// even-ranked, so parity alone determines the slot.
type Parity int

const (
	Odd Parity = iota
	Even
)

// DualBox holds one Box per parity, used by reduce-binary where each of up
// to two children contributes a single already-reduced value.
type DualBox struct {
	Odd, Even Box
}

func NewDualBox() *DualBox { return &DualBox{} }

func (d *DualBox) Send(p Parity, payload []byte) {
	if p == Odd {
		d.Odd.Send(payload)
	} else {
		d.Even.Send(payload)
	}
}

func (d *DualBox) TryRecv(p Parity) ([]byte, bool) {
	if p == Odd {
		return d.Odd.TryRecv()
	}
	return d.Even.TryRecv()
}

// DualElementsBox holds one ElementsBox per parity, used by gather-binary
// where each child contributes its whole subtree's block sequence once.
type DualElementsBox struct {
	Odd, Even ElementsBox
}

func NewDualElementsBox() *DualElementsBox { return &DualElementsBox{} }

func (d *DualElementsBox) Send(p Parity, payload [][]byte) {
	if p == Odd {
		d.Odd.Send(payload)
	} else {
		d.Even.Send(payload)
	}
}

func (d *DualElementsBox) TryRecv(p Parity) ([][]byte, bool) {
	if p == Odd {
		return d.Odd.TryRecv()
	}
	return d.Even.TryRecv()
}

// Accumulator is an append-only sequence of byte-string contributions, read
// back once at least a target count has arrived. Unlike Box, multiple
// distinct senders can each append once over the lifetime of the
// collective, arriving in any order — used by gather-binomial and
// reduce-binomial, whose binomial schedule has a single rank receive from
// several different peers across different rounds, not necessarily in the
// order those rounds were numbered.
type Accumulator struct {
	mu      sync.Mutex
	entries [][]byte
}

func NewAccumulator() *Accumulator { return &Accumulator{} }

func (a *Accumulator) Append(payload []byte) {
	a.mu.Lock()
	a.entries = append(a.entries, payload)
	a.mu.Unlock()
}

// DrainAtLeast returns a snapshot of the accumulated entries once at least n
// have arrived, clearing the accumulator. Callers that need more after
// DrainAtLeast returns shouldn't happen in this protocol: each rank computes
// up front exactly how many contributions it expects.
func (a *Accumulator) DrainAtLeast(n int) ([][]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) < n {
		return nil, false
	}
	out := make([][]byte, len(a.entries))
	copy(out, a.entries)
	a.entries = nil
	return out, true
}
