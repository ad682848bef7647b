package collective

import (
	"context"
	"fmt"

	"github.com/jabolina/collectives/internal/debugcheck"
	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/mailbox"
	"github.com/jabolina/collectives/internal/topology"
	"github.com/jabolina/collectives/internal/wire"
)

// Reduce combines every participant's value with an associative ReduceOp and
// delivers the combined result to the root.
type Reduce struct {
	*base
	op            ReduceOp
	binaryBoxes   []*mailbox.DualBox     // reduce-binary
	binomialBoxes []*mailbox.Accumulator // reduce-binomial
}

func NewReduce(ctx context.Context, rt fabric.Runtime, name string, root int, op ReduceOp, opts ...Option) (*Reduce, error) {
	b, err := newBase(rt, name, root, opts...)
	if err != nil {
		return nil, err
	}
	debugcheck.Assert(b.cfg.Strict, op != nil, "reduce: op must not be nil")
	r := &Reduce{base: b, op: op}
	if b.cfg.Topology == Binary {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewDualBox() })
		if err != nil {
			return nil, err
		}
		boxes := make([]*mailbox.DualBox, len(raw))
		for i, v := range raw {
			boxes[i] = v.(*mailbox.DualBox)
		}
		r.binaryBoxes = boxes
	} else {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewAccumulator() })
		if err != nil {
			return nil, err
		}
		boxes := make([]*mailbox.Accumulator, len(raw))
		for i, v := range raw {
			boxes[i] = v.(*mailbox.Accumulator)
		}
		r.binomialBoxes = boxes
	}
	return r, nil
}

// Invoke folds in — this rank's own contributions — onto init via op to
// produce its local value, then combines that local value with every other
// participant's via the same op; on the root *out receives the final
// combined result. Non-root's *out is left untouched. A rank with nothing of
// its own to contribute passes a nil or empty in, folding down to init.
func (r *Reduce) Invoke(ctx context.Context, in [][]byte, init []byte, out *[]byte) error {
	if err := r.markInvoked(); err != nil {
		return err
	}
	own, err := foldLocal(r.op, init, in)
	if err != nil {
		return err
	}
	if r.cfg.Topology == Binary {
		err = r.invokeBinary(ctx, own, out)
	} else {
		err = r.invokeBinomial(ctx, own, out)
	}
	if err != nil {
		return err
	}
	return r.fence(ctx)
}

// foldLocal combines init with each element of in, in order, via op — the
// local reduction step spec.md §4.5 requires every Reduce call to perform
// before the tree-wide combine begins.
func foldLocal(op ReduceOp, init []byte, in [][]byte) ([]byte, error) {
	combined := init
	var err error
	for _, v := range in {
		combined, err = op(combined, v)
		if err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// invokeBinary combines as op(op(own, odd-child), even-child), the same
// own-first convention for every node including the root — the reference
// implementation this is grounded on special-cases the root's combine order
// differently from interior nodes; this edition uses one consistent order
// throughout instead of reproducing that asymmetry.
func (r *Reduce) invokeBinary(ctx context.Context, own []byte, out *[]byte) error {
	_, _, hasLeft, hasRight := topology.Children(r.rel, r.n)
	var leftVal, rightVal []byte
	gotLeft, gotRight := !hasLeft, !hasRight
	me := r.rt.Rank()
	r.spin("reduce mailbox", func() bool {
		if !gotLeft {
			if v, ok := r.binaryBoxes[me].TryRecv(mailbox.Odd); ok {
				leftVal, gotLeft = v, true
			}
		}
		if !gotRight {
			if v, ok := r.binaryBoxes[me].TryRecv(mailbox.Even); ok {
				rightVal, gotRight = v, true
			}
		}
		return gotLeft && gotRight
	})

	combined := own
	var err error
	if hasLeft {
		combined, err = r.op(combined, leftVal)
		if err != nil {
			return err
		}
	}
	if hasRight {
		combined, err = r.op(combined, rightVal)
		if err != nil {
			return err
		}
	}

	if r.rel == 0 {
		*out = combined
		return nil
	}

	parent := topology.Parent(r.rel)
	parity := mailbox.Odd
	if topology.IsEven(r.rel) {
		parity = mailbox.Even
	}
	boxes := r.binaryBoxes
	r.sendTo(ctx, parent, func(ctx context.Context, target int) {
		boxes[target].Send(parity, combined)
	})
	return nil
}

// invokeBinomial combines contributions as they arrive, in whichever order
// the schedule's senders happen to reach this rank; the FromRel tag is not
// used to reorder them, so the result is deterministic only for a
// commutative op.
func (r *Reduce) invokeBinomial(ctx context.Context, own []byte, out *[]byte) error {
	path := topology.BinomialPath(r.rel, r.n)
	lowCount := 0
	sendTarget := -1
	for _, s := range path {
		switch s.Role {
		case topology.Low:
			lowCount++
		case topology.High:
			sendTarget = s.Lo
		}
	}

	me := r.rt.Rank()
	var entries [][]byte
	r.spin("reduce mailbox", func() bool {
		e, ok := r.binomialBoxes[me].DrainAtLeast(lowCount)
		if ok {
			entries = e
		}
		return ok
	})

	combined := own
	for _, e := range entries {
		tagged, err := wire.DecodeTagged(r.cfg.Codec, e)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		combined, err = r.op(combined, tagged.Data)
		if err != nil {
			return err
		}
	}

	if sendTarget == -1 {
		*out = combined
		return nil
	}

	tagged, err := wire.EncodeTagged(r.cfg.Codec, r.rel, combined)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	boxes := r.binomialBoxes
	r.sendTo(ctx, sendTarget, func(ctx context.Context, target int) {
		boxes[target].Append(tagged)
	})
	return nil
}
