package collective

import (
	"context"
	"fmt"
	"sort"

	"github.com/jabolina/collectives/internal/debugcheck"
	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/mailbox"
	"github.com/jabolina/collectives/internal/topology"
	"github.com/jabolina/collectives/internal/wire"
)

// Gather is the inverse of Scatter: every participant contributes a block
// and the root ends up with the concatenation of all blocks, in rank order.
type Gather struct {
	*base
	binaryBoxes   []*mailbox.DualElementsBox // gather-binary
	binomialBoxes []*mailbox.Accumulator     // gather-binomial
}

func NewGather(ctx context.Context, rt fabric.Runtime, name string, root int, opts ...Option) (*Gather, error) {
	b, err := newBase(rt, name, root, opts...)
	if err != nil {
		return nil, err
	}
	g := &Gather{base: b}
	if b.cfg.Topology == Binary {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewDualElementsBox() })
		if err != nil {
			return nil, err
		}
		boxes := make([]*mailbox.DualElementsBox, len(raw))
		for i, v := range raw {
			boxes[i] = v.(*mailbox.DualElementsBox)
		}
		g.binaryBoxes = boxes
	} else {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewAccumulator() })
		if err != nil {
			return nil, err
		}
		boxes := make([]*mailbox.Accumulator, len(raw))
		for i, v := range raw {
			boxes[i] = v.(*mailbox.Accumulator)
		}
		g.binomialBoxes = boxes
	}
	return g, nil
}

// Invoke gathers in (this rank's own block) into out, which on the root
// receives the n*len(in)-element concatenation in ascending rank order.
// Non-root's out is left untouched.
func (g *Gather) Invoke(ctx context.Context, in [][]byte, out *[][]byte) error {
	if err := g.markInvoked(); err != nil {
		return err
	}
	debugcheck.Assert(g.cfg.Strict, len(in) > 0, "gather: rank %d supplied an empty block", g.rel)
	var err error
	if g.cfg.Topology == Binary {
		err = g.invokeBinary(ctx, in, out)
	} else {
		err = g.invokeBinomial(ctx, in, out)
	}
	if err != nil {
		return err
	}
	return g.fence(ctx)
}

func (g *Gather) invokeBinary(ctx context.Context, in [][]byte, out *[][]byte) error {
	_, _, hasLeft, hasRight := topology.Children(g.rel, g.n)
	var leftData, rightData [][]byte
	gotLeft, gotRight := !hasLeft, !hasRight
	me := g.rt.Rank()
	g.spin("gather mailbox", func() bool {
		if !gotLeft {
			if d, ok := g.binaryBoxes[me].TryRecv(mailbox.Odd); ok {
				leftData, gotLeft = d, true
			}
		}
		if !gotRight {
			if d, ok := g.binaryBoxes[me].TryRecv(mailbox.Even); ok {
				rightData, gotRight = d, true
			}
		}
		return gotLeft && gotRight
	})

	combined := append(append([][]byte{}, in...), leftData...)
	combined = append(combined, rightData...)

	if g.rel == 0 {
		// combined is in tree pre-order; move each rank's block to its rel slot.
		if b := len(in); len(combined) == b*g.n {
			ordered, stack, pos := make([][]byte, len(combined)), []int{0}, 0
			for len(stack) > 0 {
				rel := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if rel < g.n {
					copy(ordered[rel*b:(rel+1)*b], combined[pos:pos+b])
					pos += b
					left, right, _, _ := topology.Children(rel, g.n)
					stack = append(stack, right, left)
				}
			}
			combined = ordered
		}
		*out = combined
		return nil
	}

	parent := topology.Parent(g.rel)
	parity := mailbox.Odd
	if topology.IsEven(g.rel) {
		parity = mailbox.Even
	}
	boxes := g.binaryBoxes
	g.sendTo(ctx, parent, func(ctx context.Context, target int) {
		boxes[target].Send(parity, combined)
	})
	return nil
}

func (g *Gather) invokeBinomial(ctx context.Context, in [][]byte, out *[][]byte) error {
	path := topology.BinomialPath(g.rel, g.n)
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

	me := g.rt.Rank()
	var received []wire.Tagged
	var decodeErr error
	g.spin("gather mailbox", func() bool {
		entries, ok := g.binomialBoxes[me].DrainAtLeast(lowCount)
		if !ok {
			return false
		}
		received = make([]wire.Tagged, 0, len(entries))
		for _, e := range entries {
			tagged, err := wire.DecodeTagged(g.cfg.Codec, e)
			if err != nil {
				decodeErr = err
				return true
			}
			received = append(received, tagged)
		}
		return true
	})
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, decodeErr)
	}
	sort.Slice(received, func(i, j int) bool { return received[i].FromRel < received[j].FromRel })

	combined := append([][]byte{}, in...)
	for _, t := range received {
		var elements [][]byte
		if err := g.cfg.Codec.Decode(t.Data, &elements); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		combined = append(combined, elements...)
	}

	if sendTarget == -1 {
		*out = combined
		return nil
	}

	data, err := g.cfg.Codec.Encode(combined)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	tagged, err := wire.EncodeTagged(g.cfg.Codec, g.rel, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	boxes := g.binomialBoxes
	g.sendTo(ctx, sendTarget, func(ctx context.Context, target int) {
		boxes[target].Append(tagged)
	})
	return nil
}
