package collective

import (
	"context"
	"fmt"

	"github.com/jabolina/collectives/internal/debugcheck"
	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/mailbox"
	"github.com/jabolina/collectives/internal/topology"
)

// Scatter splits the root's input into equal blocks and delivers block rel
// to participant rel, in rotated coordinates.
type Scatter struct {
	*base
	binaryBoxes   []*mailbox.ElementsBox // scatter-binary: residual bundle, delivered once
	binomialBoxes []*mailbox.Box         // scatter-binomial: whole batch, codec-encoded
}

func NewScatter(ctx context.Context, rt fabric.Runtime, name string, root int, opts ...Option) (*Scatter, error) {
	b, err := newBase(rt, name, root, opts...)
	if err != nil {
		return nil, err
	}
	sc := &Scatter{base: b}
	if b.cfg.Topology == Binary {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewElementsBox() })
		if err != nil {
			return nil, err
		}
		boxes := make([]*mailbox.ElementsBox, len(raw))
		for i, v := range raw {
			boxes[i] = v.(*mailbox.ElementsBox)
		}
		sc.binaryBoxes = boxes
	} else {
		raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewBox() })
		if err != nil {
			return nil, err
		}
		boxes, err := toBoxes(raw)
		if err != nil {
			return nil, err
		}
		sc.binomialBoxes = boxes
	}
	return sc, nil
}

// Invoke scatters in (only meaningful on the root, where it must have
// length blockSize*n) into out, which receives exactly this rank's
// blockSize-element slice.
func (sc *Scatter) Invoke(ctx context.Context, in [][]byte, blockSize int, out *[][]byte) error {
	if err := sc.markInvoked(); err != nil {
		return err
	}
	var err error
	if sc.cfg.Topology == Binary {
		err = sc.invokeBinary(ctx, in, blockSize, out)
	} else {
		err = sc.invokeBinomial(ctx, in, blockSize, out)
	}
	if err != nil {
		return err
	}
	return sc.fence(ctx)
}

func (sc *Scatter) invokeBinary(ctx context.Context, in [][]byte, blockSize int, out *[][]byte) error {
	var elements [][]byte
	if sc.rel == 0 {
		if len(in) != blockSize*sc.n {
			return ErrUnevenInput
		}
		debugcheck.Assert(sc.cfg.Strict, blockSize > 0, "scatter: blockSize must be positive, got %d", blockSize)
		own := in[0:blockSize]
		left, right, hasLeft, hasRight := topology.Children(0, sc.n)
		if hasLeft {
			sc.sendElementsBinary(ctx, left, subtreeElements(left, sc.n, blockSize, in))
		}
		if hasRight {
			sc.sendElementsBinary(ctx, right, subtreeElements(right, sc.n, blockSize, in))
		}
		*out = own
		return nil
	}

	debugcheck.Assert(sc.cfg.Strict, len(in) == 0, "scatter: non-root rank %d must not supply input, got %d elements", sc.rel, len(in))
	sc.spin("scatter mailbox", func() bool {
		p, ok := sc.binaryBoxes[sc.rt.Rank()].TryRecv()
		if ok {
			elements = p
		}
		return ok
	})
	own := elements[0:blockSize]
	residual := elements[blockSize:]
	left, right, hasLeft, hasRight := topology.Children(sc.rel, sc.n)
	leftCount := 0
	if hasLeft {
		leftCount = topology.SubtreeSize(left, sc.n) * blockSize
		sc.sendElementsBinary(ctx, left, residual[:leftCount])
	}
	if hasRight {
		sc.sendElementsBinary(ctx, right, residual[leftCount:])
	}
	*out = own
	return nil
}

// subtreeElements builds the depth-first bundle for rel's binary subtree:
// rel's own block followed by its left subtree's bundle then its right
// subtree's bundle, so that each hop only has to peel its own block off the
// front and split the remainder by the (statically known) sizes of its own
// children's subtrees.
func subtreeElements(rel, n, blockSize int, in [][]byte) [][]byte {
	if rel >= n {
		return nil
	}
	block := in[rel*blockSize : (rel+1)*blockSize]
	out := append([][]byte{}, block...)
	left, right, hasLeft, hasRight := topology.Children(rel, n)
	if hasLeft {
		out = append(out, subtreeElements(left, n, blockSize, in)...)
	}
	if hasRight {
		out = append(out, subtreeElements(right, n, blockSize, in)...)
	}
	return out
}

func (sc *Scatter) sendElementsBinary(ctx context.Context, targetRel int, elements [][]byte) {
	boxes := sc.binaryBoxes
	sc.sendTo(ctx, targetRel, func(ctx context.Context, target int) {
		boxes[target].Send(elements)
	})
}

func (sc *Scatter) invokeBinomial(ctx context.Context, in [][]byte, blockSize int, out *[][]byte) error {
	var elements [][]byte
	if sc.rel == 0 {
		if len(in) != blockSize*sc.n {
			return ErrUnevenInput
		}
		elements = in
	} else {
		debugcheck.Assert(sc.cfg.Strict, len(in) == 0, "scatter: non-root rank %d must not supply input, got %d elements", sc.rel, len(in))
	}
	path := topology.BinomialPath(sc.rel, sc.n)
	for _, s := range path {
		switch s.Role {
		case topology.Low:
			splitAt := (s.Mid - s.Lo) * blockSize
			upper := elements[splitAt:]
			if err := sc.sendElementsBinomial(ctx, s.Mid, upper); err != nil {
				return err
			}
			elements = elements[:splitAt]
		case topology.High:
			var decodeErr error
			sc.spin("scatter mailbox", func() bool {
				p, ok := sc.binomialBoxes[sc.rt.Rank()].TryRecv()
				if !ok {
					return false
				}
				if err := sc.cfg.Codec.Decode(p, &elements); err != nil {
					decodeErr = err
					return true
				}
				return true
			})
			if decodeErr != nil {
				return fmt.Errorf("%w: %v", ErrSerialization, decodeErr)
			}
		}
	}
	*out = elements
	return nil
}

func (sc *Scatter) sendElementsBinomial(ctx context.Context, targetRel int, elements [][]byte) error {
	data, err := sc.cfg.Codec.Encode(elements)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	boxes := sc.binomialBoxes
	sc.sendTo(ctx, targetRel, func(ctx context.Context, target int) {
		boxes[target].Send(data)
	})
	return nil
}
