package collective

import (
	"context"
	"fmt"

	"github.com/jabolina/collectives/internal/fabric"
	"github.com/jabolina/collectives/internal/mailbox"
	"github.com/jabolina/collectives/internal/topology"
)

// Broadcast delivers a single value held by the root to every participant.
type Broadcast struct {
	*base
	boxes []*mailbox.Box
}

// NewBroadcast constructs a broadcast instance. Every participant must call
// this with the same name, root and n (rt.RankCount()) before any of them
// calls Invoke.
func NewBroadcast(ctx context.Context, rt fabric.Runtime, name string, root int, opts ...Option) (*Broadcast, error) {
	b, err := newBase(rt, name, root, opts...)
	if err != nil {
		return nil, err
	}
	raw, err := rt.DistributedObject(ctx, name, b.n, func(int) interface{} { return mailbox.NewBox() })
	if err != nil {
		return nil, err
	}
	boxes, err := toBoxes(raw)
	if err != nil {
		return nil, err
	}
	return &Broadcast{base: b, boxes: boxes}, nil
}

func toBoxes(raw []interface{}) ([]*mailbox.Box, error) {
	boxes := make([]*mailbox.Box, len(raw))
	for i, v := range raw {
		box, ok := v.(*mailbox.Box)
		if !ok {
			return nil, fmt.Errorf("%w: expected *mailbox.Box replica", ErrNameCollision)
		}
		boxes[i] = box
	}
	return boxes, nil
}

// Invoke runs the broadcast. On entry, *value must hold the root's data (on
// the root) and is ignored elsewhere; on return every participant's *value
// holds the root's original bytes, forwarded verbatim rather than decoded
// and re-encoded at each hop.
func (bc *Broadcast) Invoke(ctx context.Context, value *[]byte) error {
	if err := bc.markInvoked(); err != nil {
		return err
	}
	var err error
	if bc.cfg.Topology == Binary {
		err = bc.invokeBinary(ctx, value)
	} else {
		err = bc.invokeBinomial(ctx, value)
	}
	if err != nil {
		return err
	}
	return bc.fence(ctx)
}

func (bc *Broadcast) invokeBinary(ctx context.Context, value *[]byte) error {
	payload := *value
	if bc.rel != 0 {
		bc.spin("broadcast mailbox", func() bool {
			p, ok := bc.boxes[bc.rt.Rank()].TryRecv()
			if ok {
				payload = p
			}
			return ok
		})
		*value = payload
	}
	left, right, hasLeft, hasRight := topology.Children(bc.rel, bc.n)
	if hasLeft {
		bc.sendRaw(ctx, left, payload)
	}
	if hasRight {
		bc.sendRaw(ctx, right, payload)
	}
	return nil
}

func (bc *Broadcast) invokeBinomial(ctx context.Context, value *[]byte) error {
	payload := *value
	path := topology.BinomialPath(bc.rel, bc.n)
	for _, s := range path {
		switch s.Role {
		case topology.Low:
			bc.sendRaw(ctx, s.Mid, payload)
		case topology.High:
			bc.spin("broadcast mailbox", func() bool {
				p, ok := bc.boxes[bc.rt.Rank()].TryRecv()
				if ok {
					payload = p
				}
				return ok
			})
		}
	}
	*value = payload
	return nil
}

func (bc *Broadcast) sendRaw(ctx context.Context, targetRel int, payload []byte) {
	boxes := bc.boxes
	bc.sendTo(ctx, targetRel, func(ctx context.Context, target int) {
		boxes[target].Send(payload)
	})
}
