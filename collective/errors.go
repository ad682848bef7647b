package collective

import "errors"

// Sentinel errors for the misuse / transport / serialization categories the
// core recognizes, in go-mcast's errors.New sentinel style
// (ErrUnsupportedProtocol, ErrCommandUnknown).
var (
	ErrRootOutOfRange = errors.New("collective: root out of range")
	ErrNameCollision  = errors.New("collective: name already registered with a different shape")
	ErrSerialization  = errors.New("collective: serialization failure")
	ErrUnevenInput    = errors.New("collective: input length not evenly divisible by participant count")
	ErrAlreadyInvoked = errors.New("collective: instance already invoked once")
	ErrNoData         = errors.New("collective: no reduce elements supplied")
)
