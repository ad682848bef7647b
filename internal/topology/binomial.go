package topology

// Role describes what a rank does at one level of a binomial exchange.
type Role int

const (
	// Bystander: this level's split doesn't involve rel directly; rel
	// just narrows to the half it belongs to and keeps going.
	Bystander Role = iota
	// Low: rel is the lower endpoint of the current range. In the
	// fan-out direction (broadcast/scatter) it sends the upper half
	// away; in the fan-in direction (gather/reduce) it receives the
	// upper half's contribution.
	Low
	// High: rel is the midpoint of the current range, i.e. the lowest
	// rank of the upper half. In fan-out it receives; in fan-in it
	// sends its accumulated contribution upward and then is done.
	High
)

// Split describes one level of the recursive range bisection: the range
// [Lo, Hi) a collective step is currently working with, the midpoint that
// divides it into [Lo, Mid) and [Mid, Hi), and rel's Role at that level.
type Split struct {
	Lo, Mid, Hi int
	Role        Role
}

// BinomialPath returns, for participant rel among n participants, the
// sequence of range bisections it is involved in, ordered from the full
// [0, n) range down to its own singleton range.
//
// The split at each level always has Mid-Lo == ceil((Hi-Lo)/2), so unlike a
// power-of-two-only binomial tree this terminates correctly and covers every
// rank for arbitrary n (the textbook recursive-doubling fix for
// non-power-of-two participant counts, the same technique MPICH's binomial
// reduce uses).
func BinomialPath(rel, n int) []Split {
	var path []Split
	lo, hi := 0, n
	for hi-lo > 1 {
		mid := lo + (hi-lo+1)/2
		role := Bystander
		switch {
		case rel == lo:
			role = Low
		case rel == mid:
			role = High
		}
		path = append(path, Split{Lo: lo, Mid: mid, Hi: hi, Role: role})
		if rel < mid {
			hi = mid
		} else {
			lo = mid
		}
	}
	return path
}
