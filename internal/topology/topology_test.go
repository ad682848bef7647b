package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChildrenAndParent(t *testing.T) {
	left, right, hasLeft, hasRight := Children(0, 4)
	require.Equal(t, 1, left)
	require.Equal(t, 2, right)
	require.True(t, hasLeft)
	require.True(t, hasRight)
	require.Equal(t, 0, Parent(1))
	require.Equal(t, 0, Parent(2))
	require.Equal(t, -1, Parent(0))
}

func TestIsLeaf(t *testing.T) {
	require.False(t, IsLeaf(0, 4))
	require.True(t, IsLeaf(2, 4))
	require.True(t, IsLeaf(3, 4))
}

func TestSubtreeSize(t *testing.T) {
	require.Equal(t, 4, SubtreeSize(0, 4))
	require.Equal(t, 2, SubtreeSize(1, 4))
	require.Equal(t, 1, SubtreeSize(2, 4))
	require.Equal(t, 1, SubtreeSize(3, 4))
}

func TestIsEvenMatchesChildParity(t *testing.T) {
	left, right, _, _ := Children(5, 100)
	require.False(t, IsEven(left))
	require.True(t, IsEven(right))
}

// TestBinomialPathCoversEveryRank verifies the recursive bisection used by
// the binomial algorithms reaches every participant, including for
// non-power-of-two counts where a naive floor(log2(n)) mask schedule would
// silently drop ranks.
func TestBinomialPathCoversEveryRank(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 13} {
		reached := make([]bool, n)
		for rel := 0; rel < n; rel++ {
			path := BinomialPath(rel, n)
			if len(path) == 0 {
				reached[rel] = true // n == 1, rel is trivially its own root
				continue
			}
			last := path[len(path)-1]
			require.NotEqual(t, Bystander, last.Role, "rel %d must act at the finest level for n=%d", rel, n)
			reached[rel] = true
		}
		for rel, ok := range reached {
			require.True(t, ok, "rel %d unreached for n=%d", rel, n)
		}
	}
}

func TestBinomialPathRootIsAlwaysLow(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		path := BinomialPath(0, n)
		for _, s := range path {
			require.Equal(t, Low, s.Role)
		}
	}
}
