package depsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func follow(h, leader int) Node[int] {
	return Node[int]{Handle: h, Leader: leader, Follows: true}
}

func solo(h int) Node[int] {
	return Node[int]{Handle: h}
}

func TestLeadersComeFirst(t *testing.T) {
	res := Sort([]Node[int]{follow(1, 5), follow(2, 1), solo(5), solo(3)})
	require.Empty(t, res.Cycles)
	assert.Equal(t, []int{3, 5, 1, 2}, res.Order)
}

func TestMissingLeaderIsIgnored(t *testing.T) {
	res := Sort([]Node[int]{follow(4, 99), solo(2)})
	assert.Equal(t, []int{2, 4}, res.Order)
}

func TestCycleIsBrokenAndDownstreamFollows(t *testing.T) {
	// 1 -> 2 -> 3 -> 1, with 7 following 3 and 8 following 7.
	res := Sort([]Node[int]{follow(8, 7), follow(7, 3), follow(1, 2), follow(2, 3), follow(3, 1), solo(4)})

	require.Equal(t, [][]int{{1, 2, 3}}, res.Cycles)
	assert.True(t, res.Broken(2))
	assert.False(t, res.Broken(7))
	assert.Equal(t, []int{1, 2, 3, 4, 7, 8}, res.Order)
}

func TestSelfFollowIsACycle(t *testing.T) {
	res := Sort([]Node[int]{follow(6, 6), follow(5, 6)})
	require.Equal(t, [][]int{{6}}, res.Cycles)
	assert.Equal(t, []int{6, 5}, res.Order)
}

func TestTwoCyclesOrderedBySmallestHandle(t *testing.T) {
	res := Sort([]Node[string]{
		{Handle: "d", Leader: "c", Follows: true},
		{Handle: "c", Leader: "d", Follows: true},
		{Handle: "b", Leader: "a", Follows: true},
		{Handle: "a", Leader: "b", Follows: true},
	})
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, res.Cycles)
	assert.Equal(t, []string{"a", "b", "c", "d"}, res.Order)
}

func TestOrderIsIndependentOfInputOrder(t *testing.T) {
	a := Sort([]Node[int]{follow(1, 2), solo(2), follow(3, 1), solo(0)})
	b := Sort([]Node[int]{solo(0), follow(3, 1), solo(2), follow(1, 2)})
	assert.Equal(t, a, b)
}
