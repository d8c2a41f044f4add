package actor

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBoxes(n int, seed uint64) []AABB {
	rng := rand.New(rand.NewPCG(seed, 99))
	boxes := make([]AABB, n)
	for i := range boxes {
		lo := mgl64.Vec3{rng.Float64() * 50, rng.Float64() * 50, rng.Float64() * 50}
		size := mgl64.Vec3{rng.Float64() * 3, rng.Float64() * 3, rng.Float64() * 3}
		boxes[i] = AABB{Min: lo, Max: lo.Add(size)}
	}
	return boxes
}

func queryAll(tree *Tree, box AABB) []int {
	var found []int
	tree.Query(box, func(item int) bool {
		found = append(found, item)
		return true
	})
	slices.Sort(found)
	return found
}

func bruteForce(boxes []AABB, alive map[int]bool, box AABB) []int {
	var found []int
	for i, b := range boxes {
		if alive[i] && b.Overlaps(box) {
			found = append(found, i)
		}
	}
	return found
}

func TestTree_InsertQueryRemove(t *testing.T) {
	boxes := randomBoxes(200, 1)
	tree := NewTree(0)
	proxies := make([]int, len(boxes))
	alive := make(map[int]bool)
	for i, b := range boxes {
		proxies[i] = tree.Insert(b, i)
		alive[i] = true
	}
	require.NoError(t, tree.Validate())
	assert.Equal(t, 2*len(boxes)-1, tree.Len())
	// Balancing keeps the height logarithmic.
	assert.Less(t, tree.Height(), 20)

	queries := randomBoxes(30, 2)
	for _, q := range queries {
		assert.Equal(t, bruteForce(boxes, alive, q), queryAll(tree, q))
	}

	for i := 0; i < len(boxes); i += 2 {
		tree.Remove(proxies[i])
		delete(alive, i)
	}
	require.NoError(t, tree.Validate())
	assert.Equal(t, 2*len(alive)-1, tree.Len())
	for _, q := range queries {
		assert.Equal(t, bruteForce(boxes, alive, q), queryAll(tree, q))
	}
}

func TestTree_EarlyExit(t *testing.T) {
	tree := NewTree(0)
	for i, b := range randomBoxes(50, 3) {
		tree.Insert(b, i)
	}
	calls := 0
	tree.Query(AABB{Min: mgl64.Vec3{-100, -100, -100}, Max: mgl64.Vec3{100, 100, 100}}, func(int) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestTree_Move(t *testing.T) {
	tree := NewTree(0.5)
	box := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	p := tree.Insert(box, 7)
	tree.Insert(AABB{Min: mgl64.Vec3{5, 5, 5}, Max: mgl64.Vec3{6, 6, 6}}, 8)

	assert.Equal(t, 7, tree.Item(p))
	assert.True(t, tree.FatBox(p).Contains(box))

	// Inside the margin: no reinsertion.
	small := AABB{Min: mgl64.Vec3{0.2, 0, 0}, Max: mgl64.Vec3{1.2, 1, 1}}
	assert.False(t, tree.Move(p, small, mgl64.Vec3{0.2, 0, 0}))

	far := AABB{Min: mgl64.Vec3{10, 0, 0}, Max: mgl64.Vec3{11, 1, 1}}
	assert.True(t, tree.Move(p, far, mgl64.Vec3{10, 0, 0}))
	require.NoError(t, tree.Validate())
	assert.Equal(t, []int{7}, queryAll(tree, AABB{Min: mgl64.Vec3{10.5, 0.5, 0.5}, Max: mgl64.Vec3{10.6, 0.6, 0.6}}))
	assert.Empty(t, queryAll(tree, AABB{Min: mgl64.Vec3{2, 2, 2}, Max: mgl64.Vec3{3, 3, 3}}))
}

func TestTree_RayCast(t *testing.T) {
	tree := NewTree(0)
	for i := range 5 {
		x := float64(i * 3)
		tree.Insert(AABB{Min: mgl64.Vec3{x, 0, 0}, Max: mgl64.Vec3{x + 1, 1, 1}}, i)
	}

	var hits []int
	tree.RayCast(mgl64.Vec3{-1, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 8, func(item int, maxT float64) float64 {
		hits = append(hits, item)
		return -1
	})
	slices.Sort(hits)
	// Boxes starting at x = 0, 3 and 6 are within reach.
	assert.Equal(t, []int{0, 1, 2}, hits)

	var clipped []int
	tree.RayCast(mgl64.Vec3{-1, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 100, func(item int, maxT float64) float64 {
		clipped = append(clipped, item)
		return 0
	})
	assert.Len(t, clipped, 1)
}
