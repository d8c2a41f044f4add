package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

const nullNode = -1

type treeNode struct {
	// Leaf boxes are enlarged by the tree margin.
	box  AABB
	item int

	// Free list link for unused nodes.
	parent int
	next   int

	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == nullNode
}

// Tree is a dynamic AABB tree. Leaves hold an item index and a box enlarged
// by Margin so small moves do not trigger a reinsertion. Nodes are pooled and
// addressed by index.
type Tree struct {
	Margin float64

	root     int
	nodes    []treeNode
	freeList int
	count    int
}

// NewTree creates an empty tree.
func NewTree(margin float64) *Tree {
	return &Tree{Margin: margin, root: nullNode, freeList: nullNode}
}

func (t *Tree) allocate() int {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, treeNode{})
		t.freeList = len(t.nodes) - 1
		t.nodes[t.freeList].next = nullNode
	}
	id := t.freeList
	t.freeList = t.nodes[id].next
	t.nodes[id] = treeNode{parent: nullNode, child1: nullNode, child2: nullNode, item: -1}
	t.count++
	return id
}

func (t *Tree) free(id int) {
	t.nodes[id].next = t.freeList
	t.nodes[id].height = -1
	t.freeList = id
	t.count--
}

// Insert adds an item with the given box and returns its proxy id.
func (t *Tree) Insert(box AABB, item int) int {
	id := t.allocate()
	t.nodes[id].box = box.Expand(t.Margin)
	t.nodes[id].item = item
	t.insertLeaf(id)
	return id
}

// Remove deletes a proxy.
func (t *Tree) Remove(proxy int) {
	t.removeLeaf(proxy)
	t.free(proxy)
}

// Move updates a proxy box. It reports whether the proxy was reinserted.
func (t *Tree) Move(proxy int, box AABB, displacement mgl64.Vec3) bool {
	if t.nodes[proxy].box.Contains(box) {
		return false
	}
	t.removeLeaf(proxy)
	t.nodes[proxy].box = box.Expand(t.Margin).Sweep(displacement.Mul(2))
	t.insertLeaf(proxy)
	return true
}

// Item returns the item stored at a proxy.
func (t *Tree) Item(proxy int) int {
	return t.nodes[proxy].item
}

// FatBox returns the enlarged box of a proxy.
func (t *Tree) FatBox(proxy int) AABB {
	return t.nodes[proxy].box
}

// Len returns the number of live nodes, leaves and branches.
func (t *Tree) Len() int {
	return t.count
}

// Height returns the height of the root, 0 for an empty tree.
func (t *Tree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// Query calls fn with the item of every leaf overlapping box until fn
// returns false.
func (t *Tree) Query(box AABB, fn func(item int) bool) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}
		node := &t.nodes[id]
		if !node.box.Overlaps(box) {
			continue
		}
		if node.isLeaf() {
			if !fn(node.item) {
				return
			}
			continue
		}
		stack = append(stack, node.child1, node.child2)
	}
}

// RayCast walks the leaves whose box the ray origin + t*direction crosses for
// t in [0, maxT]. fn returns the new clip parameter: 0 stops the walk, a
// value in (0, maxT) shortens the ray and a negative value ignores the leaf.
func (t *Tree) RayCast(origin, direction mgl64.Vec3, maxT float64, fn func(item int, maxT float64) float64) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == nullNode {
			continue
		}
		node := &t.nodes[id]
		if _, ok := node.box.RayCast(origin, direction, maxT); !ok {
			continue
		}
		if !node.isLeaf() {
			stack = append(stack, node.child1, node.child2)
			continue
		}
		value := fn(node.item, maxT)
		if value == 0 {
			return
		}
		if value > 0 {
			maxT = value
		}
	}
}

func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling by descending while the cost decreases.
	leafBox := t.nodes[leaf].box
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].box.SurfaceArea()
		combined := t.nodes[index].box.Union(leafBox).SurfaceArea()

		// Cost of a new parent for this node and the leaf.
		cost := 2 * combined
		// Minimum cost of pushing the leaf further down.
		inheritance := 2 * (combined - area)

		cost1 := t.descendCost(child1, leafBox) + inheritance
		cost2 := t.descendCost(child2, leafBox) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocate()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].box = leafBox.Union(t.nodes[sibling].box)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func (t *Tree) descendCost(child int, leafBox AABB) float64 {
	box := leafBox.Union(t.nodes[child].box)
	if t.nodes[child].isLeaf() {
		return box.SurfaceArea()
	}
	return box.SurfaceArea() - t.nodes[child].box.SurfaceArea()
}

// refit walks up from index, balancing and recomputing boxes and heights.
func (t *Tree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].box = t.nodes[child1].box.Union(t.nodes[child2].box)

		index = t.nodes[index].parent
	}
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.free(parent)
		return
	}

	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.free(parent)
	t.refit(grandParent)
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the new subtree root.
func (t *Tree) balance(iA int) int {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB, iC := A.child1, A.child2
	B, C := &t.nodes[iB], &t.nodes[iC]
	balance := C.height - B.height

	// Rotate C up.
	if balance > 1 {
		iF, iG := C.child1, C.child2
		F, G := &t.nodes[iF], &t.nodes[iG]

		C.child1 = iA
		C.parent = A.parent
		A.parent = iC
		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.box = B.box.Union(G.box)
			C.box = A.box.Union(F.box)
			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.box = B.box.Union(F.box)
			C.box = A.box.Union(G.box)
			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}
		return iC
	}

	// Rotate B up.
	if balance < -1 {
		iD, iE := B.child1, B.child2
		D, E := &t.nodes[iD], &t.nodes[iE]

		B.child1 = iA
		B.parent = A.parent
		A.parent = iB
		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.box = C.box.Union(E.box)
			B.box = A.box.Union(D.box)
			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.box = C.box.Union(D.box)
			B.box = A.box.Union(E.box)
			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}
		return iB
	}

	return iA
}

func (t *Tree) replaceChild(parent, from, to int) {
	if parent == nullNode {
		t.root = to
		return
	}
	if t.nodes[parent].child1 == from {
		t.nodes[parent].child1 = to
	} else {
		t.nodes[parent].child2 = to
	}
}

// Validate checks parent links, heights and box containment.
func (t *Tree) Validate() error {
	if t.root == nullNode {
		return nil
	}
	if t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("actor: tree root %d has a parent", t.root)
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &t.nodes[id]
		if node.isLeaf() {
			if node.height != 0 {
				return fmt.Errorf("actor: leaf %d has height %d", id, node.height)
			}
			continue
		}
		c1, c2 := node.child1, node.child2
		if t.nodes[c1].parent != id || t.nodes[c2].parent != id {
			return fmt.Errorf("actor: node %d children have wrong parents", id)
		}
		if want := 1 + max(t.nodes[c1].height, t.nodes[c2].height); node.height != want {
			return fmt.Errorf("actor: node %d height %d, want %d", id, node.height, want)
		}
		if !node.box.Contains(t.nodes[c1].box) || !node.box.Contains(t.nodes[c2].box) {
			return fmt.Errorf("actor: node %d box does not enclose its children", id)
		}
		stack = append(stack, c1, c2)
	}
	return nil
}
