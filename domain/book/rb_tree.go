package book

type color uint8

const (
	red   color = 0
	black color = 1
)

type node struct {
	key    int64
	level  *PriceLevel
	color  color
	left   *node
	right  *node
	parent *node
}

// RBTree keys price levels by price. One tree per book side: bids are read
// from the max end, asks from the min end.
type RBTree struct {
	root *node
	nil  *node // shared black sentinel
	size int
}

func NewRBTree() *RBTree {
	sentinel := &node{color: black}
	return &RBTree{
		root: sentinel,
		nil:  sentinel,
	}
}

func (t *RBTree) Size() int { return t.size }

func (t *RBTree) FindLevel(price int64) *PriceLevel {
	n := t.search(price)
	if n == t.nil {
		return nil
	}
	return n.level
}

// UpsertLevel returns the level at price, creating it if absent.
func (t *RBTree) UpsertLevel(price int64) *PriceLevel {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		if price < x.key {
			x = x.left
		} else if price > x.key {
			x = x.right
		} else {
			return x.level
		}
	}

	lvl := &PriceLevel{Price: price}
	z := &node{
		key:    price,
		level:  lvl,
		color:  red,
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}
	if y == t.nil {
		t.root = z
	} else if z.key < y.key {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return lvl
}

func (t *RBTree) DeleteLevel(price int64) bool {
	z := t.search(price)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

func (t *RBTree) MinLevel() *PriceLevel {
	n := t.min(t.root)
	if n == t.nil {
		return nil
	}
	return n.level
}

func (t *RBTree) MaxLevel() *PriceLevel {
	n := t.max(t.root)
	if n == t.nil {
		return nil
	}
	return n.level
}

// ForEachAscending visits levels from lowest to highest price until fn
// returns false.
func (t *RBTree) ForEachAscending(fn func(*PriceLevel) bool) {
	for n := t.min(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

// ForEachDescending visits levels from highest to lowest price until fn
// returns false.
func (t *RBTree) ForEachDescending(fn func(*PriceLevel) bool) {
	for n := t.max(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

// Clear resets the tree. Used when rebuilding from a snapshot.
func (t *RBTree) Clear() {
	t.root = t.nil
	t.size = 0
}

// ---- internals (CLRS red-black machinery) ----

func (t *RBTree) search(price int64) *node {
	n := t.root
	for n != t.nil {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n
		}
	}
	return t.nil
}

func (t *RBTree) min(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *RBTree) max(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *RBTree) next(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	if n.right != t.nil {
		return t.min(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree) prev(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	if n.left != t.nil {
		return t.max(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *RBTree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *RBTree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *RBTree) transplant(u, v *node) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *RBTree) deleteNode(z *node) {
	y := z
	yOrigColor := y.color
	var x *node

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.min(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *RBTree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(x.parent)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
