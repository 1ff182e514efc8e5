package syntax

import "reflect"

// Rewrite returns the tree rooted at n with f applied to every node,
// children first. f receives a node whose children are already rewritten and
// returns its replacement, or the node itself to keep it. The input tree is
// never modified: a parent whose children changed is copied (keeping its ID)
// and unchanged subtrees are shared. A nil replacement inside a slice drops
// the element.
func Rewrite(n Node, f func(Node) Node) Node {
	if IsNil(n) {
		return n
	}
	v := reflect.ValueOf(n)
	nv, changed := rewriteStruct(v.Elem(), f)
	cur := n
	if changed {
		p := reflect.New(nv.Type())
		p.Elem().Set(nv)
		cur = p.Interface().(Node)
	}
	return f(cur)
}

func rewriteStruct(v reflect.Value, f func(Node) Node) (reflect.Value, bool) {
	var cp reflect.Value
	changed := false
	for _, i := range planFor(v.Type()) {
		nf, ch := rewriteValue(v.Field(i), f)
		if !ch {
			continue
		}
		if !changed {
			cp = reflect.New(v.Type()).Elem()
			cp.Set(v)
			changed = true
		}
		cp.Field(i).Set(nf)
	}
	if !changed {
		return v, false
	}
	return cp, true
}

func rewriteValue(v reflect.Value, f func(Node) Node) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return v, false
		}
		if n, ok := asNode(v); ok {
			r := Rewrite(n, f)
			if r == n {
				return v, false
			}
			if IsNil(r) {
				return reflect.Zero(v.Type()), true
			}
			return reflect.ValueOf(r), true
		}
		if v.Kind() != reflect.Ptr {
			return v, false
		}
		nv, ch := rewriteStruct(v.Elem(), f)
		if !ch {
			return v, false
		}
		p := reflect.New(nv.Type())
		p.Elem().Set(nv)
		return p, true
	case reflect.Slice:
		var out reflect.Value
		changed := false
		for j := 0; j < v.Len(); j++ {
			nv, ch := rewriteValue(v.Index(j), f)
			if !changed && ch {
				out = reflect.MakeSlice(v.Type(), 0, v.Len())
				out = reflect.AppendSlice(out, v.Slice(0, j))
				changed = true
			}
			if !changed {
				continue
			}
			if nv.Kind() == reflect.Interface || nv.Kind() == reflect.Ptr {
				if nv.IsNil() {
					continue
				}
			}
			out = reflect.Append(out, nv)
		}
		if !changed {
			return v, false
		}
		return out, true
	}
	return v, false
}

// Detach returns a deep copy of the tree rooted at n in which every node
// has no ID, ready to be stamped again where the copy is placed.
func Detach[N Node](n N) N {
	if IsNil(n) {
		return n
	}
	out := Rewrite(n, func(c Node) Node {
		v := reflect.ValueOf(c).Elem()
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		cp := p.Interface().(Node)
		cp.base().NodeID = 0
		return cp
	})
	return out.(N)
}

// MaxID returns the largest node ID in the given trees.
func MaxID(roots ...Node) NodeID {
	var max NodeID
	for _, r := range roots {
		Inspect(r, func(n Node) bool {
			if n.ID() > max {
				max = n.ID()
			}
			return true
		})
	}
	return max
}

// Number gives every node without an ID a fresh one, in document order, and
// returns the largest ID in use.
func Number(roots ...Node) NodeID {
	alloc := NewIDAllocator(MaxID(roots...))
	for _, r := range roots {
		Inspect(r, func(n Node) bool {
			if b := n.base(); b.NodeID == 0 {
				b.NodeID = alloc.Next()
			}
			return true
		})
	}
	return alloc.Last()
}

// IDAllocator hands out node IDs above a starting point.
type IDAllocator struct {
	last NodeID
}

func NewIDAllocator(after NodeID) *IDAllocator {
	return &IDAllocator{last: after}
}

func (a *IDAllocator) Next() NodeID {
	a.last++
	return a.last
}

// Last is the most recently issued ID.
func (a *IDAllocator) Last() NodeID { return a.last }

// Stamp assigns fresh IDs to the synthesized nodes under n, and pos to
// those without a position. Nodes that already have an ID keep it.
func (a *IDAllocator) Stamp(n Node, pos Pos) Node {
	Inspect(n, func(c Node) bool {
		b := c.base()
		if b.NodeID != 0 {
			return true
		}
		b.NodeID = a.Next()
		if !b.At.IsValid() {
			b.At = pos
		}
		return true
	})
	return n
}
