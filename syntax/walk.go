package syntax

import (
	"reflect"
	"sync"
)

var nodeType = reflect.TypeOf((*Node)(nil)).Elem()

// plans caches, per struct type, the indexes of fields that can hold nodes.
var plans sync.Map

func planFor(t reflect.Type) []int {
	if p, ok := plans.Load(t); ok {
		return p.([]int)
	}
	var idx []int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		if carriesNodes(f.Type) {
			idx = append(idx, i)
		}
	}
	plans.Store(t, idx)
	return idx
}

func carriesNodes(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.Implements(nodeType)
	case reflect.Ptr:
		if t.Elem().Kind() != reflect.Struct {
			return false
		}
		return t.Implements(nodeType) || len(planFor(t.Elem())) > 0
	case reflect.Slice:
		return carriesNodes(t.Elem())
	}
	return false
}

// asNode returns the node held by v, which must be an interface or pointer.
func asNode(v reflect.Value) (Node, bool) {
	if v.IsNil() {
		return nil, false
	}
	if v.Kind() == reflect.Interface {
		if e := v.Elem(); e.Kind() == reflect.Ptr && e.IsNil() {
			return nil, false
		}
	}
	n, ok := v.Interface().(Node)
	return n, ok
}

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Children returns the direct child nodes of n in document order. Children
// held by parts such as arguments or catch clauses are included.
func Children(n Node) []Node {
	if IsNil(n) {
		return nil
	}
	var out []Node
	collectStruct(reflect.ValueOf(n).Elem(), &out)
	return out
}

func collectStruct(v reflect.Value, out *[]Node) {
	for _, i := range planFor(v.Type()) {
		collectValue(v.Field(i), out)
	}
}

func collectValue(v reflect.Value, out *[]Node) {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return
		}
		if n, ok := asNode(v); ok {
			*out = append(*out, n)
			return
		}
		if v.Kind() == reflect.Ptr {
			collectStruct(v.Elem(), out)
		}
	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			collectValue(v.Index(j), out)
		}
	}
}

// Inspect traverses the tree rooted at n depth-first in document order.
// f is called before the children of a node; returning false skips them.
func Inspect(n Node, f func(Node) bool) {
	if IsNil(n) || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// InspectStack is Inspect with the ancestors of each node, outermost first.
func InspectStack(n Node, f func(n Node, stack []Node) bool) {
	var stack []Node
	var visit func(Node)
	visit = func(n Node) {
		if IsNil(n) || !f(n, stack) {
			return
		}
		stack = append(stack, n)
		for _, c := range Children(n) {
			visit(c)
		}
		stack = stack[:len(stack)-1]
	}
	visit(n)
}

// Find returns the first node under root, in document order, with the given ID.
func Find(root Node, id NodeID) Node {
	var found Node
	Inspect(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}
