package syntax

import "strings"

// SymbolID addresses a symbol in a SymbolTable. Zero means unresolved.
type SymbolID int

// Symbol is a resolved declaration.
type Symbol struct {
	ID   SymbolID
	Kind SymbolKind
	Name string
	// Qualified is the dotted name of types, including namespace and
	// enclosing types.
	Qualified string
	Namespace string
	// Container is the declaring type of members and nested types, or the
	// declaring method of parameters and locals.
	Container SymbolID

	Access   Accessibility
	Static   bool
	Abstract bool
	Virtual  bool
	Override bool
	ReadOnly bool
	Partial  bool
	// HasBody is false for abstract, interface and partial stub methods.
	HasBody bool

	TypeKind   TypeKind
	Arity      int
	TypeParams []string
	Bases      []SymbolID
	// BaseNames are the base list entries as written, resolved or not.
	BaseNames []string

	// Type is the value type of variables or the return type of methods.
	// Nil means void or unknown.
	Type TypeExpr

	Params     []SymbolID
	Ref        RefKind
	HasDefault bool
	Variadic   bool

	Overrides  SymbolID
	Implements []SymbolID
	Attributes []string
}

// HasAttribute reports whether the symbol carries the named attribute. The
// "Attribute" suffix is optional on both sides.
func (s *Symbol) HasAttribute(name string) bool {
	name = strings.TrimSuffix(name, "Attribute")
	for _, a := range s.Attributes {
		if strings.TrimSuffix(a, "Attribute") == name {
			return true
		}
	}
	return false
}

// IsType reports whether the symbol names a type.
func (s *Symbol) IsType() bool { return s != nil && s.Kind == SymType }

// SymbolTable is an arena of symbols. A table may be forked: the fork reads
// every symbol of its parent and owns the ones added after forking. A parent
// must not gain symbols once it has been forked.
type SymbolTable struct {
	parent *SymbolTable
	first  SymbolID
	syms   []*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{first: 1}
}

// Fork returns a child table for private additions.
func (t *SymbolTable) Fork() *SymbolTable {
	return &SymbolTable{parent: t, first: t.next()}
}

func (t *SymbolTable) next() SymbolID {
	return t.first + SymbolID(len(t.syms))
}

// Add stores s, assigns its ID and returns it.
func (t *SymbolTable) Add(s *Symbol) SymbolID {
	s.ID = t.next()
	t.syms = append(t.syms, s)
	return s.ID
}

// Lookup returns the symbol for id, or nil when id is unresolved.
func (t *SymbolTable) Lookup(id SymbolID) *Symbol {
	for tab := t; tab != nil; tab = tab.parent {
		if id >= tab.first && id < tab.next() {
			return tab.syms[id-tab.first]
		}
	}
	return nil
}

// Len is the number of symbols visible through t.
func (t *SymbolTable) Len() int { return int(t.next() - 1) }

// Each calls f for every visible symbol in ID order.
func (t *SymbolTable) Each(f func(*Symbol)) {
	if t.parent != nil {
		t.parent.Each(f)
	}
	for _, s := range t.syms {
		f(s)
	}
}

// Params returns the parameter symbols of a method-like symbol.
func (t *SymbolTable) Params(id SymbolID) []*Symbol {
	s := t.Lookup(id)
	if s == nil {
		return nil
	}
	params := make([]*Symbol, 0, len(s.Params))
	for _, p := range s.Params {
		if ps := t.Lookup(p); ps != nil {
			params = append(params, ps)
		}
	}
	return params
}

// DeclaringType returns the nearest enclosing type symbol of id.
func (t *SymbolTable) DeclaringType(id SymbolID) *Symbol {
	s := t.Lookup(id)
	if s == nil {
		return nil
	}
	for c := t.Lookup(s.Container); c != nil; c = t.Lookup(c.Container) {
		if c.Kind == SymType {
			return c
		}
	}
	return nil
}

// Implements reports whether type id, or one of its bases, lists the
// interface with the given simple or qualified name.
func (t *SymbolTable) Implements(id SymbolID, iface string) bool {
	seen := map[SymbolID]bool{}
	var visit func(SymbolID) bool
	visit = func(id SymbolID) bool {
		if seen[id] {
			return false
		}
		seen[id] = true
		s := t.Lookup(id)
		if s == nil {
			return false
		}
		for _, name := range s.BaseNames {
			if name == iface || name[strings.LastIndex(name, ".")+1:] == iface {
				return true
			}
		}
		for _, b := range s.Bases {
			bs := t.Lookup(b)
			if bs != nil && (bs.Name == iface || bs.Qualified == iface) {
				return true
			}
			if visit(b) {
				return true
			}
		}
		return false
	}
	return visit(id)
}
