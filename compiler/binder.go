package compiler

import (
	"fmt"
	"sort"

	"codebinder/syntax"
)

// Unbounded is the Max of a binding with a variadic parameter.
const Unbounded = -1

// MethodBinding is the target name and arity range of one method or
// constructor.
type MethodBinding struct {
	Symbol syntax.SymbolID
	Decl   DeclID
	Node   syntax.Node
	Name   string
	// Min counts required parameters. Max counts all of them, or is
	// Unbounded.
	Min, Max    int
	IsOverload  bool
	Constructor bool
	// Overridden is the binding of the base member this one overrides.
	// An override takes its name and arity so that callers through either
	// type reach the same member.
	Overridden *MethodBinding
}

// Overlaps reports whether some argument count fits both bindings.
func (b *MethodBinding) Overlaps(o *MethodBinding) bool {
	return b.Min <= upper(o.Max) && o.Min <= upper(b.Max)
}

func upper(max int) int {
	if max == Unbounded {
		return int(^uint(0) >> 1)
	}
	return max
}

func (b *MethodBinding) rangeString() string {
	if b.Max == Unbounded {
		return fmt.Sprintf("[%d,∞)", b.Min)
	}
	return fmt.Sprintf("[%d,%d]", b.Min, b.Max)
}

// AmbiguityError reports two members of one overload group that a target
// cannot tell apart.
type AmbiguityError struct {
	Type          string
	Name          string
	First, Second *MethodBinding
	Reason        string
}

func (e *AmbiguityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s.%s: %s", e.Type, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s.%s: overloads with parameter counts %s and %s cannot be distinguished",
		e.Type, e.Name, e.First.rangeString(), e.Second.rangeString())
}

// BinderOptions configure a Binder for one target.
type BinderOptions struct {
	Naming NamingPolicy
	// Check enables ambiguity detection.
	Check bool
	// Flat targets cannot overload at all.
	Flat         bool
	Constructors ConstructorPolicy
	// Forest, when set, lets Binding bind types outside the unit on demand.
	Forest *Forest
}

// Binder assigns bound names to methods and constructors. A binder holds
// per-unit state and must not be shared between units.
type Binder struct {
	symbols  *syntax.SymbolTable
	opts     BinderOptions
	groups   map[DeclID]map[string][]*MethodBinding
	bySymbol map[syntax.SymbolID]*MethodBinding
	bound    map[DeclID]bool
	errs     map[DeclID][]error

	// links is the undirected base-list graph of the forest, built on
	// first use.
	links      map[DeclID][]DeclID
	overloaded map[groupKey]bool
}

type groupKey struct {
	decl DeclID
	name string
}

func NewBinder(symbols *syntax.SymbolTable, opts BinderOptions) *Binder {
	return &Binder{
		symbols:  symbols,
		opts:     opts,
		groups:   map[DeclID]map[string][]*MethodBinding{},
		bySymbol: map[syntax.SymbolID]*MethodBinding{},
		bound:    map[DeclID]bool{},
		errs:     map[DeclID][]error{},

		overloaded: map[groupKey]bool{},
	}
}

// Bind binds the methods and constructors of node and returns the
// ambiguities found, each an *AmbiguityError. A node bound earlier on
// demand returns the ambiguities found then.
func (b *Binder) Bind(node *DeclarationNode) []error {
	if b.bound[node.ID] {
		return b.errs[node.ID]
	}
	b.bound[node.ID] = true
	var errs []error
	defer func() { b.errs[node.ID] = errs }()
	regular := 0
	var firstRegular *MethodBinding
	for _, m := range node.Members() {
		var mb *MethodBinding
		switch m := m.(type) {
		case *syntax.MethodDecl:
			if m.Partial && m.Body == nil {
				continue
			}
			if m.Explicit != nil {
				continue
			}
			mb = b.newBinding(node, m, m.Sym, m.Name, m.Params)
		case *syntax.ConstructorDecl:
			if m.Static {
				continue
			}
			mb = b.newBinding(node, m, m.Sym, node.Name, m.Params)
			mb.Constructor = true
			if b.opts.Constructors.SingleRegular && !hasAttribute(m.Attributes, b.constructorAnnotation()) {
				regular++
				if regular == 1 {
					firstRegular = mb
				} else {
					errs = append(errs, &AmbiguityError{
						Type: node.QualifiedName, Name: node.Name, First: firstRegular, Second: mb,
						Reason: fmt.Sprintf("only one constructor may omit the %s attribute", b.constructorAnnotation()),
					})
				}
			}
		default:
			continue
		}
		if err := b.record(node, mb); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Binder) constructorAnnotation() string {
	if b.opts.Constructors.Annotation != "" {
		return b.opts.Constructors.Annotation
	}
	return DefaultConstructorAnnotation
}

func (b *Binder) newBinding(node *DeclarationNode, n syntax.Node, sym syntax.SymbolID, name string, params []*syntax.Parameter) *MethodBinding {
	mb := &MethodBinding{Symbol: sym, Decl: node.ID, Node: n, Max: len(params)}
	for _, p := range params {
		switch {
		case p.Variadic:
			mb.Max = Unbounded
		case p.Default == nil:
			mb.Min++
		}
	}
	mb.Name = b.opts.Naming.MemberName(b.symbols, sym)
	if mb.Name == "" {
		mb.Name = name
	}
	if s := b.symbols.Lookup(sym); s != nil && s.Overrides != 0 {
		if base, ok := b.Binding(s.Overrides); ok {
			mb.Name = base.Name
			mb.Min, mb.Max = base.Min, base.Max
			mb.Overridden = base
		}
	}
	return mb
}

func (b *Binder) record(node *DeclarationNode, mb *MethodBinding) error {
	groups := b.groups[node.ID]
	if groups == nil {
		groups = map[string][]*MethodBinding{}
		b.groups[node.ID] = groups
	}
	group := groups[mb.Name]
	if b.opts.Check {
		for _, prev := range group {
			if b.opts.Flat {
				return &AmbiguityError{Type: node.QualifiedName, Name: mb.Name, First: prev, Second: mb,
					Reason: "the target has no overloading"}
			}
			if prev.Overlaps(mb) {
				return &AmbiguityError{Type: node.QualifiedName, Name: mb.Name, First: prev, Second: mb}
			}
		}
	}
	mb.IsOverload = len(group) > 0 || mb.Overridden != nil && mb.Overridden.IsOverload
	groups[mb.Name] = append(group, mb)
	if mb.Symbol != 0 {
		b.bySymbol[mb.Symbol] = mb
	}
	return nil
}

// Binding returns the binding of a method or constructor symbol. Members
// of program types outside the unit are bound on first use; their
// ambiguities are reported by their own unit.
func (b *Binder) Binding(sym syntax.SymbolID) (*MethodBinding, bool) {
	if mb, ok := b.bySymbol[sym]; ok {
		return mb, true
	}
	if b.opts.Forest == nil {
		return nil, false
	}
	owner := b.symbols.DeclaringType(sym)
	if owner == nil {
		return nil, false
	}
	node := b.opts.Forest.BySymbol(owner.ID)
	if node == nil || b.bound[node.ID] {
		return nil, false
	}
	b.Bind(node)
	mb, ok := b.bySymbol[sym]
	return mb, ok
}

// Group returns the overload group of name in the type.
func (b *Binder) Group(decl DeclID, name string) []*MethodBinding {
	return b.groups[decl][name]
}

// GroupNames returns the bound names used in the type, sorted.
func (b *Binder) GroupNames(decl DeclID) []string {
	names := make([]string, 0, len(b.groups[decl]))
	for name := range b.groups[decl] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overloaded reports whether the binding shares its name with another.
// Constructors are grouped per type. Methods are grouped across the types
// linked by base lists: one name with two arities anywhere in a hierarchy
// makes every member of that name overloaded, so that a member keeps one
// name in every type that declares or inherits it.
func (b *Binder) Overloaded(mb *MethodBinding) bool {
	if mb.Constructor {
		return len(b.groups[mb.Decl][mb.Name]) > 1
	}
	key := groupKey{mb.Decl, mb.Name}
	if v, ok := b.overloaded[key]; ok {
		return v
	}
	family := b.family(mb.Decl)
	arities := map[string]bool{}
	for _, d := range family {
		for _, m := range b.groups[d][mb.Name] {
			if !m.Constructor {
				arities[arityName(m)] = true
			}
		}
	}
	v := len(arities) > 1
	for _, d := range family {
		b.overloaded[groupKey{d, mb.Name}] = v
	}
	return v
}

// Dispatch returns the methods a call of name on the type can reach by
// argument count: the type's own group, then inherited members whose
// arity no nearer member already takes.
func (b *Binder) Dispatch(decl DeclID, name string) []*MethodBinding {
	var out []*MethodBinding
	taken := map[string]bool{}
	seen := map[DeclID]bool{}
	var visit func(DeclID)
	visit = func(d DeclID) {
		if seen[d] {
			return
		}
		seen[d] = true
		b.bindDecl(d)
		for _, mb := range b.groups[d][name] {
			if mb.Constructor || taken[arityName(mb)] {
				continue
			}
			taken[arityName(mb)] = true
			out = append(out, mb)
		}
		for _, base := range b.bases(d) {
			visit(base)
		}
	}
	visit(decl)
	return out
}

// family returns decl and the program types connected to it through base
// lists in either direction, all bound.
func (b *Binder) family(decl DeclID) []DeclID {
	out := []DeclID{decl}
	seen := map[DeclID]bool{decl: true}
	b.linkForest()
	for i := 0; i < len(out); i++ {
		b.bindDecl(out[i])
		for _, next := range b.links[out[i]] {
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

// bases returns the program types named in the base list of decl.
func (b *Binder) bases(decl DeclID) []DeclID {
	f := b.opts.Forest
	if f == nil || f.Node(decl) == nil {
		return nil
	}
	s := b.symbols.Lookup(f.Node(decl).Symbol)
	if s == nil {
		return nil
	}
	var out []DeclID
	for _, base := range s.Bases {
		if n := f.BySymbol(base); n != nil {
			out = append(out, n.ID)
		}
	}
	return out
}

func (b *Binder) linkForest() {
	if b.links != nil {
		return
	}
	b.links = map[DeclID][]DeclID{}
	f := b.opts.Forest
	if f == nil {
		return
	}
	for id := DeclID(0); int(id) < f.Len(); id++ {
		for _, base := range b.bases(id) {
			b.links[id] = append(b.links[id], base)
			b.links[base] = append(b.links[base], id)
		}
	}
}

// bindDecl binds a forest node that is not bound yet. Its ambiguities
// are kept for its own Bind call.
func (b *Binder) bindDecl(decl DeclID) {
	if b.bound[decl] || b.opts.Forest == nil {
		return
	}
	if n := b.opts.Forest.Node(decl); n != nil {
		b.Bind(n)
	}
}

// NameOf returns the bound name of a method-like symbol. Members of types
// outside the program fall back to the naming policy.
func (b *Binder) NameOf(sym syntax.SymbolID) string {
	if mb, ok := b.bySymbol[sym]; ok {
		return mb.Name
	}
	return b.opts.Naming.MemberName(b.symbols, sym)
}

func hasAttribute(attrs []string, name string) bool {
	s := syntax.Symbol{Attributes: attrs}
	return s.HasAttribute(name)
}
