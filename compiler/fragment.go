package compiler

import (
	"codebinder/syntax"
)

// DeclID addresses a DeclarationNode in a Forest.
type DeclID int

// NoDecl is the parent of forest roots.
const NoDecl DeclID = -1

// Fragment is one partial declaration of a type as it was found in a file.
type Fragment struct {
	Decl      *syntax.TypeDecl
	File      string
	Namespace string
}

// HasBaseList reports whether the fragment carries base type information.
func (f Fragment) HasBaseList() bool { return len(f.Decl.Bases) > 0 }

// DeclarationNode is one logical type with its partial fragments merged.
type DeclarationNode struct {
	ID            DeclID
	Symbol        syntax.SymbolID
	Name          string
	QualifiedName string
	Namespace     string
	TypeKind      syntax.TypeKind
	Access        syntax.Accessibility
	Arity         int
	// Fragments holds the partial declarations. The fragment carrying the
	// base list, if any, is first.
	Fragments []Fragment
	Parent    DeclID
	Children  []DeclID
	// BaseLists counts fragments that carry a base list. More than one is
	// reported by the validator.
	BaseLists int
}

// Head is the canonical fragment.
func (n *DeclarationNode) Head() *syntax.TypeDecl { return n.Fragments[0].Decl }

// Bases returns the base list of the head fragment.
func (n *DeclarationNode) Bases() []syntax.TypeExpr { return n.Head().Bases }

// Members returns the members of every fragment in fragment order. Nested
// type declarations are left out; they are children of the node.
func (n *DeclarationNode) Members() []syntax.Decl {
	var out []syntax.Decl
	for _, f := range n.Fragments {
		for _, m := range f.Decl.Members {
			if _, nested := m.(*syntax.TypeDecl); !nested {
				out = append(out, m)
			}
		}
	}
	return out
}

func (n *DeclarationNode) IsRoot() bool { return n.Parent == NoDecl }

// Forest is the immutable result of merging the type declarations of a
// program. Nodes live in an arena and refer to each other by DeclID.
type Forest struct {
	nodes  []*DeclarationNode
	byName map[string]DeclID
	bySym  map[syntax.SymbolID]DeclID
	roots  []DeclID
}

func (f *Forest) Len() int { return len(f.nodes) }

// Node returns the node for id, or nil.
func (f *Forest) Node(id DeclID) *DeclarationNode {
	if id < 0 || int(id) >= len(f.nodes) {
		return nil
	}
	return f.nodes[id]
}

func (f *Forest) Lookup(qualified string) *DeclarationNode {
	id, ok := f.byName[qualified]
	if !ok {
		return nil
	}
	return f.nodes[id]
}

func (f *Forest) BySymbol(sym syntax.SymbolID) *DeclarationNode {
	id, ok := f.bySym[sym]
	if !ok {
		return nil
	}
	return f.nodes[id]
}

// Roots returns the top level nodes in discovery order.
func (f *Forest) Roots() []*DeclarationNode {
	out := make([]*DeclarationNode, len(f.roots))
	for i, id := range f.roots {
		out[i] = f.nodes[id]
	}
	return out
}

func (f *Forest) Children(n *DeclarationNode) []*DeclarationNode {
	out := make([]*DeclarationNode, len(n.Children))
	for i, id := range n.Children {
		out[i] = f.nodes[id]
	}
	return out
}

// Subtree returns n and its descendants in preorder.
func (f *Forest) Subtree(n *DeclarationNode) []*DeclarationNode {
	out := []*DeclarationNode{n}
	for _, c := range n.Children {
		out = append(out, f.Subtree(f.nodes[c])...)
	}
	return out
}

// Root returns the forest root that contains n.
func (f *Forest) Root(n *DeclarationNode) *DeclarationNode {
	for !n.IsRoot() {
		n = f.nodes[n.Parent]
	}
	return n
}

// TreeBuilder collects type declarations in a forward walk and builds a
// Forest from them.
type TreeBuilder struct {
	symbols *syntax.SymbolTable
	forest  *Forest
}

func NewTreeBuilder(symbols *syntax.SymbolTable) *TreeBuilder {
	return &TreeBuilder{
		symbols: symbols,
		forest: &Forest{
			byName: map[string]DeclID{},
			bySym:  map[syntax.SymbolID]DeclID{},
		},
	}
}

// AddFile records every type declaration of file, nested ones included.
func (b *TreeBuilder) AddFile(file *syntax.File) {
	b.addDecls(file.Name, "", "", file.Decls)
}

func (b *TreeBuilder) addDecls(file, ns, outer string, decls []syntax.Decl) {
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.Namespace:
			b.addDecls(file, qualify(ns, d.Name), "", d.Decls)
		case *syntax.TypeDecl:
			prefix := outer
			if prefix == "" {
				prefix = ns
			}
			q := qualify(prefix, d.Name)
			if s := b.symbols.Lookup(d.Sym); s != nil && s.Qualified != "" {
				q = s.Qualified
			}
			b.add(Fragment{Decl: d, File: file, Namespace: ns}, q)
			b.addDecls(file, ns, q, d.Members)
		}
	}
}

func (b *TreeBuilder) add(frag Fragment, qualified string) {
	f := b.forest
	id, ok := f.byName[qualified]
	if !ok {
		d := frag.Decl
		id = DeclID(len(f.nodes))
		f.nodes = append(f.nodes, &DeclarationNode{
			ID:            id,
			Symbol:        d.Sym,
			Name:          d.Name,
			QualifiedName: qualified,
			Namespace:     frag.Namespace,
			TypeKind:      d.TypeKind,
			Access:        d.Access,
			Arity:         len(d.TypeParams),
			Parent:        NoDecl,
		})
		f.byName[qualified] = id
		if d.Sym != 0 {
			f.bySym[d.Sym] = id
		}
	}
	n := f.nodes[id]
	if n.Access == syntax.AccessNone {
		n.Access = frag.Decl.Access
	}
	if !frag.HasBaseList() {
		n.Fragments = append(n.Fragments, frag)
		return
	}
	n.BaseLists++
	if n.BaseLists > 1 {
		// the first base list stays the head
		n.Fragments = append(n.Fragments, frag)
		return
	}
	n.Fragments = append([]Fragment{frag}, n.Fragments...)
}

// Build links nodes to their containing types and returns the forest. Types
// whose container does not resolve to a collected type become roots. The
// builder must not be used afterwards.
func (b *TreeBuilder) Build() *Forest {
	f := b.forest
	for _, n := range f.nodes {
		n.Parent = NoDecl
		if s := b.symbols.Lookup(n.Symbol); s != nil {
			if pid, ok := f.bySym[s.Container]; ok && pid != n.ID {
				n.Parent = pid
			}
		}
		if n.Parent == NoDecl {
			f.roots = append(f.roots, n.ID)
			continue
		}
		p := f.nodes[n.Parent]
		p.Children = append(p.Children, n.ID)
	}
	b.forest = nil
	return f
}

// BuildForest merges the declarations of files.
func BuildForest(symbols *syntax.SymbolTable, files []*syntax.File) *Forest {
	b := NewTreeBuilder(symbols)
	for _, file := range files {
		b.AddFile(file)
	}
	return b.Build()
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
