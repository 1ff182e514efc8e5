package syntax

import (
	"strings"
)

// Resolve builds a symbol table for files that arrive without bindings and
// fills the Sym fields of declarations and references in place. Names that
// do not bind to a declaration in files, such as library types and members,
// stay unresolved. Calls to overloaded methods are bound by argument count.
func Resolve(files []*File) *SymbolTable {
	r := &resolver{
		table:      NewSymbolTable(),
		types:      map[string]SymbolID{},
		members:    map[SymbolID]map[string][]SymbolID{},
		typeParams: map[SymbolID]map[string]SymbolID{},
		setterArg:  map[SymbolID]SymbolID{},
	}
	for _, f := range files {
		r.declareTypes(f.Decls, "", 0)
	}
	for _, f := range files {
		r.declareMembers(f.Decls, "")
	}
	r.linkOverrides()
	for _, f := range files {
		r.bindDecls(f.Decls, "")
	}
	return r.table
}

type resolver struct {
	table      *SymbolTable
	types      map[string]SymbolID
	members    map[SymbolID]map[string][]SymbolID
	typeParams map[SymbolID]map[string]SymbolID
	setterArg  map[SymbolID]SymbolID

	// binding context
	ns     string
	typ    SymbolID
	method SymbolID
	scope  *scope
}

type scope struct {
	parent *scope
	names  map[string]SymbolID
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// ---- pass 1: types ----

func (r *resolver) declareTypes(decls []Decl, ns string, outer SymbolID) {
	for _, d := range decls {
		switch d := d.(type) {
		case *Namespace:
			r.declareTypes(d.Decls, qualify(ns, d.Name), 0)
		case *TypeDecl:
			prefix := ns
			if o := r.table.Lookup(outer); o != nil {
				prefix = o.Qualified
			}
			q := qualify(prefix, d.Name)
			id, ok := r.types[q]
			if ok {
				s := r.table.Lookup(id)
				s.Partial = s.Partial || d.Partial
				s.Attributes = append(s.Attributes, d.Attributes...)
				s.Static = s.Static || d.Static
				s.Abstract = s.Abstract || d.Abstract
				if s.Access == AccessNone {
					s.Access = d.Access
				}
			} else {
				id = r.table.Add(&Symbol{
					Kind:       SymType,
					Name:       d.Name,
					Qualified:  q,
					Namespace:  ns,
					Container:  outer,
					Access:     d.Access,
					Static:     d.Static,
					Abstract:   d.Abstract || d.TypeKind == TypeInterface,
					Partial:    d.Partial,
					TypeKind:   d.TypeKind,
					Arity:      len(d.TypeParams),
					TypeParams: d.TypeParams,
					Attributes: append([]string(nil), d.Attributes...),
				})
				r.types[q] = id
				r.declareTypeParams(id, d.TypeParams)
			}
			d.Sym = id
			r.declareTypes(d.Members, ns, id)
		}
	}
}

func (r *resolver) declareTypeParams(owner SymbolID, names []string) {
	if len(names) == 0 {
		return
	}
	m := map[string]SymbolID{}
	for _, n := range names {
		m[n] = r.table.Add(&Symbol{Kind: SymTypeParameter, Name: n, Container: owner})
	}
	r.typeParams[owner] = m
}

// ---- pass 2: members ----

func (r *resolver) addMember(owner SymbolID, s *Symbol) SymbolID {
	s.Container = owner
	id := r.table.Add(s)
	byName := r.members[owner]
	if byName == nil {
		byName = map[string][]SymbolID{}
		r.members[owner] = byName
	}
	byName[s.Name] = append(byName[s.Name], id)
	return id
}

func (r *resolver) declareParams(owner SymbolID, params []*Parameter) []SymbolID {
	ids := make([]SymbolID, 0, len(params))
	for _, p := range params {
		r.typeRef(p.Type)
		p.Sym = r.table.Add(&Symbol{
			Kind:       SymParameter,
			Name:       p.Name,
			Container:  owner,
			Type:       p.Type,
			Ref:        p.Ref,
			HasDefault: p.Default != nil,
			Variadic:   p.Variadic,
		})
		ids = append(ids, p.Sym)
	}
	return ids
}

func (r *resolver) declareMembers(decls []Decl, ns string) {
	for _, d := range decls {
		switch d := d.(type) {
		case *Namespace:
			r.declareMembers(d.Decls, qualify(ns, d.Name))
		case *TypeDecl:
			r.ns, r.typ, r.method = ns, d.Sym, 0
			ts := r.table.Lookup(d.Sym)
			for _, b := range d.Bases {
				r.typeRef(b)
				if nt, ok := b.(*NamedType); ok {
					ts.BaseNames = append(ts.BaseNames, nt.Name)
					if nt.Sym != 0 && r.table.Lookup(nt.Sym).IsType() {
						ts.Bases = append(ts.Bases, nt.Sym)
					}
				}
			}
			if d.TypeKind == TypeDelegate {
				r.typeRef(d.Result)
				ts.Type = d.Result
				ts.Params = r.declareParams(d.Sym, d.Params)
			}
			r.declareTypeMembers(d)
			r.declareMembers(typeDecls(d.Members), ns)
		}
	}
}

func typeDecls(members []Decl) []Decl {
	var out []Decl
	for _, m := range members {
		if td, ok := m.(*TypeDecl); ok {
			out = append(out, td)
		}
	}
	return out
}

func (r *resolver) declareTypeMembers(d *TypeDecl) {
	owner := d.Sym
	iface := d.TypeKind == TypeInterface
	for _, m := range d.Members {
		r.typ, r.method = owner, 0
		switch m := m.(type) {
		case *MethodDecl:
			s := &Symbol{
				Kind:       SymMethod,
				Name:       m.Name,
				Access:     m.Access,
				Static:     m.Static,
				Abstract:   m.Abstract || iface && m.Body == nil,
				Virtual:    m.Virtual,
				Override:   m.Override,
				Partial:    m.Partial,
				HasBody:    m.Body != nil,
				Arity:      len(m.TypeParams),
				TypeParams: m.TypeParams,
				Attributes: m.Attributes,
			}
			m.Sym = r.addMember(owner, s)
			r.declareTypeParams(m.Sym, m.TypeParams)
			r.method = m.Sym
			r.typeRef(m.Result)
			r.typeRef(m.Explicit)
			s.Type = m.Result
			s.Params = r.declareParams(m.Sym, m.Params)
		case *ConstructorDecl:
			s := &Symbol{
				Kind:       SymConstructor,
				Name:       d.Name,
				Access:     m.Access,
				Static:     m.Static,
				HasBody:    m.Body != nil,
				Attributes: m.Attributes,
			}
			m.Sym = r.addMember(owner, s)
			s.Params = r.declareParams(m.Sym, m.Params)
		case *FinalizerDecl:
			m.Sym = r.addMember(owner, &Symbol{Kind: SymFinalizer, Name: "~" + d.Name, HasBody: m.Body != nil})
		case *FieldDecl:
			r.typeRef(m.Type)
			for _, v := range m.Vars {
				v.Sym = r.addMember(owner, &Symbol{
					Kind:     SymField,
					Name:     v.Name,
					Access:   m.Access,
					Static:   m.Static || m.Const,
					ReadOnly: m.ReadOnly || m.Const,
					Type:     m.Type,
				})
			}
		case *PropertyDecl:
			r.typeRef(m.Type)
			m.Sym = r.addMember(owner, &Symbol{
				Kind:     SymProperty,
				Name:     m.Name,
				Access:   m.Access,
				Static:   m.Static,
				Abstract: m.Abstract || iface,
				Virtual:  m.Virtual,
				Override: m.Override,
				ReadOnly: m.Setter == nil,
				Type:     m.Type,
			})
			if m.Setter != nil {
				r.setterArg[m.Sym] = r.table.Add(&Symbol{Kind: SymParameter, Name: "value", Container: m.Sym, Type: m.Type})
			}
		case *EnumMember:
			m.Sym = r.addMember(owner, &Symbol{
				Kind:   SymEnumMember,
				Name:   m.Name,
				Access: AccessPublic,
				Static: true,
				Type:   &NamedType{Name: d.Name, Sym: owner},
			})
		}
	}
}

// linkOverrides records overridden and implemented members by name and
// parameter count.
func (r *resolver) linkOverrides() {
	r.table.Each(func(s *Symbol) {
		if s.Kind != SymMethod && s.Kind != SymProperty {
			return
		}
		owner := r.table.Lookup(s.Container)
		if owner == nil {
			return
		}
		for _, b := range r.allBases(owner.ID) {
			bs := r.table.Lookup(b)
			for _, cand := range r.members[b][s.Name] {
				c := r.table.Lookup(cand)
				if c.Kind != s.Kind || len(c.Params) != len(s.Params) {
					continue
				}
				if bs.TypeKind == TypeInterface {
					s.Implements = append(s.Implements, cand)
				} else if s.Override && s.Overrides == 0 {
					s.Overrides = cand
				}
			}
		}
	})
}

func (r *resolver) allBases(id SymbolID) []SymbolID {
	var out []SymbolID
	seen := map[SymbolID]bool{id: true}
	var visit func(SymbolID)
	visit = func(id SymbolID) {
		for _, b := range r.table.Lookup(id).Bases {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
				visit(b)
			}
		}
	}
	visit(id)
	return out
}

// ---- type references ----

func (r *resolver) typeRef(t TypeExpr) {
	switch t := t.(type) {
	case *NamedType:
		for _, a := range t.Args {
			r.typeRef(a)
		}
		if t.Sym == 0 {
			t.Sym = r.lookupType(t.Name)
		}
	case *ArrayType:
		r.typeRef(t.Elem)
	case *NullableType:
		r.typeRef(t.Elem)
	case *PointerType:
		r.typeRef(t.Elem)
	case *TupleType:
		for _, e := range t.Elems {
			r.typeRef(e)
		}
	case *FuncType:
		for _, p := range t.Params {
			r.typeRef(p)
		}
		r.typeRef(t.Result)
	}
}

func (r *resolver) lookupType(name string) SymbolID {
	if !strings.Contains(name, ".") {
		if r.method != 0 {
			if id, ok := r.typeParams[r.method][name]; ok {
				return id
			}
		}
		for t := r.table.Lookup(r.typ); t != nil; t = r.table.Lookup(t.Container) {
			if id, ok := r.typeParams[t.ID][name]; ok {
				return id
			}
		}
	}
	for t := r.table.Lookup(r.typ); t != nil; t = r.table.Lookup(t.Container) {
		if id, ok := r.types[t.Qualified+"."+name]; ok {
			return id
		}
		for _, b := range r.allBases(t.ID) {
			if id, ok := r.types[r.table.Lookup(b).Qualified+"."+name]; ok {
				return id
			}
		}
	}
	for ns := r.ns; ; {
		if id, ok := r.types[qualify(ns, name)]; ok {
			return id
		}
		if ns == "" {
			break
		}
		if i := strings.LastIndex(ns, "."); i >= 0 {
			ns = ns[:i]
		} else {
			ns = ""
		}
	}
	return 0
}

// ---- pass 3: bodies ----

func (r *resolver) push() {
	r.scope = &scope{parent: r.scope, names: map[string]SymbolID{}}
}

func (r *resolver) pop() {
	r.scope = r.scope.parent
}

func (r *resolver) declareLocal(name string, kind SymbolKind, t TypeExpr) SymbolID {
	id := r.table.Add(&Symbol{Kind: kind, Name: name, Container: r.method, Type: t})
	r.scope.names[name] = id
	return id
}

func (r *resolver) bindParams(params []*Parameter) {
	for _, p := range params {
		if p.Sym != 0 {
			r.scope.names[p.Name] = p.Sym
		}
		if p.Default != nil {
			r.expr(p.Default)
		}
	}
}

func (r *resolver) bindDecls(decls []Decl, ns string) {
	for _, d := range decls {
		switch d := d.(type) {
		case *Namespace:
			r.bindDecls(d.Decls, qualify(ns, d.Name))
		case *TypeDecl:
			r.bindType(d, ns)
		}
	}
}

func (r *resolver) bindType(d *TypeDecl, ns string) {
	for _, m := range d.Members {
		if nested, ok := m.(*TypeDecl); ok {
			r.bindType(nested, ns)
			continue
		}
		r.ns, r.typ, r.method, r.scope = ns, d.Sym, 0, nil
		r.push()
		switch m := m.(type) {
		case *MethodDecl:
			r.method = m.Sym
			r.bindParams(m.Params)
			r.block(m.Body)
		case *ConstructorDecl:
			r.method = m.Sym
			r.bindParams(m.Params)
			if init := m.Initializer; init != nil {
				argc := r.args(init.Args)
				target := d.Sym
				if !init.ThisCall {
					target = r.baseClass(d.Sym)
				}
				init.Ctor = r.pickOverload(r.members[target][r.nameOf(target)], argc)
			}
			r.block(m.Body)
		case *FinalizerDecl:
			r.method = m.Sym
			r.block(m.Body)
		case *FieldDecl:
			for _, v := range m.Vars {
				if v.Init != nil {
					r.expr(v.Init)
				}
			}
		case *PropertyDecl:
			r.method = m.Sym
			if m.Getter != nil {
				r.block(m.Getter.Body)
			}
			if m.Setter != nil {
				r.scope.names["value"] = r.setterArg[m.Sym]
				r.block(m.Setter.Body)
			}
			if m.Init != nil {
				r.expr(m.Init)
			}
		case *EnumMember:
			if m.Value != nil {
				r.expr(m.Value)
			}
		}
		r.pop()
	}
}

func (r *resolver) nameOf(id SymbolID) string {
	if s := r.table.Lookup(id); s != nil {
		return s.Name
	}
	return ""
}

func (r *resolver) baseClass(id SymbolID) SymbolID {
	s := r.table.Lookup(id)
	if s == nil {
		return 0
	}
	for _, b := range s.Bases {
		if bs := r.table.Lookup(b); bs.TypeKind == TypeClass {
			return b
		}
	}
	return 0
}

func (r *resolver) block(b *Block) {
	if b == nil {
		return
	}
	r.push()
	for _, s := range b.Stmts {
		if lf, ok := s.(*LocalFunction); ok {
			r.typeRef(lf.Result)
			lf.Sym = r.declareLocal(lf.Name, SymLocalFunction, lf.Result)
		}
	}
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	r.pop()
}

func (r *resolver) stmts(list []Stmt) {
	for _, s := range list {
		r.stmt(s)
	}
}

func (r *resolver) localDecl(d *LocalDecl) {
	r.typeRef(d.Type)
	for _, v := range d.Vars {
		var t TypeExpr = d.Type
		if v.Init != nil {
			if it := r.expr(v.Init); t == nil {
				t = it
			}
		}
		v.Sym = r.declareLocal(v.Name, SymLocal, t)
	}
}

func (r *resolver) stmt(s Stmt) {
	switch s := s.(type) {
	case nil:
	case *Block:
		r.block(s)
	case *LocalDecl:
		r.localDecl(s)
	case *ExprStmt:
		r.expr(s.X)
	case *If:
		r.expr(s.Cond)
		r.scoped(s.Then)
		r.scoped(s.Else)
	case *While:
		r.expr(s.Cond)
		r.scoped(s.Body)
	case *Do:
		r.scoped(s.Body)
		r.expr(s.Cond)
	case *For:
		r.push()
		r.stmts(s.Init)
		r.expr(s.Cond)
		for _, p := range s.Post {
			r.expr(p)
		}
		r.scoped(s.Body)
		r.pop()
	case *Foreach:
		r.typeRef(s.Type)
		xt := r.expr(s.X)
		r.push()
		t := s.Type
		if t == nil {
			t = elementType(xt)
		}
		s.Sym = r.declareLocal(s.Name, SymLocal, t)
		r.scoped(s.Body)
		r.pop()
	case *Switch:
		r.expr(s.Tag)
		r.push()
		for _, sec := range s.Sections {
			for _, l := range sec.Labels {
				r.expr(l)
			}
			r.stmts(sec.Body)
		}
		r.pop()
	case *Return:
		r.expr(s.X)
	case *Throw:
		r.expr(s.X)
	case *Yield:
		r.expr(s.X)
	case *Try:
		r.block(s.Body)
		for _, c := range s.Catches {
			r.push()
			r.typeRef(c.Type)
			if c.Name != "" {
				c.Sym = r.declareLocal(c.Name, SymLocal, c.Type)
			}
			r.block(c.Body)
			r.pop()
		}
		r.block(s.Finally)
	case *Using:
		r.push()
		if s.Decl != nil {
			r.localDecl(s.Decl)
		}
		r.expr(s.X)
		r.scoped(s.Body)
		r.pop()
	case *Lock:
		r.expr(s.X)
		r.scoped(s.Body)
	case *LocalFunction:
		if s.Sym == 0 {
			r.typeRef(s.Result)
			s.Sym = r.declareLocal(s.Name, SymLocalFunction, s.Result)
		}
		outer := r.method
		r.method = s.Sym
		r.push()
		fs := r.table.Lookup(s.Sym)
		fs.Params = r.declareParams(s.Sym, s.Params)
		r.bindParams(s.Params)
		r.block(s.Body)
		r.pop()
		r.method = outer
	case *Labeled:
		r.stmt(s.Stmt)
	case *Fixed:
		r.push()
		if s.Decl != nil {
			r.localDecl(s.Decl)
		}
		r.scoped(s.Body)
		r.pop()
	case *Unsafe:
		r.block(s.Body)
	case *CheckedBlock:
		r.block(s.Body)
	}
}

// scoped binds an embedded statement in its own scope.
func (r *resolver) scoped(s Stmt) {
	if s == nil {
		return
	}
	r.push()
	r.stmt(s)
	r.pop()
}

func (r *resolver) args(args []*Argument) int {
	for _, a := range args {
		r.expr(a.Value)
	}
	return len(args)
}

func (r *resolver) lookupScope(name string) SymbolID {
	for s := r.scope; s != nil; s = s.parent {
		if id, ok := s.names[name]; ok {
			return id
		}
	}
	return 0
}

// findMember looks name up in owner and its bases. With argc >= 0 method
// groups are narrowed to the overload accepting argc arguments.
func (r *resolver) findMember(owner SymbolID, name string, argc int) SymbolID {
	if owner == 0 {
		return 0
	}
	chain := append([]SymbolID{owner}, r.allBases(owner)...)
	for _, t := range chain {
		cands := r.members[t][name]
		if len(cands) == 0 {
			continue
		}
		if argc >= 0 {
			if id := r.pickOverload(cands, argc); id != 0 {
				return id
			}
			continue
		}
		return cands[0]
	}
	return 0
}

func (r *resolver) pickOverload(cands []SymbolID, argc int) SymbolID {
	var fallback SymbolID
	for _, id := range cands {
		s := r.table.Lookup(id)
		if s.Kind != SymMethod && s.Kind != SymConstructor {
			if fallback == 0 {
				fallback = id
			}
			continue
		}
		if s.Static && s.Kind == SymConstructor {
			continue
		}
		lo, hi := 0, 0
		for _, p := range r.table.Params(id) {
			switch {
			case p.Variadic:
				hi = -1
			case p.HasDefault:
				if hi >= 0 {
					hi++
				}
			default:
				lo++
				if hi >= 0 {
					hi++
				}
			}
		}
		if argc >= lo && (hi < 0 || argc <= hi) {
			return id
		}
	}
	return fallback
}

// lookupValue resolves a simple name: locals, then members of the enclosing
// types and their bases, then types.
func (r *resolver) lookupValue(name string, argc int) SymbolID {
	if id := r.lookupScope(name); id != 0 {
		return id
	}
	for t := r.table.Lookup(r.typ); t != nil; t = r.table.Lookup(t.Container) {
		if id := r.findMember(t.ID, name, argc); id != 0 {
			return id
		}
	}
	return r.lookupType(name)
}

func (r *resolver) typeOfSym(id SymbolID) TypeExpr {
	s := r.table.Lookup(id)
	if s == nil {
		return nil
	}
	switch s.Kind {
	case SymType, SymTypeParameter:
		return &NamedType{Name: s.Name, Sym: id}
	case SymMethod, SymConstructor, SymLocalFunction:
		return nil
	}
	return s.Type
}

// ownerOf returns the type whose members a member access on x searches.
func (r *resolver) ownerOf(x Expr, xt TypeExpr) SymbolID {
	switch x.(type) {
	case *This:
		return r.typ
	case *BaseAccess:
		return r.baseClass(r.typ)
	}
	if nt, ok := xt.(*NamedType); ok {
		if s := r.table.Lookup(nt.Sym); s.IsType() {
			return nt.Sym
		}
	}
	return 0
}

// dottedPath renders an unresolved identifier chain, or "".
func dottedPath(x Expr) string {
	switch x := x.(type) {
	case *Identifier:
		if x.Sym == 0 {
			return x.Name
		}
	case *MemberAccess:
		if x.Sym == 0 {
			if p := dottedPath(x.X); p != "" {
				return p + "." + x.Name
			}
		}
	}
	return ""
}

func (r *resolver) member(x Expr, name string, argc int) (SymbolID, TypeExpr) {
	xt := r.expr(x)
	if owner := r.ownerOf(x, xt); owner != 0 {
		if id := r.findMember(owner, name, argc); id != 0 {
			return id, r.typeOfSym(id)
		}
		return 0, nil
	}
	if p := dottedPath(x); p != "" {
		if id := r.lookupType(p + "." + name); id != 0 {
			return id, r.typeOfSym(id)
		}
	}
	return 0, nil
}

func (r *resolver) returnType(id SymbolID) TypeExpr {
	s := r.table.Lookup(id)
	if s == nil {
		return nil
	}
	switch s.Kind {
	case SymMethod, SymLocalFunction:
		return s.Type
	}
	if s.Kind.IsVariable() {
		switch t := s.Type.(type) {
		case *FuncType:
			return t.Result
		case *NamedType:
			if d := r.table.Lookup(t.Sym); d != nil && d.TypeKind == TypeDelegate {
				return d.Type
			}
		}
	}
	return nil
}

func literalType(l *Literal) TypeExpr {
	switch l.LitKind {
	case LitNull:
		return nil
	case LitBool:
		return NewPredefined("bool")
	case LitUInt:
		return NewPredefined("uint")
	case LitULong:
		return NewPredefined("ulong")
	}
	return NewPredefined(l.LitKind.String())
}

func elementType(t TypeExpr) TypeExpr {
	switch t := t.(type) {
	case *ArrayType:
		return t.Elem
	case *NamedType:
		if len(t.Args) == 1 {
			return t.Args[0]
		}
	case *PredefinedType:
		if t.Name == "string" {
			return NewPredefined("char")
		}
	}
	return nil
}

func isComparison(op Operator) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLogAnd, OpLogOr:
		return true
	}
	return false
}

// expr binds e and returns its static type when it can tell.
func (r *resolver) expr(e Expr) TypeExpr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Literal:
		return literalType(e)
	case *Identifier:
		for _, a := range e.TypeArgs {
			r.typeRef(a)
		}
		if e.Sym == 0 {
			e.Sym = r.lookupValue(e.Name, -1)
		}
		return r.typeOfSym(e.Sym)
	case *MemberAccess:
		var t TypeExpr
		e.Sym, t = r.member(e.X, e.Name, -1)
		return t
	case *ConditionalAccess:
		var t TypeExpr
		e.Sym, t = r.member(e.X, e.Name, -1)
		return t
	case *Invocation:
		argc := r.args(e.Args)
		var callee SymbolID
		switch f := e.Fun.(type) {
		case *Identifier:
			for _, a := range f.TypeArgs {
				r.typeRef(a)
			}
			if f.Sym == 0 {
				f.Sym = r.lookupValue(f.Name, argc)
			}
			callee = f.Sym
		case *MemberAccess:
			f.Sym, _ = r.member(f.X, f.Name, argc)
			callee = f.Sym
		default:
			r.expr(e.Fun)
		}
		return r.returnType(callee)
	case *ObjectCreation:
		r.typeRef(e.Type)
		argc := r.args(e.Args)
		if nt, ok := e.Type.(*NamedType); ok && nt.Sym != 0 {
			e.Ctor = r.pickOverload(r.members[nt.Sym][r.nameOf(nt.Sym)], argc)
		}
		return e.Type
	case *ArrayCreation:
		r.typeRef(e.Elem)
		for _, s := range e.Sizes {
			r.expr(s)
		}
		if e.Init != nil {
			r.expr(e.Init)
		}
		rank := len(e.Sizes)
		if rank == 0 {
			rank = 1
		}
		return &ArrayType{Elem: e.Elem, Rank: rank}
	case *Initializer:
		for _, x := range e.Elems {
			r.expr(x)
		}
		return nil
	case *ElementAccess:
		xt := r.expr(e.X)
		for _, i := range e.Indices {
			r.expr(i)
		}
		return elementType(xt)
	case *Binary:
		xt := r.expr(e.X)
		yt := r.expr(e.Y)
		if isComparison(e.Op) {
			return NewPredefined("bool")
		}
		if e.Op == OpAdd {
			if p, ok := yt.(*PredefinedType); ok && p.Name == "string" {
				return yt
			}
		}
		if xt == nil {
			return yt
		}
		return xt
	case *Unary:
		t := r.expr(e.X)
		if e.Op == OpNot {
			return NewPredefined("bool")
		}
		return t
	case *Postfix:
		return r.expr(e.X)
	case *Assignment:
		t := r.expr(e.Lhs)
		r.expr(e.Rhs)
		return t
	case *Conditional:
		r.expr(e.Cond)
		t := r.expr(e.Then)
		if et := r.expr(e.Else); t == nil {
			t = et
		}
		return t
	case *Paren:
		return r.expr(e.X)
	case *Cast:
		r.typeRef(e.Type)
		r.expr(e.X)
		return e.Type
	case *This:
		if s := r.table.Lookup(r.typ); s != nil {
			return &NamedType{Name: s.Name, Sym: s.ID}
		}
		return nil
	case *BaseAccess:
		if b := r.baseClass(r.typ); b != 0 {
			return &NamedType{Name: r.nameOf(b), Sym: b}
		}
		return nil
	case *TypeOf:
		r.typeRef(e.Type)
		return &NamedType{Name: "System.Type"}
	case *IsType:
		r.expr(e.X)
		r.typeRef(e.Type)
		return NewPredefined("bool")
	case *AsType:
		r.expr(e.X)
		r.typeRef(e.Type)
		return e.Type
	case *Default:
		r.typeRef(e.Type)
		return e.Type
	case *Lambda:
		r.push()
		for _, p := range e.Params {
			r.typeRef(p.Type)
			p.Sym = r.declareLocal(p.Name, SymParameter, p.Type)
			r.table.Lookup(p.Sym).Ref = p.Ref
		}
		switch body := e.Body.(type) {
		case *Block:
			r.block(body)
		case Expr:
			r.expr(body)
		}
		r.pop()
		return nil
	case *InterpolatedString:
		for _, p := range e.Parts {
			r.expr(p)
		}
		return NewPredefined("string")
	case *NameOf:
		return NewPredefined("string")
	}
	for _, c := range Children(e) {
		switch c := c.(type) {
		case Expr:
			r.expr(c)
		case TypeExpr:
			r.typeRef(c)
		}
	}
	return nil
}
