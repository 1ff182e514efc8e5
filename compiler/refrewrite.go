package compiler

import (
	"fmt"

	"codebinder/errors"
	"codebinder/syntax"
)

// Lowering of by-reference arguments for targets without PassByRef.
//
// A variable passed by reference lives in a single-element array, its box.
// Locals and value parameters are boxed where they are declared and every
// use becomes box[0]. Fields and array elements are copied into a temporary
// box before the call and copied back after it. The call itself moves into a
// trampoline, a closure declared just before the statement that holds the
// call, and the call site invokes the trampoline:
//
//	f(ref x, ref this.n);
//
// becomes
//
//	int[] x = new int[] { 0 };   // at the declaration of x
//	...
//	int[] __ref0 = new int[] { this.n };
//	Runnable __call0 = () -> { f(x, __ref0); };
//	__call0.run();
//	this.n = __ref0[0];
//
// By-reference parameters of the callee become boxes too: their type turns
// into an array of the element type and uses read p[0].

type refMode int

const (
	// boxLocal boxes a local at its declaration.
	boxLocal refMode = iota
	// boxParam copies a value parameter into a box at the start of the body.
	boxParam
	// passBox hands on a by-reference parameter, which is a box already.
	passBox
	// tempBox copies a field or element into a box around the call.
	tempBox
)

// RefArgument is one by-reference argument of a call.
type RefArgument struct {
	Index     int
	Param     *syntax.Symbol
	Direction syntax.RefKind
	// Type is the value type; Elem the box element type.
	Type syntax.TypeExpr
	Elem syntax.TypeExpr
	// Cast is set when reads from the box need a cast back to Type.
	Cast bool
	Arg  *syntax.Argument
	// Var is the variable passed, when it is a named variable.
	Var  *syntax.Symbol
	mode refMode
}

// boxInfo is the box form of a by-reference variable.
type boxInfo struct {
	typ  syntax.TypeExpr
	elem syntax.TypeExpr
	cast bool
	mode refMode
	// name and sym address the box when it is a new variable.
	name string
	sym  syntax.SymbolID
}

// refSite is a call with by-reference arguments.
type refSite struct {
	call   syntax.Expr
	callee *syntax.Symbol
	args   []*RefArgument
	// stmt is the statement the trampoline goes in front of.
	stmt   syntax.Stmt
	listed bool
}

type refIssue struct {
	node     syntax.Node
	category Category
	message  string
	hint     string
}

// refAnalyzer finds the by-reference calls of one member body and plans
// their lowering. The validator reports its issues; the rewriter carries
// out its plan.
type refAnalyzer struct {
	emitter Emitter
	style   *Style
	symbols *syntax.SymbolTable
	member  *syntax.Symbol

	declared  map[syntax.SymbolID]*syntax.LocalDecl
	forInit   map[syntax.NodeID]bool
	writes    map[syntax.SymbolID]bool
	writeIDs  map[syntax.NodeID]bool
	valParams map[syntax.SymbolID]bool

	refParams map[syntax.SymbolID]*boxInfo
	boxed     map[syntax.SymbolID]*boxInfo
	pass      map[syntax.NodeID]bool
	sites     map[syntax.NodeID]*refSite
	issues    []refIssue
}

func newRefAnalyzer(em Emitter, symbols *syntax.SymbolTable, member *syntax.Symbol) *refAnalyzer {
	return &refAnalyzer{
		emitter:   em,
		style:     em.Style(),
		symbols:   symbols,
		member:    member,
		declared:  map[syntax.SymbolID]*syntax.LocalDecl{},
		forInit:   map[syntax.NodeID]bool{},
		writes:    map[syntax.SymbolID]bool{},
		writeIDs:  map[syntax.NodeID]bool{},
		valParams: map[syntax.SymbolID]bool{},
		refParams: map[syntax.SymbolID]*boxInfo{},
		boxed:     map[syntax.SymbolID]*boxInfo{},
		pass:      map[syntax.NodeID]bool{},
		sites:     map[syntax.NodeID]*refSite{},
	}
}

func (a *refAnalyzer) issue(n syntax.Node, cat Category, hint, format string, args ...interface{}) {
	a.issues = append(a.issues, refIssue{node: n, category: cat, message: fmt.Sprintf(format, args...), hint: hint})
}

// box finds the box form of a value of type t.
func (a *refAnalyzer) box(n syntax.Node, t syntax.TypeExpr, what string) *boxInfo {
	if t == nil {
		a.issue(n, RewriteUnsupported, "Declare the variable with an explicit type.",
			"cannot box %s: its type is unknown", what)
		return nil
	}
	elem, cast, ok := a.emitter.BoxElement(a.symbols, t)
	if !ok {
		a.issue(n, RewriteUnsupported, "",
			"cannot box %s: type %s has no box form on %s", what, syntax.TypeString(t), a.emitter.Name())
		return nil
	}
	return &boxInfo{typ: t, elem: elem, cast: cast}
}

// analyze plans the lowering of a body whose member takes params. at
// positions findings about the parameters.
func (a *refAnalyzer) analyze(at syntax.Node, params []*syntax.Parameter, body *syntax.Block) {
	for _, p := range params {
		if p.Ref == syntax.RefNone {
			a.valParams[p.Sym] = true
			continue
		}
		if info := a.box(at, p.Type, "parameter "+p.Name); info != nil {
			info.mode = passBox
			a.refParams[p.Sym] = info
		}
	}
	if body == nil {
		return
	}
	a.scan(body)
	syntax.InspectStack(body, func(n syntax.Node, stack []syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.Invocation:
			a.call(n, n.Args, stack)
		case *syntax.ObjectCreation:
			a.call(n, n.Args, stack)
		}
		return true
	})
}

// scan records local declarations and writes to variables.
func (a *refAnalyzer) scan(body *syntax.Block) {
	write := func(x syntax.Expr) {
		if id, ok := unparen(x).(*syntax.Identifier); ok {
			a.writes[id.Sym] = true
			a.writeIDs[id.NodeID] = true
		}
	}
	syntax.Inspect(body, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.LocalDecl:
			for _, v := range n.Vars {
				a.declared[v.Sym] = n
			}
		case *syntax.For:
			for _, st := range n.Init {
				a.forInit[st.ID()] = true
			}
		case *syntax.Assignment:
			write(n.Lhs)
		case *syntax.Unary:
			if n.Op == syntax.OpInc || n.Op == syntax.OpDec {
				write(n.X)
			}
		case *syntax.Postfix:
			write(n.X)
		case *syntax.Invocation:
			for _, arg := range n.Args {
				if arg.Ref != syntax.RefNone {
					write(arg.Value)
				}
			}
		case *syntax.ObjectCreation:
			for _, arg := range n.Args {
				if arg.Ref != syntax.RefNone {
					write(arg.Value)
				}
			}
		}
		return true
	})
}

func unparen(x syntax.Expr) syntax.Expr {
	for {
		p, ok := x.(*syntax.Paren)
		if !ok {
			return x
		}
		x = p.X
	}
}

func (a *refAnalyzer) callee(call syntax.Expr) *syntax.Symbol {
	switch call := call.(type) {
	case *syntax.Invocation:
		switch fun := unparen(call.Fun).(type) {
		case *syntax.Identifier:
			return a.symbols.Lookup(fun.Sym)
		case *syntax.MemberAccess:
			return a.symbols.Lookup(fun.Sym)
		}
	case *syntax.ObjectCreation:
		return a.symbols.Lookup(call.Ctor)
	}
	return nil
}

func hasRefArgs(args []*syntax.Argument) bool {
	for _, arg := range args {
		if arg.Ref != syntax.RefNone {
			return true
		}
	}
	return false
}

func (a *refAnalyzer) call(call syntax.Expr, args []*syntax.Argument, stack []syntax.Node) {
	if !hasRefArgs(args) {
		return
	}
	if inv, ok := call.(*syntax.Invocation); ok && inv.ValueCall {
		a.issue(call, RewriteUnsupported, "Call a named method instead.",
			"by-reference arguments to a closure value cannot be boxed")
		return
	}
	callee := a.callee(call)
	switch {
	case callee == nil:
		a.issue(call, RewriteUnsupported, "Only program methods can take boxed arguments.",
			"by-reference call to an unresolved method")
		return
	case callee.Kind.IsVariable():
		a.issue(call, RewriteUnsupported, "Call a named method instead.",
			"by-reference arguments through delegate %s cannot be boxed", callee.Name)
		return
	}
	params := a.symbols.Params(callee.ID)
	site := &refSite{call: call, callee: callee}
	ok := true
	for i, arg := range args {
		if arg.Ref == syntax.RefNone {
			continue
		}
		ra := a.refArgument(i, paramFor(params, i, arg.Name), arg)
		if ra == nil {
			ok = false
			continue
		}
		site.args = append(site.args, ra)
	}

	stmt, listed, inLambda := insertionPoint(stack)
	switch {
	case stmt == nil:
		a.issue(call, RewriteUnsupported, "Move the call into a method body.",
			"by-reference call outside a statement")
		return
	case inLambda:
		a.issue(call, RewriteUnsupported, "Give the lambda a block body.",
			"by-reference call inside an expression-bodied lambda")
		return
	}
	temps := false
	for _, ra := range site.args {
		temps = temps || ra.mode == tempBox
	}
	if temps && !tempBoxable(stmt) {
		a.issue(call, RewriteUnsupported, "Assign the value to a local first.",
			"by-reference %s argument in a %s cannot be copied back", "field or element", stmt.Kind())
		return
	}
	if v := a.declaredIn(stmt, call); v != "" {
		a.issue(call, RewriteUnsupported, "Declare the variable before the statement.",
			"by-reference call refers to %s, declared by the same statement", v)
		return
	}
	if !ok {
		return
	}
	site.stmt, site.listed = stmt, listed
	a.sites[call.ID()] = site
	for _, ra := range site.args {
		if ra.mode == tempBox {
			continue
		}
		a.pass[ra.Arg.Value.ID()] = true
		if id, ok := unparen(ra.Arg.Value).(*syntax.Identifier); ok {
			a.pass[id.NodeID] = true
		}
		if ra.mode == boxLocal || ra.mode == boxParam {
			if _, done := a.boxed[ra.Var.ID]; !done {
				a.boxed[ra.Var.ID] = &boxInfo{typ: ra.Type, elem: ra.Elem, cast: ra.Cast, mode: ra.mode}
			}
		}
	}
	if a.style.CaptureByValue {
		a.boxCaptures(call)
	}
}

// boxCaptures boxes the variables a trampoline captures that are written
// somewhere, since the target captures by value.
func (a *refAnalyzer) boxCaptures(call syntax.Expr) {
	syntax.Inspect(call, func(n syntax.Node) bool {
		id, ok := n.(*syntax.Identifier)
		if !ok || a.pass[id.NodeID] || !a.writes[id.Sym] {
			return true
		}
		if _, done := a.boxed[id.Sym]; done {
			return true
		}
		if _, isRef := a.refParams[id.Sym]; isRef {
			return true
		}
		mode := boxLocal
		switch {
		case a.declared[id.Sym] != nil:
		case a.valParams[id.Sym]:
			mode = boxParam
		default:
			return true
		}
		s := a.symbols.Lookup(id.Sym)
		if info := a.box(id, s.Type, "captured variable "+s.Name); info != nil {
			if d := a.declared[id.Sym]; d != nil && a.forInit[d.ID()] && len(d.Vars) > 1 {
				a.issue(id, RewriteUnsupported, "Declare the loop variable on its own.",
					"cannot box %s: declared together with other loop variables", s.Name)
				return true
			}
			info.mode = mode
			a.boxed[id.Sym] = info
		}
		return true
	})
}

func paramFor(params []*syntax.Symbol, i int, name string) *syntax.Symbol {
	if name != "" {
		for _, p := range params {
			if p.Name == name {
				return p
			}
		}
		return nil
	}
	if i < len(params) {
		return params[i]
	}
	if n := len(params); n > 0 && params[n-1].Variadic {
		return params[n-1]
	}
	return nil
}

func (a *refAnalyzer) refArgument(i int, p *syntax.Symbol, arg *syntax.Argument) *RefArgument {
	ra := &RefArgument{Index: i, Param: p, Direction: arg.Ref, Arg: arg}
	var t syntax.TypeExpr
	x := unparen(arg.Value)
	switch x := x.(type) {
	case *syntax.Identifier:
		s := a.symbols.Lookup(x.Sym)
		if s == nil {
			a.issue(x, RewriteUnsupported, "", "by-reference argument %s is unresolved", x.Name)
			return nil
		}
		ra.Var, t = s, s.Type
		switch {
		case s.Kind == syntax.SymProperty:
			a.issue(x, RewriteUnsupported, "Copy the property into a local first.",
				"property %s cannot be passed by reference", s.Name)
			return nil
		case a.refParams[s.ID] != nil:
			ra.mode = passBox
		case s.Kind == syntax.SymLocal && a.declared[s.ID] != nil:
			if d := a.declared[s.ID]; a.forInit[d.ID()] && len(d.Vars) > 1 {
				a.issue(x, RewriteUnsupported, "Declare the loop variable on its own.",
					"cannot box %s: declared together with other loop variables", s.Name)
				return nil
			}
			ra.mode = boxLocal
		case s.Kind == syntax.SymParameter && a.valParams[s.ID]:
			ra.mode = boxParam
		case s.Kind == syntax.SymField || s.Kind == syntax.SymLocal || s.Kind == syntax.SymParameter:
			ra.mode = tempBox
		default:
			a.issue(x, RewriteUnsupported, "", "%s %s cannot be passed by reference", s.Kind, s.Name)
			return nil
		}
	case *syntax.MemberAccess:
		s := a.symbols.Lookup(x.Sym)
		switch {
		case s == nil:
			a.issue(x, RewriteUnsupported, "", "by-reference argument %s is unresolved", x.Name)
			return nil
		case s.Kind != syntax.SymField:
			a.issue(x, RewriteUnsupported, "Copy the value into a local first.",
				"%s %s cannot be passed by reference", s.Kind, s.Name)
			return nil
		case !pure(a.symbols, x.X):
			a.issue(x, RewriteUnsupported, "Store the receiver in a local first.",
				"by-reference argument has side effects and cannot be copied back")
			return nil
		}
		ra.Var, t, ra.mode = s, s.Type, tempBox
	case *syntax.ElementAccess:
		if !pure(a.symbols, x) {
			a.issue(x, RewriteUnsupported, "Store the array and index in locals first.",
				"by-reference argument has side effects and cannot be copied back")
			return nil
		}
		ra.mode = tempBox
	default:
		a.issue(x, RewriteUnsupported, "", "by-reference argument is not a variable")
		return nil
	}
	if t == nil && p != nil {
		t = p.Type
	}
	if ra.mode == passBox {
		info := a.refParams[ra.Var.ID]
		ra.Type, ra.Elem, ra.Cast = info.typ, info.elem, info.cast
		return ra
	}
	info := a.box(arg.Value, t, "by-reference argument")
	if info == nil {
		return nil
	}
	ra.Type, ra.Elem, ra.Cast = info.typ, info.elem, info.cast
	return ra
}

// pure reports whether evaluating x twice is the same as evaluating it once.
func pure(symbols *syntax.SymbolTable, x syntax.Expr) bool {
	switch x := x.(type) {
	case *syntax.Identifier, *syntax.This, *syntax.BaseAccess, *syntax.Literal:
		return true
	case *syntax.Paren:
		return pure(symbols, x.X)
	case *syntax.MemberAccess:
		if s := symbols.Lookup(x.Sym); s != nil && s.Kind == syntax.SymProperty {
			return false
		}
		return pure(symbols, x.X)
	case *syntax.ElementAccess:
		if !pure(symbols, x.X) {
			return false
		}
		for _, idx := range x.Indices {
			if !pure(symbols, idx) {
				return false
			}
		}
		return true
	}
	return false
}

// insertionPoint finds the statement a call's trampoline is inserted before,
// whether it sits in a statement list, and whether an expression lambda
// separates the call from it.
func insertionPoint(stack []syntax.Node) (syntax.Stmt, bool, bool) {
	inLambda := false
	i := len(stack) - 1
	for ; i >= 0; i-- {
		if _, ok := stack[i].(*syntax.Lambda); ok {
			inLambda = true
		}
		if _, ok := stack[i].(syntax.Stmt); ok {
			break
		}
	}
	if i < 0 {
		return nil, false, inLambda
	}
	for {
		st := stack[i].(syntax.Stmt)
		if i == 0 {
			return st, true, inLambda
		}
		switch slotOf(stack[i-1], st) {
		case slotList:
			return st, true, inLambda
		case slotHeader:
			i--
		default:
			return st, false, inLambda
		}
	}
}

type slot int

const (
	slotEmbedded slot = iota
	slotList
	slotHeader
)

// slotOf classifies where child sits in parent.
func slotOf(parent syntax.Node, child syntax.Stmt) slot {
	switch p := parent.(type) {
	case *syntax.Block, *syntax.Switch:
		return slotList
	case *syntax.For:
		for _, st := range p.Init {
			if st == child {
				return slotHeader
			}
		}
	case *syntax.Using:
		if p.Decl != nil && syntax.Stmt(p.Decl) == child {
			return slotHeader
		}
	case *syntax.Fixed:
		if p.Decl != nil && syntax.Stmt(p.Decl) == child {
			return slotHeader
		}
	}
	return slotEmbedded
}

// tempBoxable reports whether values can be copied back after stmt runs.
func tempBoxable(stmt syntax.Stmt) bool {
	switch stmt.(type) {
	case *syntax.ExprStmt, *syntax.LocalDecl, *syntax.Return:
		return true
	}
	return false
}

// declaredIn names a variable that stmt declares and call refers to.
func (a *refAnalyzer) declaredIn(stmt syntax.Stmt, call syntax.Expr) string {
	decls := map[syntax.SymbolID]bool{}
	syntax.Inspect(stmt, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.LocalDecl:
			for _, v := range n.Vars {
				decls[v.Sym] = true
			}
		case *syntax.Foreach:
			decls[n.Sym] = true
		}
		return true
	})
	found := ""
	syntax.Inspect(call, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Identifier); ok && decls[id.Sym] && found == "" {
			found = id.Name
		}
		return found == ""
	})
	return found
}

// ---- rewriting ----

// insertion collects the statements placed around one statement.
type insertion struct {
	before, after []syntax.Stmt
	listed        bool
}

// refRewriter carries out the plan of a refAnalyzer on one body. Counters
// for synthesized names are per body.
type refRewriter struct {
	*refAnalyzer
	ids     *syntax.IDAllocator
	pending map[syntax.NodeID]*insertion
	calls   int
	temps   int
	results int
}

func newRefRewriter(em Emitter, symbols *syntax.SymbolTable, member *syntax.Symbol, ids *syntax.IDAllocator) *refRewriter {
	return &refRewriter{
		refAnalyzer: newRefAnalyzer(em, symbols, member),
		ids:         ids,
		pending:     map[syntax.NodeID]*insertion{},
	}
}

// rewrite lowers a body and the by-reference parameters of its member.
func (r *refRewriter) rewrite(at syntax.Node, params []*syntax.Parameter, body *syntax.Block) ([]*syntax.Parameter, *syntax.Block, error) {
	r.analyze(at, params, body)
	if len(r.issues) > 0 {
		is := r.issues[0]
		return nil, nil, errors.AssertionFailedf("%s: by-reference rewrite of %s: %s", is.node.Pos(), r.member.Name, is.message)
	}
	newParams := boxParams(params, r.refParams)
	if body == nil {
		return newParams, nil, nil
	}

	var prologue []syntax.Stmt
	for _, p := range params {
		info := r.boxed[p.Sym]
		if info == nil || info.mode != boxParam {
			continue
		}
		info.name = "__" + p.Name
		info.sym = r.symbols.Add(&syntax.Symbol{
			Kind:      syntax.SymLocal,
			Name:      info.name,
			Container: r.member.ID,
			Type:      &syntax.ArrayType{Elem: info.elem},
		})
		prologue = append(prologue, syntax.NewLocal(info.name, info.sym,
			&syntax.ArrayType{Elem: info.elem}, syntax.NewArrayOf(info.elem, syntax.NewIdent(p.Name, p.Sym))))
	}

	out := syntax.Rewrite(body, r.rewriteNode).(*syntax.Block)
	if len(prologue) > 0 {
		stmts := append(prologue, out.Stmts...)
		if out == body {
			cp := *out
			out = &cp
		}
		out.Stmts = stmts
	}
	r.ids.Stamp(out, body.Pos())
	return newParams, out, nil
}

// boxParams turns by-reference parameters into box parameters.
func boxParams(params []*syntax.Parameter, refParams map[syntax.SymbolID]*boxInfo) []*syntax.Parameter {
	if len(refParams) == 0 {
		return params
	}
	out := make([]*syntax.Parameter, len(params))
	for i, p := range params {
		info := refParams[p.Sym]
		if info == nil {
			out[i] = p
			continue
		}
		cp := *p
		cp.Type = &syntax.ArrayType{Elem: info.elem}
		cp.Ref = syntax.RefNone
		out[i] = &cp
	}
	return out
}

func (r *refRewriter) rewriteNode(n syntax.Node) syntax.Node {
	switch n := n.(type) {
	case *syntax.Identifier:
		return r.identifier(n)
	case *syntax.Invocation:
		if site := r.sites[n.NodeID]; site != nil {
			return r.trampoline(n, n.Args, site)
		}
	case *syntax.ObjectCreation:
		if site := r.sites[n.NodeID]; site != nil {
			return r.trampoline(n, n.Args, site)
		}
	case *syntax.Block:
		if stmts, changed := r.expand(n.Stmts); changed {
			cp := *n
			cp.Stmts = stmts
			return &cp
		}
		return n
	case *syntax.Switch:
		var sections []*syntax.SwitchSection
		for i, sec := range n.Sections {
			stmts, changed := r.expand(sec.Body)
			if !changed {
				continue
			}
			if sections == nil {
				sections = append([]*syntax.SwitchSection(nil), n.Sections...)
			}
			sections[i] = &syntax.SwitchSection{Labels: sec.Labels, Body: stmts}
		}
		if sections != nil {
			cp := *n
			cp.Sections = sections
			return r.embedded(&cp)
		}
	case *syntax.For:
		var init []syntax.Stmt
		for i, st := range n.Init {
			boxed := r.boxDecl(st)
			if boxed[0] == st {
				continue
			}
			if init == nil {
				init = append([]syntax.Stmt(nil), n.Init...)
			}
			init[i] = boxed[0]
		}
		if init != nil {
			cp := *n
			cp.Init = init
			return r.embedded(&cp)
		}
	}
	if st, ok := n.(syntax.Stmt); ok {
		return r.embedded(st)
	}
	return n
}

// embedded wraps a statement that is not in a statement list into a block
// holding its insertions.
func (r *refRewriter) embedded(st syntax.Stmt) syntax.Node {
	ins := r.pending[st.ID()]
	if ins == nil || ins.listed {
		return st
	}
	return &syntax.Block{Base: syntax.Base{At: st.Pos()}, Stmts: r.splice(st, ins)}
}

func (r *refRewriter) identifier(id *syntax.Identifier) syntax.Node {
	info := r.refParams[id.Sym]
	if info == nil {
		info = r.boxed[id.Sym]
	}
	if info == nil {
		return id
	}
	box := id
	if info.mode == boxParam {
		cp := *id
		cp.Name, cp.Sym = info.name, info.sym
		box = &cp
	}
	if r.pass[id.NodeID] {
		return box
	}
	if box == id {
		box = syntax.NewIdent(id.Name, id.Sym)
		box.At = id.At
	}
	var x syntax.Expr = &syntax.ElementAccess{Base: syntax.Base{At: id.At}, X: box, Indices: []syntax.Expr{syntax.NewInt(0)}}
	if info.cast && !r.writeIDs[id.NodeID] {
		x = &syntax.Cast{Base: syntax.Base{At: id.At}, Type: info.typ, X: x}
	}
	return x
}

func (r *refRewriter) insertion(site *refSite) *insertion {
	ins := r.pending[site.stmt.ID()]
	if ins == nil {
		ins = &insertion{listed: site.listed}
		r.pending[site.stmt.ID()] = ins
	}
	return ins
}

func (r *refRewriter) local(name string, t syntax.TypeExpr) syntax.SymbolID {
	return r.symbols.Add(&syntax.Symbol{Kind: syntax.SymLocal, Name: name, Container: r.member.ID, Type: t})
}

// trampoline moves a call into a closure declared before its statement and
// returns the invocation of that closure.
func (r *refRewriter) trampoline(call syntax.Expr, args []*syntax.Argument, site *refSite) syntax.Expr {
	ins := r.insertion(site)
	newArgs := make([]*syntax.Argument, len(args))
	for i, arg := range args {
		cp := *arg
		newArgs[i] = &cp
	}
	for _, ra := range site.args {
		arg := newArgs[ra.Index]
		arg.Ref = syntax.RefNone
		if ra.mode != tempBox {
			continue
		}
		name := fmt.Sprintf("__ref%d", r.temps)
		r.temps++
		boxType := &syntax.ArrayType{Elem: ra.Elem}
		sym := r.local(name, boxType)
		ins.before = append(ins.before, syntax.NewLocal(name, sym, boxType, syntax.NewArrayOf(ra.Elem, arg.Value)))
		var back syntax.Expr = syntax.NewIndex(syntax.NewIdent(name, sym), syntax.NewInt(0))
		if ra.Cast {
			back = &syntax.Cast{Type: ra.Type, X: back}
		}
		ins.after = append(ins.after, syntax.NewExprStmt(syntax.NewAssign(arg.Value, back)))
		arg.Value = syntax.NewIdent(name, sym)
	}

	var inner syntax.Expr
	var result syntax.TypeExpr
	switch c := call.(type) {
	case *syntax.Invocation:
		cp := *c
		cp.Args = newArgs
		inner, result = &cp, site.callee.Type
	case *syntax.ObjectCreation:
		cp := *c
		cp.Args = newArgs
		inner, result = &cp, c.Type
	}
	if syntax.IsVoid(result) {
		result = nil
	}
	var body syntax.Stmt = syntax.NewExprStmt(inner)
	if result != nil {
		body = syntax.NewReturn(inner)
	}
	name := fmt.Sprintf("__call%d", r.calls)
	r.calls++
	ft := &syntax.FuncType{Result: result}
	sym := r.local(name, ft)
	ins.before = append(ins.before, syntax.NewLocal(name, sym, ft, &syntax.Lambda{Body: syntax.NewBlock(body)}))
	return &syntax.Invocation{Base: syntax.Base{At: call.Pos()}, Fun: syntax.NewIdent(name, sym), ValueCall: true}
}

// expand applies boxing and pending insertions to a statement list.
func (r *refRewriter) expand(stmts []syntax.Stmt) ([]syntax.Stmt, bool) {
	out := make([]syntax.Stmt, 0, len(stmts))
	changed := false
	for _, st := range stmts {
		if ins := r.pending[st.ID()]; ins != nil && ins.listed {
			out = append(out, r.splice(st, ins)...)
			changed = true
			continue
		}
		boxed := r.boxDecl(st)
		if len(boxed) != 1 || boxed[0] != st {
			changed = true
		}
		out = append(out, boxed...)
	}
	return out, changed
}

// splice surrounds st with its insertions. A return whose value must be
// computed before copying back goes through a result local.
func (r *refRewriter) splice(st syntax.Stmt, ins *insertion) []syntax.Stmt {
	out := append([]syntax.Stmt(nil), ins.before...)
	if ret, ok := st.(*syntax.Return); ok && ret.X != nil && len(ins.after) > 0 {
		name := fmt.Sprintf("__result%d", r.results)
		r.results++
		sym := r.local(name, nil)
		out = append(out, syntax.NewLocal(name, sym, nil, ret.X))
		out = append(out, ins.after...)
		cp := *ret
		cp.X = syntax.NewIdent(name, sym)
		return append(out, &cp)
	}
	out = append(out, r.boxDecl(st)...)
	return append(out, ins.after...)
}

// boxDecl declares the boxed locals of a declaration as boxes. Declarations
// mixing boxed and plain locals are split.
func (r *refRewriter) boxDecl(st syntax.Stmt) []syntax.Stmt {
	d, ok := st.(*syntax.LocalDecl)
	if !ok {
		return []syntax.Stmt{st}
	}
	boxes := false
	for _, v := range d.Vars {
		if info := r.boxed[v.Sym]; info != nil && info.mode == boxLocal {
			boxes = true
		}
	}
	if !boxes {
		return []syntax.Stmt{st}
	}
	out := make([]syntax.Stmt, 0, len(d.Vars))
	for i, v := range d.Vars {
		nd := &syntax.LocalDecl{Type: d.Type, Const: d.Const, Vars: []*syntax.VarDeclarator{v}}
		if i == 0 {
			nd.Base = d.Base
		} else {
			nd.At = d.At
		}
		if info := r.boxed[v.Sym]; info != nil && info.mode == boxLocal {
			var init syntax.Expr = v.Init
			if init == nil {
				init = &syntax.Default{Type: info.typ}
			}
			if d.Type != nil {
				nd.Type = &syntax.ArrayType{Elem: info.elem}
			}
			nd.Const = false
			nd.Vars = []*syntax.VarDeclarator{{Name: v.Name, Sym: v.Sym, Init: syntax.NewArrayOf(info.elem, init)}}
		}
		out = append(out, nd)
	}
	return out
}
