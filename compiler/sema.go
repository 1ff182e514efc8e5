package compiler

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"codebinder/errors"
	"codebinder/logger"
	"codebinder/syntax"
)

// NodeStatus is the validation state of a node.
type NodeStatus int

const (
	StatusAllowed NodeStatus = iota
	StatusRejected
	StatusRequiresRewrite
	StatusRewritten
)

func (s NodeStatus) String() string {
	switch s {
	case StatusRejected:
		return "rejected"
	case StatusRequiresRewrite:
		return "requires rewrite"
	case StatusRewritten:
		return "rewritten"
	}
	return "allowed"
}

// Validator checks one conversion unit against a target and its capability
// profile. Findings are collected, never thrown.
//
// ============================================
// SECTION 1: Categorical Rejections (any target)
// ============================================
// - goto and labeled statements
// - fixed, unsafe, checked and unchecked code
// - query expressions and pattern matching
// - tuples, pointers, stackalloc, sizeof
// - await
// - preprocessor directives
// - multi-dimensional arrays
//
// ============================================
// SECTION 2: Capability-Gated Constructs
// ============================================
// - yield (Iterators)
// - lambdas (Delegates, GarbageCollection)
// - delegate declarations (Delegates)
// - finalizers (InstanceFinalizers, or the finalizer interface)
// - explicit interface implementations (ExplicitInterfaceImplementation)
// - by-reference parameters and arguments (PassByRef, else boxed)
//
// ============================================
// SECTION 3: Target Structure
// ============================================
//   - base lists spread over partial fragments
//   - overload groups the target cannot tell apart (via the Binder)
//   - local functions on targets without nested functions
//   - $ctor constructors over a base with a native constructor
//     (arity dispatch targets)
//   - structs on targets without value types (warning)
type Validator struct {
	emitter Emitter
	style   *Style
	profile CapabilityProfile
	symbols *syntax.SymbolTable
	forest  *Forest
	binder  *Binder
	checker *SyntaxChecker
	diags   *Diagnostics
	status  map[syntax.NodeID]NodeStatus
	log     *zap.SugaredLogger
}

func NewValidator(em Emitter, profile CapabilityProfile, symbols *syntax.SymbolTable, forest *Forest, binder *Binder, diags *Diagnostics) *Validator {
	return &Validator{
		emitter: em,
		style:   em.Style(),
		profile: profile,
		symbols: symbols,
		forest:  forest,
		binder:  binder,
		checker: NewSyntaxChecker(diags),
		diags:   diags,
		status:  map[syntax.NodeID]NodeStatus{},
		log:     logger.Named("validator"),
	}
}

// Validate binds and checks root and its nested types.
func (v *Validator) Validate(root *DeclarationNode) *Diagnostics {
	for _, node := range v.forest.Subtree(root) {
		v.bind(node)
		v.validateType(node)
	}
	v.log.Debugw("validated", "unit", root.QualifiedName, "findings", v.diags.Len())
	return v.diags
}

// Status returns the state of a node. Nodes never classified are allowed.
func (v *Validator) Status(id syntax.NodeID) NodeStatus {
	return v.status[id]
}

// RequiresRewrite lists the nodes handed to the rewriter, in ID order.
func (v *Validator) RequiresRewrite() []syntax.NodeID {
	var ids []syntax.NodeID
	for id, s := range v.status {
		if s == StatusRequiresRewrite {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarkRewritten moves every pending node to StatusRewritten.
func (v *Validator) MarkRewritten() {
	for id, s := range v.status {
		if s == StatusRequiresRewrite {
			v.status[id] = StatusRewritten
		}
	}
}

func (v *Validator) reject(cat Category, n syntax.Node, hint, format string, args ...interface{}) {
	v.diags.Reject(cat, n, hint, format, args...)
	if !syntax.IsNil(n) {
		v.status[n.ID()] = StatusRejected
	}
}

// require rejects n unless the profile has capability c.
func (v *Validator) require(c Capability, n syntax.Node, what string) bool {
	if v.profile.Has(c) {
		return true
	}
	v.reject(PolicyRejection, n, fmt.Sprintf("Enable %s in the %s profile.", c, v.emitter.Name()),
		"%s requires capability %s", what, c)
	return false
}

func (v *Validator) bind(node *DeclarationNode) {
	for _, err := range v.binder.Bind(node) {
		var ae *AmbiguityError
		if !errors.As(err, &ae) {
			v.reject(InternalError, node.Head(), "", "binding %s: %v", node.QualifiedName, err)
			continue
		}
		var at syntax.Node = node.Head()
		if ae.Second != nil && ae.Second.Node != nil {
			at = ae.Second.Node
		}
		hint := "Rename one of the overloads or change its parameter count."
		if ae.Second != nil && ae.Second.Constructor {
			hint = fmt.Sprintf("Mark additional constructors with [%s].", v.binder.constructorAnnotation())
		}
		v.reject(Ambiguity, at, hint, "%s", ae.Error())
	}
}

func (v *Validator) validateType(node *DeclarationNode) {
	head := node.Head()
	if node.BaseLists > 1 {
		for _, f := range node.Fragments[1:] {
			if f.HasBaseList() {
				v.reject(StructuralRejection, f.Decl, "Keep the base list on one fragment.",
					"partial type %s declares base types in %d fragments", node.QualifiedName, node.BaseLists)
				break
			}
		}
	}
	for _, f := range node.Fragments {
		for _, b := range f.Decl.Bases {
			v.walk(b)
		}
	}
	switch head.TypeKind {
	case syntax.TypeDelegate:
		v.require(Delegates, head, "delegate "+node.Name)
		v.signature(head.Params, head.Result)
		if !v.profile.Has(PassByRef) {
			v.refs(head.Sym, head, head.Params, nil)
		}
	case syntax.TypeStruct:
		if !v.style.ValueTypes {
			v.diags.Warnf(head, "struct %s becomes a reference type on %s; copies share state",
				node.QualifiedName, v.emitter.Name())
		}
	}
	v.constructorChain(node)

	for _, m := range node.Members() {
		switch m := m.(type) {
		case *syntax.MethodDecl:
			if m.Explicit != nil {
				v.require(ExplicitInterfaceImplementation, m,
					"explicit implementation of "+syntax.TypeString(m.Explicit)+"."+m.Name)
			}
			v.signature(m.Params, m.Result)
			v.body(m.Sym, m, m.Params, m.Body)
		case *syntax.ConstructorDecl:
			v.signature(m.Params, nil)
			if init := m.Initializer; init != nil {
				for _, arg := range init.Args {
					v.walk(arg.Value)
				}
				if hasRefArgs(init.Args) && !v.profile.Has(PassByRef) {
					v.reject(RewriteUnsupported, m, "Call a method from the constructor body instead.",
						"by-reference arguments in a constructor initializer cannot be boxed")
				}
			}
			v.body(m.Sym, m, m.Params, m.Body)
		case *syntax.FinalizerDecl:
			v.finalizer(node, m)
			v.body(m.Sym, m, nil, m.Body)
		case *syntax.FieldDecl:
			v.walk(m.Type)
			for _, vd := range m.Vars {
				v.initializer(vd.Init)
			}
		case *syntax.PropertyDecl:
			v.walk(m.Type)
			if m.Getter != nil {
				v.body(m.Sym, m, nil, m.Getter.Body)
			}
			if m.Setter != nil {
				v.body(m.Sym, m, nil, m.Setter.Body)
			}
			v.initializer(m.Init)
		case *syntax.EnumMember:
			v.initializer(m.Value)
		}
	}
}

func (v *Validator) signature(params []*syntax.Parameter, result syntax.TypeExpr) {
	for _, p := range params {
		v.walk(p.Type)
		if p.Default != nil {
			v.walk(p.Default)
		}
	}
	v.walk(result)
}

func (v *Validator) finalizer(node *DeclarationNode, f *syntax.FinalizerDecl) {
	if v.profile.Has(InstanceFinalizers) {
		return
	}
	iface := v.profile.FinalizerInterface
	if iface != "" && v.symbols.Implements(node.Symbol, iface) {
		return
	}
	hint := fmt.Sprintf("Enable %s in the %s profile.", InstanceFinalizers, v.emitter.Name())
	if iface != "" {
		hint = fmt.Sprintf("Implement %s on %s to opt in.", iface, node.Name)
	}
	v.reject(PolicyRejection, f, hint, "finalizer of %s requires capability %s", node.QualifiedName, InstanceFinalizers)
}

// initializer checks a field, property or enum member initializer, which
// has no statement to host a rewrite.
func (v *Validator) initializer(x syntax.Expr) {
	if x == nil {
		return
	}
	v.walk(x)
	if v.profile.Has(PassByRef) {
		return
	}
	syntax.Inspect(x, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.Invocation:
			if hasRefArgs(n.Args) {
				v.reject(RewriteUnsupported, n, "Move the call into a constructor.",
					"by-reference call in an initializer cannot be boxed")
			}
		case *syntax.ObjectCreation:
			if hasRefArgs(n.Args) {
				v.reject(RewriteUnsupported, n, "Move the call into a constructor.",
					"by-reference call in an initializer cannot be boxed")
			}
		}
		return true
	})
}

// body checks one member body. Targets without bodies only get the
// categorical checks.
func (v *Validator) body(sym syntax.SymbolID, at syntax.Node, params []*syntax.Parameter, body *syntax.Block) {
	if body != nil {
		v.walk(body)
	}
	if !v.style.Bodies {
		body = nil
	}
	if body != nil && !v.style.NativeLocalFunctions && v.profile.Has(Delegates) {
		v.localFunctionCycles(body)
	}
	if !v.profile.Has(PassByRef) {
		v.refs(sym, at, params, body)
	}
}

// walk classifies every node under n.
func (v *Validator) walk(n syntax.Node) {
	if syntax.IsNil(n) {
		return
	}
	syntax.Inspect(n, func(c syntax.Node) bool {
		if v.checker.Check(c) {
			v.status[c.ID()] = StatusRejected
			return false
		}
		if !v.style.Bodies {
			return true
		}
		switch c := c.(type) {
		case *syntax.Yield:
			v.require(Iterators, c, "yield statement")
		case *syntax.Lambda:
			if v.require(Delegates, c, "lambda") {
				v.require(GarbageCollection, c, "lambda")
			}
		case *syntax.LocalFunction:
			v.localFunction(c)
		}
		switch c.(type) {
		case syntax.Expr, syntax.Stmt:
			if !Dispatchable(c.Kind()) {
				v.reject(InternalError, c, "", "no emission routine for %s", c.Kind())
			}
		}
		return true
	})
}

func (v *Validator) localFunction(lf *syntax.LocalFunction) {
	if v.style.NativeLocalFunctions {
		return
	}
	if !v.profile.Has(Delegates) {
		v.reject(StructuralRejection, lf, "Move the function into a private method.",
			"local function %s needs closures, which %s lacks", lf.Name, v.emitter.Name())
		return
	}
	ok := true
	for _, p := range lf.Params {
		if p.Ref != syntax.RefNone {
			v.reject(RewriteUnsupported, lf, "Move the function into a private method.",
				"local function %s has by-reference parameter %s", lf.Name, p.Name)
			ok = false
		}
	}
	if ft := closureType(lf); !v.emitter.ClosureSupported(ft) {
		v.reject(StructuralRejection, lf, "Move the function into a private method.",
			"local function %s: %s has no closure type with %d parameters", lf.Name, v.emitter.Name(), len(ft.Params))
		ok = false
	}
	if ok {
		v.status[lf.ID()] = StatusRequiresRewrite
	}
}

// localFunctionCycles rejects local functions that call themselves or each
// other, since a closure cannot refer to itself while it is initialized.
func (v *Validator) localFunctionCycles(body *syntax.Block) {
	check := func(stmts []syntax.Stmt) {
		lfs := localFunctions(stmts)
		if len(lfs) == 0 {
			return
		}
		syms := make([]syntax.SymbolID, len(lfs))
		for i, lf := range lfs {
			syms[i] = lf.Sym
		}
		graph, order := localFunctionGraph(lfs, syms)
		if _, err := TopologicalSort(graph, order); err == nil {
			return
		}
		var names []string
		self := false
		for i, lf := range lfs {
			for _, dep := range graph[order[i]] {
				if dep == order[i] {
					v.reject(StructuralRejection, lf, "Move the function into a private method.",
						"local function %s is recursive", lf.Name)
					self = true
				}
			}
			names = append(names, lf.Name)
		}
		if !self {
			v.reject(StructuralRejection, lfs[0], "Move the functions into private methods.",
				"local functions %s call each other", strings.Join(names, ", "))
		}
	}
	syntax.Inspect(body, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.Block:
			check(n.Stmts)
		case *syntax.Switch:
			for _, sec := range n.Sections {
				check(sec.Body)
			}
		}
		return true
	})
}

// refs checks the by-reference parameters and calls of a member on a
// target without PassByRef.
func (v *Validator) refs(sym syntax.SymbolID, at syntax.Node, params []*syntax.Parameter, body *syntax.Block) {
	member := v.symbols.Lookup(sym)
	if member == nil {
		member = &syntax.Symbol{}
	}
	a := newRefAnalyzer(v.emitter, v.symbols, member)
	a.analyze(at, params, body)
	for _, is := range a.issues {
		v.reject(is.category, is.node, is.hint, "%s", is.message)
	}
	ids := make([]syntax.NodeID, 0, len(a.sites))
	for id := range a.sites {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		site := a.sites[id]
		if !v.require(Delegates, site.call, "by-reference call to "+site.callee.Name) {
			continue
		}
		v.status[id] = StatusRequiresRewrite
	}
	if len(a.refParams) > 0 && v.status[at.ID()] != StatusRejected {
		v.status[at.ID()] = StatusRequiresRewrite
	}
}

// constructorChain rejects derived types whose constructors go through
// $ctor while the base type has one native constructor with required
// parameters: the derived native constructor cannot supply them.
func (v *Validator) constructorChain(node *DeclarationNode) {
	if v.style.Overloads != OverloadArityDispatch {
		return
	}
	ctors := constructors(node)
	if len(ctors) < 2 {
		return
	}
	base := v.baseClass(node)
	if base == nil {
		return
	}
	bctors := constructors(base)
	if len(bctors) != 1 || requiredParams(bctors[0].Params) == 0 {
		return
	}
	v.reject(StructuralRejection, ctors[1], fmt.Sprintf("Give %s a parameterless constructor.", base.Name),
		"constructors of %s are dispatched by argument count and cannot pass arguments to the constructor of %s",
		node.QualifiedName, base.QualifiedName)
}

func (v *Validator) baseClass(node *DeclarationNode) *DeclarationNode {
	s := v.symbols.Lookup(node.Symbol)
	if s == nil {
		return nil
	}
	for _, b := range s.Bases {
		bs := v.symbols.Lookup(b)
		if bs == nil || bs.TypeKind != syntax.TypeClass {
			continue
		}
		return v.forest.BySymbol(b)
	}
	return nil
}

// constructors returns the instance constructors of a type.
func constructors(node *DeclarationNode) []*syntax.ConstructorDecl {
	var out []*syntax.ConstructorDecl
	for _, m := range node.Members() {
		if c, ok := m.(*syntax.ConstructorDecl); ok && !c.Static {
			out = append(out, c)
		}
	}
	return out
}

func requiredParams(params []*syntax.Parameter) int {
	n := 0
	for _, p := range params {
		if p.Default == nil && !p.Variadic {
			n++
		}
	}
	return n
}
