package compiler

import (
	"strconv"

	"codebinder/errors"
	"codebinder/syntax"
)

// closureType is the closure type of a local function. Parameter types
// are copied because the lambda built from lf keeps the originals.
func closureType(lf *syntax.LocalFunction) *syntax.FuncType {
	ft := &syntax.FuncType{Result: lf.Result}
	if syntax.IsVoid(lf.Result) {
		ft.Result = nil
	}
	for _, p := range lf.Params {
		ft.Params = append(ft.Params, syntax.Detach(p.Type))
	}
	return ft
}

// refersTo reports whether n mentions the symbol.
func refersTo(n syntax.Node, sym syntax.SymbolID) bool {
	found := false
	syntax.Inspect(n, func(c syntax.Node) bool {
		if id, ok := c.(*syntax.Identifier); ok && id.Sym == sym {
			found = true
		}
		return !found
	})
	return found
}

// localFunctionGraph maps each local function, keyed by its symbol, to the
// ones among lfs its body calls. syms gives the symbol each function is
// referred to by.
func localFunctionGraph(lfs []*syntax.LocalFunction, syms []syntax.SymbolID) (map[string][]string, []string) {
	graph := map[string][]string{}
	order := make([]string, len(lfs))
	for i, lf := range lfs {
		key := strconv.Itoa(int(syms[i]))
		order[i] = key
		deps := []string{}
		for j := range lfs {
			if refersTo(lf.Body, syms[j]) {
				deps = append(deps, strconv.Itoa(int(syms[j])))
			}
		}
		graph[key] = deps
	}
	return graph, order
}

// localFunctions returns the local functions declared directly in stmts.
func localFunctions(stmts []syntax.Stmt) []*syntax.LocalFunction {
	var lfs []*syntax.LocalFunction
	for _, st := range stmts {
		if lf, ok := st.(*syntax.LocalFunction); ok {
			lfs = append(lfs, lf)
		}
	}
	return lfs
}

// closureHoister turns local functions into closure locals for targets
// without nested functions. Each function becomes a local declared before
// the first statement that uses it, and calls go through the closure.
type closureHoister struct {
	symbols *syntax.SymbolTable
	// closures maps a local function symbol to its closure variable.
	closures  map[syntax.SymbolID]syntax.SymbolID
	isClosure map[syntax.SymbolID]bool
	err       error
}

func hoistLocalFunctions(symbols *syntax.SymbolTable, body *syntax.Block) (*syntax.Block, error) {
	if body == nil {
		return nil, nil
	}
	h := &closureHoister{
		symbols:   symbols,
		closures:  map[syntax.SymbolID]syntax.SymbolID{},
		isClosure: map[syntax.SymbolID]bool{},
	}
	syntax.Inspect(body, func(n syntax.Node) bool {
		lf, ok := n.(*syntax.LocalFunction)
		if !ok {
			return true
		}
		var container syntax.SymbolID
		if s := symbols.Lookup(lf.Sym); s != nil {
			container = s.Container
		}
		id := symbols.Add(&syntax.Symbol{
			Kind:      syntax.SymLocal,
			Name:      lf.Name,
			Container: container,
			Type:      closureType(lf),
		})
		h.closures[lf.Sym] = id
		h.isClosure[id] = true
		return true
	})
	if len(h.closures) == 0 {
		return body, nil
	}
	out := syntax.Rewrite(body, h.rewrite).(*syntax.Block)
	return out, h.err
}

func (h *closureHoister) rewrite(n syntax.Node) syntax.Node {
	switch n := n.(type) {
	case *syntax.Identifier:
		if id, ok := h.closures[n.Sym]; ok {
			cp := *n
			cp.Sym = id
			return &cp
		}
	case *syntax.Invocation:
		if fun, ok := unparen(n.Fun).(*syntax.Identifier); ok && h.isClosure[fun.Sym] && !n.ValueCall {
			cp := *n
			cp.ValueCall = true
			return &cp
		}
	case *syntax.Block:
		if stmts, ok := h.hoist(n.Stmts); ok {
			cp := *n
			cp.Stmts = stmts
			return &cp
		}
	case *syntax.Switch:
		var sections []*syntax.SwitchSection
		for i, sec := range n.Sections {
			stmts, ok := h.hoist(sec.Body)
			if !ok {
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
			return &cp
		}
	}
	return n
}

// hoist replaces the local functions of a statement list by closure
// declarations. The function bodies are already rewritten, so they refer to
// the closure symbols.
func (h *closureHoister) hoist(stmts []syntax.Stmt) ([]syntax.Stmt, bool) {
	lfs := localFunctions(stmts)
	if len(lfs) == 0 {
		return stmts, false
	}
	syms := make([]syntax.SymbolID, len(lfs))
	for i, lf := range lfs {
		syms[i] = h.closures[lf.Sym]
	}
	graph, order := localFunctionGraph(lfs, syms)
	sorted, err := TopologicalSort(graph, order)
	if err != nil {
		if h.err == nil {
			h.err = errors.Wrapf(err, "%s: local functions of one block call each other", lfs[0].Pos())
		}
		return stmts, false
	}

	// pos is the index of the statement a closure goes in front of: its own
	// declaration or an earlier use, whichever comes first.
	pos := map[string]int{}
	for i, st := range stmts {
		for j, lf := range lfs {
			key := order[j]
			if _, done := pos[key]; done {
				continue
			}
			if syntax.Stmt(lf) == st || refersTo(st, syms[j]) {
				pos[key] = i
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for key, deps := range graph {
			for _, dep := range deps {
				if pos[dep] > pos[key] {
					pos[dep] = pos[key]
					changed = true
				}
			}
		}
	}

	decls := map[string]syntax.Stmt{}
	for j, lf := range lfs {
		decls[order[j]] = &syntax.LocalDecl{
			Base: lf.Base,
			Type: closureType(lf),
			Vars: []*syntax.VarDeclarator{{
				Name: lf.Name,
				Sym:  syms[j],
				Init: &syntax.Lambda{Base: syntax.Base{At: lf.At}, Params: lf.Params, Body: lf.Body},
			}},
		}
	}
	out := make([]syntax.Stmt, 0, len(stmts))
	for i, st := range stmts {
		for _, key := range sorted {
			if pos[key] == i {
				out = append(out, decls[key])
			}
		}
		if _, ok := st.(*syntax.LocalFunction); !ok {
			out = append(out, st)
		}
	}
	return out, true
}
