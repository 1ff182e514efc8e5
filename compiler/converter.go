package compiler

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codebinder/errors"
	"codebinder/logger"
	"codebinder/syntax"
)

// Artifact is one named output buffer of a unit.
type Artifact struct {
	Name string
	Text string
}

// UnitStatus is the outcome of converting one unit.
type UnitStatus int

const (
	UnitConverted UnitStatus = iota
	UnitRejected
	UnitFailed
)

func (s UnitStatus) String() string {
	switch s {
	case UnitRejected:
		return "rejected"
	case UnitFailed:
		return "failed"
	}
	return "converted"
}

// UnitResult is what one (unit, target) conversion produced. Rejected and
// failed units have no artifacts.
type UnitResult struct {
	Unit        string
	Target      string
	Artifacts   []Artifact
	Diagnostics *Diagnostics
	Status      UnitStatus
	Err         error
}

// ConverterOptions configure a run.
type ConverterOptions struct {
	// Workers bounds the units converted at once. Zero means GOMAXPROCS.
	Workers int
	// Units restricts the run to the named roots. Empty converts all.
	Units []string
}

// Converter runs bind, validate, rewrite and emit for every unit of a
// program. The forest and symbol table are shared read-only; each unit
// works on its own binder, symbol fork and ID allocator.
type Converter struct {
	files   []*syntax.File
	symbols *syntax.SymbolTable
	forest  *Forest
	maxID   syntax.NodeID
	opts    ConverterOptions
	runID   string
	log     *zap.SugaredLogger
}

// NewConverter numbers the input trees and builds the declaration forest.
// A nil symbol table is resolved from the files.
func NewConverter(files []*syntax.File, symbols *syntax.SymbolTable, opts ConverterOptions) *Converter {
	roots := make([]syntax.Node, len(files))
	for i, f := range files {
		roots[i] = f
	}
	maxID := syntax.Number(roots...)
	if symbols == nil {
		symbols = syntax.Resolve(files)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	runID := uuid.NewString()
	return &Converter{
		files:   files,
		symbols: symbols,
		forest:  BuildForest(symbols, files),
		maxID:   maxID,
		opts:    opts,
		runID:   runID,
		log:     logger.Named("converter").With("run", runID),
	}
}

// Forest returns the shared declaration forest.
func (c *Converter) Forest() *Forest { return c.forest }

// Symbols returns the shared symbol table.
func (c *Converter) Symbols() *syntax.SymbolTable { return c.symbols }

// RunID identifies the run in logs.
func (c *Converter) RunID() string { return c.runID }

func (c *Converter) units() ([]*DeclarationNode, error) {
	roots := c.forest.Roots()
	if len(c.opts.Units) == 0 {
		return roots, nil
	}
	var out []*DeclarationNode
	for _, name := range c.opts.Units {
		n := c.forest.Lookup(name)
		if n == nil || !n.IsRoot() {
			return nil, errors.WithHint(errors.Wrapf(errors.ErrInvalidInput, "no top-level type %q", name),
				"Units are named by their qualified name, e.g. Namespace.Type.")
		}
		out = append(out, n)
	}
	return out, nil
}

// Convert converts every unit for em. Units run concurrently; a rejected or
// failed unit does not stop the others. Cancelling ctx stops scheduling new
// units and returns the context error with the results gathered so far.
func (c *Converter) Convert(ctx context.Context, em Emitter) ([]*UnitResult, error) {
	units, err := c.units()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	results := make([]*UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	var cancelled error
	for i, root := range units {
		if err := gctx.Err(); err != nil {
			cancelled = err
			break
		}
		i, root := i, root
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.convertUnit(em, root)
			return nil
		})
	}
	if err := g.Wait(); err != nil && cancelled == nil {
		cancelled = err
	}

	out := make([]*UnitResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	c.summarize(em, out, time.Since(start))
	if cancelled != nil {
		return out, errors.Wrap(cancelled, "conversion cancelled")
	}
	return out, nil
}

func (c *Converter) summarize(em Emitter, results []*UnitResult, took time.Duration) {
	counts := map[UnitStatus]int{}
	for _, r := range results {
		counts[r.Status]++
		if r.Status != UnitConverted {
			c.log.Infow("unit not converted",
				"unit", r.Unit, "target", em.Name(), "status", r.Status.String(),
				"errors", len(r.Diagnostics.Errors()))
		}
	}
	c.log.Debugw("run finished",
		"target", em.Name(),
		"converted", counts[UnitConverted],
		"rejected", counts[UnitRejected],
		"failed", counts[UnitFailed],
		"took", took)
}

// Check validates every unit for em without emitting.
func (c *Converter) Check(ctx context.Context, em Emitter) ([]*UnitResult, error) {
	units, err := c.units()
	if err != nil {
		return nil, err
	}
	var out []*UnitResult
	for _, root := range units {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, "check cancelled")
		}
		u := c.newUnit(em, root)
		u.validate()
		out = append(out, u.result())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out, nil
}

// Rewrite validates and rewrites one unit for em and returns the rewritten
// declarations of its subtree, root first. Nodes the rewrite left alone are
// returned as they are.
func (c *Converter) Rewrite(em Emitter, unit string) ([]*DeclarationNode, *Diagnostics, error) {
	u, err := c.rewriteUnit(em, unit)
	if err != nil {
		if u != nil {
			return nil, u.diags, err
		}
		return nil, nil, err
	}
	var out []*DeclarationNode
	for _, n := range c.forest.Subtree(u.root) {
		out = append(out, u.ctx.Node(n.ID))
	}
	return out, u.diags, nil
}

// Preview rewrites unit for lower and prints the result with printer.
// Lowering for one target and reading it back in another dialect shows
// what the rewrite did.
func (c *Converter) Preview(lower, printer Emitter, unit string) (string, *Diagnostics, error) {
	u, err := c.rewriteUnit(lower, unit)
	if err != nil {
		if u != nil {
			return "", u.diags, err
		}
		return "", nil, err
	}
	ctx := NewEmissionContext(printer, u.symbols, c.forest, NewUnitBinder(printer, u.symbols, c.forest))
	ctx.Root = u.root
	ctx.rewritten = u.ctx.rewritten
	return emitUnit(ctx, printer, u.root), u.diags, nil
}

func (c *Converter) rewriteUnit(em Emitter, name string) (*unit, error) {
	root := c.forest.Lookup(name)
	if root == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "no type %q", name)
	}
	root = c.forest.Root(root)
	u := c.newUnit(em, root)
	if !u.validate() {
		return u, u.diags.Err(root.QualifiedName)
	}
	if err := u.rewrite(); err != nil {
		return u, err
	}
	return u, nil
}

// unit is the private state of one conversion.
type unit struct {
	conv      *Converter
	em        Emitter
	root      *DeclarationNode
	symbols   *syntax.SymbolTable
	binder    *Binder
	validator *Validator
	diags     *Diagnostics
	ids       *syntax.IDAllocator
	ctx       *EmissionContext
	status    UnitStatus
	err       error
	artifacts []Artifact
}

// NewEmissionContext returns a context for emitting units of forest with
// em. The binder must belong to a single unit.
func NewEmissionContext(em Emitter, symbols *syntax.SymbolTable, forest *Forest, binder *Binder) *EmissionContext {
	return &EmissionContext{
		Profile:      em.DefaultProfile(),
		Emitter:      em,
		Style:        em.Style(),
		Forest:       forest,
		Symbols:      symbols,
		Binder:       binder,
		Replacements: em.Naming().Replacements,
		Builder:      NewCodeBuilder(em.Style().Indent),
		rewritten:    map[DeclID]*DeclarationNode{},
	}
}

// NewUnitBinder returns a binder configured for em over forest. Turning
// off CheckMethodOverloads also turns off the constructor policy.
func NewUnitBinder(em Emitter, symbols *syntax.SymbolTable, forest *Forest) *Binder {
	profile := em.DefaultProfile()
	style := em.Style()
	ctors := profile.Constructors
	if !profile.CheckMethodOverloads {
		ctors.SingleRegular = false
	}
	return NewBinder(symbols, BinderOptions{
		Naming:       em.Naming(),
		Check:        profile.CheckMethodOverloads && style.Overloads != OverloadNative,
		Flat:         style.Overloads == OverloadNone,
		Constructors: ctors,
		Forest:       forest,
	})
}

func (c *Converter) newUnit(em Emitter, root *DeclarationNode) *unit {
	symbols := c.symbols.Fork()
	binder := NewUnitBinder(em, symbols, c.forest)
	diags := &Diagnostics{}
	ctx := NewEmissionContext(em, symbols, c.forest, binder)
	ctx.Root = root
	return &unit{
		conv:      c,
		em:        em,
		root:      root,
		symbols:   symbols,
		binder:    binder,
		validator: NewValidator(em, em.DefaultProfile(), symbols, c.forest, binder, diags),
		diags:     diags,
		ids:       syntax.NewIDAllocator(c.maxID),
		ctx:       ctx,
	}
}

func (u *unit) result() *UnitResult {
	u.diags.Sort()
	return &UnitResult{
		Unit:        u.root.QualifiedName,
		Target:      u.em.Name(),
		Artifacts:   u.artifacts,
		Diagnostics: u.diags,
		Status:      u.status,
		Err:         u.err,
	}
}

func (c *Converter) convertUnit(em Emitter, root *DeclarationNode) (res *UnitResult) {
	u := c.newUnit(em, root)
	log := c.log.With("unit", root.QualifiedName, "target", em.Name())
	log.Debug("unit started")
	defer func() {
		if r := recover(); r != nil {
			u.fail(r)
			log.Warnw("unit failed", "panic", fmt.Sprint(r))
		}
		res = u.result()
		log.Debugw("unit finished", "status", res.Status.String(), "artifacts", len(res.Artifacts))
	}()
	if !u.validate() {
		return
	}
	if err := u.rewrite(); err != nil {
		u.fail(err)
		return
	}
	u.emit()
	return
}

// fail turns a panic or rewrite error into an internal error of the unit.
func (u *unit) fail(cause interface{}) {
	var at syntax.Node = u.root.Head()
	var msg string
	switch e := cause.(type) {
	case error:
		msg = e.Error()
	default:
		msg = fmt.Sprint(e)
	}
	u.diags.Reject(InternalError, at, "This is a bug in the converter. Please report it with the input.", "%s", msg)
	u.status = UnitFailed
	u.artifacts = nil
	u.err = errors.Wrapf(errors.AssertionFailedf("%s", msg), "converting %s", u.root.QualifiedName)
}

// validate binds and checks the unit and reports whether it may proceed.
func (u *unit) validate() bool {
	u.validator.Validate(u.root)
	if err := u.diags.Err(u.root.QualifiedName); err != nil {
		u.status = UnitRejected
		u.err = err
		return false
	}
	return true
}

// rewrite lowers the constructs the target cannot spell. The forest keeps
// the original declarations; rewritten copies live in the unit context.
func (u *unit) rewrite() error {
	for _, node := range u.conv.forest.Subtree(u.root) {
		cp, err := u.rewriteDecl(node)
		if err != nil {
			return err
		}
		if cp != node {
			u.ctx.rewritten[node.ID] = cp
		}
	}
	u.validator.MarkRewritten()
	return nil
}

func (u *unit) rewriteDecl(node *DeclarationNode) (*DeclarationNode, error) {
	changed := false
	frags := make([]Fragment, len(node.Fragments))
	for i, f := range node.Fragments {
		td, err := u.rewriteTypeDecl(f.Decl)
		if err != nil {
			return nil, errors.Wrapf(err, "rewriting %s", node.QualifiedName)
		}
		if td != f.Decl {
			changed = true
		}
		frags[i] = Fragment{Decl: td, File: f.File, Namespace: f.Namespace}
	}
	if !changed {
		return node, nil
	}
	cp := *node
	cp.Fragments = frags
	return &cp, nil
}

func (u *unit) rewriteTypeDecl(td *syntax.TypeDecl) (*syntax.TypeDecl, error) {
	profile := u.em.DefaultProfile()
	var params []*syntax.Parameter
	if td.TypeKind == syntax.TypeDelegate && !profile.Has(PassByRef) {
		p, _, err := u.lower(td, td.Sym, td.Params, nil)
		if err != nil {
			return nil, err
		}
		params = p
	}
	members := make([]syntax.Decl, len(td.Members))
	changed := false
	for i, m := range td.Members {
		out, err := u.rewriteMember(m)
		if err != nil {
			return nil, err
		}
		if out != m {
			changed = true
		}
		members[i] = out
	}
	if !changed && (params == nil || samePointers(params, td.Params)) {
		return td, nil
	}
	cp := *td
	cp.Members = members
	if params != nil {
		cp.Params = params
	}
	return &cp, nil
}

func samePointers(a, b []*syntax.Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (u *unit) rewriteMember(m syntax.Decl) (syntax.Decl, error) {
	switch m := m.(type) {
	case *syntax.MethodDecl:
		params, body, err := u.lower(m, m.Sym, m.Params, m.Body)
		if err != nil || (samePointers(params, m.Params) && body == m.Body) {
			return m, err
		}
		cp := *m
		cp.Params, cp.Body = params, body
		return &cp, nil
	case *syntax.ConstructorDecl:
		params, body, err := u.lower(m, m.Sym, m.Params, m.Body)
		if err != nil || (samePointers(params, m.Params) && body == m.Body) {
			return m, err
		}
		cp := *m
		cp.Params, cp.Body = params, body
		return &cp, nil
	case *syntax.FinalizerDecl:
		_, body, err := u.lower(m, m.Sym, nil, m.Body)
		if err != nil || body == m.Body {
			return m, err
		}
		cp := *m
		cp.Body = body
		return &cp, nil
	case *syntax.PropertyDecl:
		getter, err := u.lowerAccessor(m, m.Getter)
		if err != nil {
			return m, err
		}
		setter, err := u.lowerAccessor(m, m.Setter)
		if err != nil {
			return m, err
		}
		if getter == m.Getter && setter == m.Setter {
			return m, nil
		}
		cp := *m
		cp.Getter, cp.Setter = getter, setter
		return &cp, nil
	}
	return m, nil
}

func (u *unit) lowerAccessor(p *syntax.PropertyDecl, a *syntax.Accessor) (*syntax.Accessor, error) {
	if a == nil || a.Body == nil {
		return a, nil
	}
	_, body, err := u.lower(p, p.Sym, nil, a.Body)
	if err != nil || body == a.Body {
		return a, err
	}
	return &syntax.Accessor{Access: a.Access, Body: body}, nil
}

// lower hoists local functions and boxes by-reference parameters and
// arguments of one member, as the target requires.
func (u *unit) lower(at syntax.Node, sym syntax.SymbolID, params []*syntax.Parameter, body *syntax.Block) ([]*syntax.Parameter, *syntax.Block, error) {
	style := u.em.Style()
	profile := u.em.DefaultProfile()
	if body != nil && style.Bodies && !style.NativeLocalFunctions {
		hoisted, err := hoistLocalFunctions(u.symbols, body)
		if err != nil {
			return nil, nil, err
		}
		if hoisted != body {
			u.ids.Stamp(hoisted, body.Pos())
		}
		body = hoisted
	}
	if profile.Has(PassByRef) {
		return params, body, nil
	}
	member := u.symbols.Lookup(sym)
	if member == nil {
		member = &syntax.Symbol{ID: sym, Name: "<anonymous>"}
	}
	return newRefRewriter(u.em, u.symbols, member, u.ids).rewrite(at, params, body)
}

// emit renders the unit. Nested types are written inside their parent
// where the target nests types, else one after another with bases first.
func (u *unit) emit() {
	root := u.ctx.Node(u.root.ID)
	u.artifacts = []Artifact{{Name: ArtifactName(u.em, root), Text: emitUnit(u.ctx, u.em, u.root)}}
	u.status = UnitConverted
}

// emitUnit renders the subtree of root, taking rewritten copies from ctx.
func emitUnit(ctx *EmissionContext, em Emitter, root *DeclarationNode) string {
	var nodes []*DeclarationNode
	if em.Style().NestedTypes {
		nodes = []*DeclarationNode{ctx.Node(root.ID)}
	} else {
		for _, n := range ctx.Forest.Subtree(root) {
			nodes = append(nodes, ctx.Node(n.ID))
		}
		nodes = orderByBase(ctx, nodes)
	}
	for i, n := range nodes {
		if i > 0 {
			ctx.Builder.EnsureLine().Line()
		}
		em.TypeDeclaration(ctx, n)
	}
	body := ctx.Builder.String()
	top := ctx.Node(root.ID)
	text := em.Prologue(ctx, top) + body + em.Epilogue(ctx, top)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}

// ArtifactName is the relative output path of a unit.
func ArtifactName(em Emitter, root *DeclarationNode) string {
	name := root.Name + em.Extension()
	if em.Style().PackageDirs && root.Namespace != "" {
		dir := strings.ToLower(strings.ReplaceAll(root.Namespace, ".", "/"))
		return path.Join(dir, name)
	}
	return name
}
