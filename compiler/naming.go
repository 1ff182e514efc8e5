package compiler

import (
	"sort"
	"strings"
	"unicode"

	"codebinder/errors"
	"codebinder/syntax"
)

// Casing is a rule for spelling source identifiers in a target.
type Casing int

const (
	Verbatim Casing = iota
	LowerCamel
	PascalCase
	SnakeCase
)

var casingNames = []string{"verbatim", "lowerCamel", "PascalCase", "snake_case"}

func (c Casing) String() string {
	if c < 0 || int(c) >= len(casingNames) {
		return "unknown"
	}
	return casingNames[c]
}

// ParseCasing accepts a casing name, case-insensitively.
func ParseCasing(s string) (Casing, error) {
	for i, name := range casingNames {
		if strings.EqualFold(name, s) {
			return Casing(i), nil
		}
	}
	return Verbatim, errors.WithHintf(errors.Newf("unknown casing %q", s),
		"valid casings: %s", strings.Join(casingNames, ", "))
}

// Apply spells name under the casing rule.
func (c Casing) Apply(name string) string {
	if name == "" {
		return name
	}
	switch c {
	case LowerCamel:
		return lowerFirst(name)
	case PascalCase:
		r := []rune(name)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	case SnakeCase:
		return toSnake(name)
	}
	return name
}

// lowerFirst lowers the leading run of capitals, leaving the last one of a
// longer run in place ("IOStream" becomes "ioStream").
func lowerFirst(name string) string {
	r := []rune(name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	if n == 0 {
		return name
	}
	if n > 1 && n < len(r) {
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

func toSnake(name string) string {
	var sb strings.Builder
	r := []rune(name)
	for i, c := range r {
		if unicode.IsUpper(c) {
			if i > 0 && r[i-1] != '_' && (unicode.IsLower(r[i-1]) || (i+1 < len(r) && unicode.IsLower(r[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(c))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// Replacement is a target spelling for a source member. A replacement whose
// text mentions {x} or {args} is a template: {x} stands for the receiver and
// {args} for the comma separated arguments. Any other text replaces the
// callee or member name.
type Replacement struct {
	Text string
}

func (r Replacement) IsTemplate() bool {
	return strings.Contains(r.Text, "{x}") || strings.Contains(r.Text, "{args}")
}

// Expand fills a template. For plain replacements it returns the text.
func (r Replacement) Expand(receiver, args string) string {
	if !r.IsTemplate() {
		return r.Text
	}
	return strings.NewReplacer("{x}", receiver, "{args}", args).Replace(r.Text)
}

// ReplacementTable maps "Type.Member" keys to target spellings. The type part
// is either the qualified or the simple type name; predefined types use their
// keyword ("string.Length"). Tables are values: Merge returns a new table.
type ReplacementTable struct {
	entries map[string]Replacement
}

func NewReplacementTable(entries map[string]string) ReplacementTable {
	t := ReplacementTable{entries: make(map[string]Replacement, len(entries))}
	for k, v := range entries {
		t.entries[k] = Replacement{Text: v}
	}
	return t
}

// Merge returns a table holding t's entries overridden by other's.
func (t ReplacementTable) Merge(other ReplacementTable) ReplacementTable {
	out := ReplacementTable{entries: make(map[string]Replacement, len(t.entries)+len(other.entries))}
	for k, v := range t.entries {
		out.entries[k] = v
	}
	for k, v := range other.entries {
		out.entries[k] = v
	}
	return out
}

// Lookup finds the entry for member of the type, trying the qualified name
// first and then the simple name.
func (t ReplacementTable) Lookup(typeName, member string) (Replacement, bool) {
	if len(t.entries) == 0 || typeName == "" {
		return Replacement{}, false
	}
	if r, ok := t.entries[typeName+"."+member]; ok {
		return r, true
	}
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		if r, ok := t.entries[typeName[i+1:]+"."+member]; ok {
			return r, true
		}
	}
	return Replacement{}, false
}

func (t ReplacementTable) Len() int { return len(t.entries) }

// Keys returns the entry keys in sorted order.
func (t ReplacementTable) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NamingPolicy decides the bound names of members in one target.
type NamingPolicy struct {
	Methods    Casing
	Properties Casing
	Types      Casing
	// QualifyMembers prefixes member names with their type ("Foo_Bar").
	QualifyMembers bool
	// Constructor is the bound name of constructors. Empty means the type
	// name.
	Constructor  string
	Replacements ReplacementTable
}

// TypeName is the target name of a type symbol.
func (p NamingPolicy) TypeName(s *syntax.Symbol) string {
	if s == nil {
		return ""
	}
	return p.Types.Apply(s.Name)
}

// MemberName computes the bound name of a method, constructor or property
// symbol: the replacement entry when one exists, otherwise the cased name.
func (p NamingPolicy) MemberName(symbols *syntax.SymbolTable, id syntax.SymbolID) string {
	s := symbols.Lookup(id)
	if s == nil {
		return ""
	}
	owner := symbols.DeclaringType(id)
	if owner != nil {
		if r, ok := p.Replacements.Lookup(owner.Qualified, s.Name); ok && !r.IsTemplate() {
			return r.Text
		}
	}
	var name string
	switch s.Kind {
	case syntax.SymConstructor:
		name = p.Constructor
		if name == "" && owner != nil {
			name = p.TypeName(owner)
		}
	case syntax.SymProperty:
		name = p.Properties.Apply(s.Name)
	case syntax.SymMethod:
		name = p.Methods.Apply(s.Name)
	default:
		name = s.Name
	}
	if p.QualifyMembers && owner != nil && s.Kind != syntax.SymField && s.Kind != syntax.SymEnumMember {
		return p.TypeName(owner) + "_" + name
	}
	return name
}
