package syntax

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"codebinder/errors"
)

// Document is the JSON interchange form of a program.
//
// Each node is an object with a "kind" discriminator naming its Go type
// ("Invocation", "TypeDecl", ...), optional "id" and "pos" ("file:line:col"),
// and its fields in lowerCamel case. Shorthands keep documents small: a type
// may be given as a string ("int", "List<string>", "int[]"), and an
// expression as a JSON number, boolean, or a string holding an identifier or
// dotted member path.
type Document struct {
	Files []*File
}

var registry = func() map[string]reflect.Type {
	m := map[string]reflect.Type{}
	for _, p := range prototypes() {
		m[p.Kind().String()] = reflect.TypeOf(p).Elem()
	}
	return m
}()

var (
	exprType     = reflect.TypeOf((*Expr)(nil)).Elem()
	typeExprType = reflect.TypeOf((*TypeExpr)(nil)).Elem()
)

// Decode reads a document: either {"files": [...]}, a list of files, or a
// single file.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read syntax document")
	}
	return DecodeBytes(data)
}

func DecodeBytes(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	var raws []json.RawMessage
	switch {
	case len(data) > 0 && data[0] == '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, invalid(err)
		}
	default:
		var head struct {
			Files []json.RawMessage `json:"files"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, invalid(err)
		}
		if head.Files != nil {
			raws = head.Files
		} else {
			raws = []json.RawMessage{data}
		}
	}

	doc := &Document{}
	for i, raw := range raws {
		n, err := decodeNodeAs(raw, reflect.TypeOf(File{}))
		if err != nil {
			return nil, invalid(errors.Wrapf(err, "file %d", i))
		}
		f, ok := n.(*File)
		if !ok {
			return nil, invalid(errors.Newf("file %d: expected File, got %s", i, n.Kind()))
		}
		doc.Files = append(doc.Files, f)
	}
	return doc, nil
}

func invalid(err error) error {
	return errors.Mark(errors.Wrap(err, "decode syntax document"), errors.ErrInvalidInput)
}

// decodeNodeAs decodes one node object; want is used when "kind" is absent.
func decodeNodeAs(raw json.RawMessage, want reflect.Type) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	t := want
	if k, ok := fields["kind"]; ok {
		var kind string
		if err := json.Unmarshal(k, &kind); err != nil {
			return nil, err
		}
		rt, ok := registry[kind]
		if !ok {
			return nil, fmt.Errorf("unknown node kind %q", kind)
		}
		t = rt
	}
	if t == nil {
		return nil, fmt.Errorf("node without kind")
	}
	p := reflect.New(t)
	if err := decodeFields(p.Elem(), fields); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}
	n := p.Interface().(Node)
	b := n.base()
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &b.NodeID); err != nil {
			return nil, err
		}
	}
	if raw, ok := fields["pos"]; ok {
		if err := json.Unmarshal(raw, &b.At); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func jsonName(field string) string {
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func decodeFields(v reflect.Value, fields map[string]json.RawMessage) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		name := jsonName(f.Name)
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := decodeValue(v.Field(i), raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func decodeValue(v reflect.Value, raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if string(raw) == "null" {
		return nil
	}
	t := v.Type()
	switch {
	case t.Kind() == reflect.Interface && t.Implements(nodeType):
		n, err := decodeInterface(raw, t)
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(n)
		if !rv.Type().AssignableTo(t) {
			return fmt.Errorf("%s cannot be used as %s", n.Kind(), t.Name())
		}
		v.Set(rv)
	case t.Kind() == reflect.Ptr && t.Implements(nodeType):
		n, err := decodeNodeAs(raw, t.Elem())
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(n)
		if rv.Type() != t {
			return fmt.Errorf("%s cannot be used as %s", n.Kind(), t.Elem().Name())
		}
		v.Set(rv)
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && carriesNodes(t):
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		p := reflect.New(t.Elem())
		if err := decodeFields(p.Elem(), fields); err != nil {
			return err
		}
		v.Set(p)
	case t.Kind() == reflect.Slice && carriesNodes(t.Elem()):
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := decodeValue(s.Index(i), item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		v.Set(s)
	default:
		return json.Unmarshal(raw, v.Addr().Interface())
	}
	return nil
}

// decodeInterface handles the shorthands allowed for types and expressions.
func decodeInterface(raw json.RawMessage, t reflect.Type) (Node, error) {
	switch raw[0] {
	case '{':
		return decodeNodeAs(raw, nil)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if t == typeExprType {
			return ParseType(s), nil
		}
		if t == exprType || t == nodeType {
			return pathExpr(s), nil
		}
	case 't', 'f':
		if t == exprType || t == nodeType {
			return &Literal{LitKind: LitBool, Value: string(raw)}, nil
		}
	default:
		if t == exprType || t == nodeType {
			s := string(raw)
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &Literal{LitKind: LitInt, Value: s}, nil
			}
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				return &Literal{LitKind: LitDouble, Value: s}, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot decode %s as %s", raw, t.Name())
}

func pathExpr(s string) Expr {
	parts := strings.Split(s, ".")
	var e Expr = &Identifier{Name: parts[0]}
	if parts[0] == "this" {
		e = &This{}
	}
	for _, p := range parts[1:] {
		e = &MemberAccess{X: e, Name: p}
	}
	return e
}
