// Package idl holds the type model that drives harness generation and a
// loader for YAML and JSON renditions of the libxl IDL.
//
// A schema file declares a namespace, a list of builtins (types the C
// library provides) and a list of named types:
//
//	namespace: libxl_
//	builtins:
//	  - {name: domid, kind: integer}
//	  - {name: uuid, kind: blob, passby: reference}
//	types:
//	  - name: domain_type
//	    kind: enum
//	    values: [{value: 1, name: hvm}, {value: 2, name: pv}]
//	  - name: domain_build_info
//	    kind: struct
//	    fields:
//	      - {name: type, type: domain_type}
//	      - name: u
//	        type:
//	          kind: keyed_union
//	          keyvar: type
//	          keyvar_type: domain_type
//	          arms:
//	            - {enum: hvm, type: {kind: struct, fields: [{name: timer_mode, type: int}]}}
//
// A field type is either the name of a declared or predeclared type, or an
// inline anonymous type.
package idl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of a schema file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported schema extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// Schema is the parsed type graph.
type Schema struct {
	Namespace string
	// Builtins are the builtin types declared by the schema file.
	Builtins []Type
	// Types are the remaining named types, in declaration order.
	Types []Type

	scope map[string]Type
}

// All returns the builtins followed by the types.
func (s *Schema) All() []Type {
	all := make([]Type, 0, len(s.Builtins)+len(s.Types))
	all = append(all, s.Builtins...)
	return append(all, s.Types...)
}

// Lookup finds a type by its schema name or its C type name.
func (s *Schema) Lookup(name string) (Type, bool) {
	t, ok := s.scope[name]
	return t, ok
}

// Enumerations returns the declared enumerations in declaration order.
func (s *Schema) Enumerations() []*Enumeration {
	var enums []*Enumeration
	for _, t := range s.Types {
		if e, ok := t.(*Enumeration); ok {
			enums = append(enums, e)
		}
	}
	return enums
}

type document struct {
	Namespace string    `yaml:"namespace" json:"namespace"`
	Builtins  []typeDoc `yaml:"builtins" json:"builtins"`
	Types     []typeDoc `yaml:"types" json:"types"`
}

type typeDoc struct {
	Name      string  `yaml:"name" json:"name"`
	Kind      string  `yaml:"kind" json:"kind"`
	Namespace *string `yaml:"namespace" json:"namespace"`
	PassBy    string  `yaml:"passby" json:"passby"`
	JSONFn    *string `yaml:"json_fn" json:"json_fn"`
	DisposeFn *string `yaml:"dispose_fn" json:"dispose_fn"`

	Signed bool `yaml:"signed" json:"signed"`
	Width  int  `yaml:"width" json:"width"`

	Values []valueDoc `yaml:"values" json:"values"`
	Fields []fieldDoc `yaml:"fields" json:"fields"`

	KeyVar     string   `yaml:"keyvar" json:"keyvar"`
	KeyVarType string   `yaml:"keyvar_type" json:"keyvar_type"`
	Arms       []armDoc `yaml:"arms" json:"arms"`

	Elem   *typeRef `yaml:"elem" json:"elem"`
	LenVar string   `yaml:"lenvar" json:"lenvar"`
}

type valueDoc struct {
	Name  string `yaml:"name" json:"name"`
	Value *int   `yaml:"value" json:"value"`
}

type fieldDoc struct {
	Name  string  `yaml:"name" json:"name"`
	Type  typeRef `yaml:"type" json:"type"`
	Const bool    `yaml:"const" json:"const"`
}

type armDoc struct {
	Enum string  `yaml:"enum" json:"enum"`
	Type typeRef `yaml:"type" json:"type"`
}

// typeRef is either a type name or an inline type.
type typeRef struct {
	Name   string
	Inline *typeDoc
}

func (r *typeRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Name)
	}
	r.Inline = &typeDoc{}
	return value.Decode(r.Inline)
}

func (r *typeRef) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		return gojson.Unmarshal(trimmed, &r.Name)
	}
	r.Inline = &typeDoc{}
	return gojson.Unmarshal(data, r.Inline)
}

// Load reads and parses a schema file, picking the format from its
// extension.
func Load(path string) (*Schema, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document and resolves every type reference.
// Resolution problems are reported together as ValidationErrors.
func Parse(data []byte, format Format) (*Schema, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := gojson.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding JSON schema: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding YAML schema: %w", err)
		}
	}

	b := newSchemaBuilder(&doc)
	return b.build()
}

type schemaBuilder struct {
	doc    *document
	schema *Schema
	decls  map[Type]*typeDoc
	errs   ValidationErrors
}

func newSchemaBuilder(doc *document) *schemaBuilder {
	scope := predeclared()
	return &schemaBuilder{
		doc:    doc,
		schema: &Schema{Namespace: doc.Namespace, scope: scope},
		decls:  make(map[Type]*typeDoc),
	}
}

func (b *schemaBuilder) build() (*Schema, error) {
	// Declare every named type first so fields may reference types
	// declared further down the file.
	for i := range b.doc.Builtins {
		d := &b.doc.Builtins[i]
		if t := b.declare(d, fmt.Sprintf("builtins[%d]", i), true); t != nil {
			b.schema.Builtins = append(b.schema.Builtins, t)
		}
	}
	for i := range b.doc.Types {
		d := &b.doc.Types[i]
		if t := b.declare(d, fmt.Sprintf("types[%d]", i), false); t != nil {
			b.schema.Types = append(b.schema.Types, t)
		}
	}

	for _, t := range b.schema.All() {
		// Enumerations used as union keys may have been filled already.
		if d, ok := b.decls[t]; ok {
			b.fill(t, d, t.Info().TypeName)
		}
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return b.schema, nil
}

func (b *schemaBuilder) errorf(location, format string, args ...any) {
	b.errs = append(b.errs, ValidationError{Location: location, Message: fmt.Sprintf(format, args...)})
}

// declare allocates the node for a named type and enters it into scope.
func (b *schemaBuilder) declare(d *typeDoc, location string, builtin bool) Type {
	if d.Name == "" {
		b.errorf(location, "named type without a name")
		return nil
	}

	kind := d.Kind
	if kind == "" {
		kind = "opaque"
		if !builtin {
			kind = "struct"
		}
	}
	switch kind {
	case "keyed_union", "array":
		b.errorf(location, "%s %s must be declared inline within a struct", kind, d.Name)
		return nil
	}
	if builtin {
		switch kind {
		case "opaque", "blob", "integer", "bool", "number", "string":
		default:
			b.errorf(location, "builtin %s has non-builtin kind %q", d.Name, kind)
			return nil
		}
	} else if kind != "struct" && kind != "enum" {
		b.errorf(location, "type %s has kind %q; only struct and enum may be declared here", d.Name, kind)
		return nil
	}

	t := b.allocate(d, kind, true)
	if t == nil {
		b.errorf(location, "unknown kind %q", kind)
		return nil
	}
	name := t.Info().TypeName
	for _, key := range []string{d.Name, name} {
		if _, dup := b.schema.scope[key]; dup {
			b.errorf(location, "duplicate type name %s", key)
			return nil
		}
	}
	b.schema.scope[d.Name] = t
	b.schema.scope[name] = t
	b.decls[t] = d
	return t
}

// allocate builds an empty node carrying the common attributes.
func (b *schemaBuilder) allocate(d *typeDoc, kind string, named bool) Type {
	namespace := b.doc.Namespace
	if d.Namespace != nil {
		namespace = *d.Namespace
	}
	base := Base{Namespace: namespace, PassBy: PassByValue}
	if named {
		base.RawName = d.Name
		base.TypeName = qualify(namespace, d.Name)
	}

	var t Type
	switch kind {
	case "opaque":
		t = &Builtin{Base: base, Shape: ShapeOpaque}
	case "blob":
		t = &Builtin{Base: base, Shape: ShapeBlob}
	case "integer":
		t = &Builtin{Base: base, Shape: ShapeInteger}
	case "bool":
		t = &Builtin{Base: base, Shape: ShapeBool}
	case "number":
		t = &Number{Base: base, Signed: d.Signed, Width: d.Width}
	case "string":
		base.DisposeFn = "free"
		t = &String{Base: base}
	case "enum":
		if named {
			base.JSONFn = base.TypeName + "_to_json"
		}
		t = &Enumeration{Base: base}
	case "struct":
		base.PassBy = PassByReference
		if named {
			base.JSONFn = base.TypeName + "_to_json"
			base.DisposeFn = base.TypeName + "_dispose"
		}
		t = &Struct{Base: base}
	case "keyed_union":
		if named {
			base.DisposeFn = base.TypeName + "_dispose"
		}
		t = &KeyedUnion{Base: base}
	case "array":
		base.DisposeFn = "free"
		t = &Array{Base: base}
	default:
		return nil
	}

	info := t.Info()
	switch strings.ToLower(d.PassBy) {
	case "reference":
		info.PassBy = PassByReference
	case "value":
		info.PassBy = PassByValue
	}
	if d.JSONFn != nil {
		info.JSONFn = *d.JSONFn
	}
	if d.DisposeFn != nil {
		info.DisposeFn = *d.DisposeFn
	}
	return t
}

// resolve turns a reference into a node, building inline types on the way.
func (b *schemaBuilder) resolve(ref typeRef, location string) Type {
	if ref.Inline != nil {
		kind := ref.Inline.Kind
		if kind == "" {
			kind = "struct"
		}
		t := b.allocate(ref.Inline, kind, false)
		if t == nil {
			b.errorf(location, "unknown kind %q", kind)
			return nil
		}
		b.fill(t, ref.Inline, location)
		return t
	}
	if ref.Name == "" {
		b.errorf(location, "missing type")
		return nil
	}
	t, ok := b.schema.scope[ref.Name]
	if !ok {
		b.errorf(location, "unknown type %s", ref.Name)
		return nil
	}
	return t
}

// fill populates the members of a node allocated by allocate.
func (b *schemaBuilder) fill(t Type, d *typeDoc, location string) {
	switch t := t.(type) {
	case *Enumeration:
		next := 0
		for _, v := range d.Values {
			if v.Value != nil {
				next = *v.Value
			}
			name, valueName := enumValueNames(t.Namespace, t.RawName, v.Name)
			t.Values = append(t.Values, &EnumValue{Enum: t, Name: name, ValueName: valueName, Value: next})
			next++
		}
	case *Struct:
		for i, fd := range d.Fields {
			floc := fmt.Sprintf("%s.%s", location, fd.Name)
			if fd.Name == "" {
				floc = fmt.Sprintf("%s.fields[%d]", location, i)
			}
			ft := b.resolve(fd.Type, floc)
			if ft == nil {
				continue
			}
			t.Fields = append(t.Fields, &Field{Name: fd.Name, Type: ft, Const: fd.Const})
		}
	case *KeyedUnion:
		t.KeyVar = d.KeyVar
		if t.KeyVar == "" {
			b.errorf(location, "keyed union without keyvar")
		}
		kt, ok := b.schema.scope[d.KeyVarType]
		if !ok {
			b.errorf(location, "unknown keyvar_type %q", d.KeyVarType)
			return
		}
		enum, ok := kt.(*Enumeration)
		if !ok {
			b.errorf(location, "keyvar_type %s is a %s, not an enumeration", d.KeyVarType, kt.Kind())
			return
		}
		t.KeyVarType = enum
		for _, arm := range d.Arms {
			aloc := fmt.Sprintf("%s.%s", location, arm.Enum)
			// The enum may be declared later in the file; fill it now
			// so its values can be looked up.
			if len(enum.Values) == 0 {
				if ed, ok := b.decls[enum]; ok {
					b.fill(enum, ed, enum.TypeName)
					delete(b.decls, enum)
				}
			}
			ev, ok := enum.Lookup(arm.Enum)
			if !ok {
				b.errorf(aloc, "%s is not a value of %s", arm.Enum, enum.TypeName)
				continue
			}
			at := b.resolve(arm.Type, aloc)
			if at == nil {
				continue
			}
			t.Fields = append(t.Fields, &Field{Name: strings.ToLower(arm.Enum), Type: at, EnumName: ev.Name})
		}
	case *Array:
		t.LenVar = d.LenVar
		if t.LenVar == "" {
			b.errorf(location, "array without lenvar")
		}
		if d.Elem == nil {
			b.errorf(location, "array without elem")
			return
		}
		t.Elem = b.resolve(*d.Elem, location+"[]")
		if t.Elem != nil {
			t.TypeName = t.Elem.Info().TypeName + " *"
		}
	}
}
