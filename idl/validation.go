package idl

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Location string
	Message  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// ValidationErrors aggregates every problem found in a schema.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n\t%s", len(es), strings.Join(msgs, "\n\t"))
}

// Validate checks the invariants the generator relies on. All errors are
// aggregated; a nil return means the schema is usable.
func Validate(s *Schema) error {
	var errs ValidationErrors

	for _, t := range s.Types {
		switch t := t.(type) {
		case *Enumeration:
			errs = append(errs, validateEnumeration(t)...)
		case *Struct:
			errs = append(errs, validateStruct(t, t.TypeName)...)
		}
	}

	graph := AnalyzeValueDependencies(s)
	for _, cycle := range graph.DetectCycles() {
		errs = append(errs, ValidationError{
			Location: cycle[0],
			Message:  fmt.Sprintf("reference cycle %s", strings.Join(cycle, " -> ")),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateEnumeration(e *Enumeration) []ValidationError {
	var errs []ValidationError
	if len(e.Values) == 0 {
		errs = append(errs, ValidationError{
			Location: e.TypeName,
			Message:  "enumeration has no values",
		})
	}
	seen := make(map[string]bool)
	for _, v := range e.Values {
		if seen[v.Name] {
			errs = append(errs, ValidationError{
				Location: e.TypeName,
				Message:  fmt.Sprintf("duplicate value %s", v.Name),
			})
		}
		seen[v.Name] = true
	}
	return errs
}

// validateStruct checks that every keyed union inside s has its
// discriminant among the siblings, recursing into anonymous members.
func validateStruct(s *Struct, location string) []ValidationError {
	var errs []ValidationError
	for _, f := range s.Fields {
		floc := location + "." + f.Name
		switch ft := f.Type.(type) {
		case *KeyedUnion:
			errs = append(errs, validateKeyVar(s, ft, floc)...)
			for _, arm := range ft.Fields {
				if as, ok := arm.Type.(*Struct); ok && as.Anonymous() {
					errs = append(errs, validateStruct(as, floc+"."+arm.Name)...)
				}
			}
		case *Struct:
			if ft.Anonymous() {
				errs = append(errs, validateStruct(ft, floc)...)
			}
		case *Array:
			if es, ok := ft.Elem.(*Struct); ok && es.Anonymous() {
				errs = append(errs, validateStruct(es, floc+"[]")...)
			}
		}
	}
	return errs
}

func validateKeyVar(s *Struct, u *KeyedUnion, location string) []ValidationError {
	for _, sibling := range s.Fields {
		if sibling.Name != u.KeyVar {
			continue
		}
		if sibling.Type != Type(u.KeyVarType) {
			return []ValidationError{{
				Location: location,
				Message: fmt.Sprintf("keyvar %s has type %s, want %s",
					u.KeyVar, Describe(sibling.Type), Describe(u.KeyVarType)),
			}}
		}
		return nil
	}
	return []ValidationError{{
		Location: location,
		Message:  fmt.Sprintf("keyvar %s is not a field of the enclosing struct", u.KeyVar),
	}}
}
