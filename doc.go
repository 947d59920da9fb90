// Package gentest generates a C test harness from a libxl style type
// schema.
//
// For every declared type the harness gets a function that fills a value
// with random contents. A main function then drives each value through
// its JSON serializer, and each enumeration through its string
// conversions. Types whose contents cannot be derived from the schema use
// hand-written initializers rendered from embedded templates.
//
//	s, err := idl.Load("libxl_types.yaml")
//	if err != nil {
//		return err
//	}
//	a, err := gentest.NewAssembler(s, gentest.WithSeed(42))
//	if err != nil {
//		return err
//	}
//	return a.Generate(out)
//
// Generation is deterministic for a given seed. Different seeds produce
// harnesses with the same functions and control flow but different
// constants.
package gentest
