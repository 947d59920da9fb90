package gentest

import (
	"fmt"
	"slices"
	"time"
)

// HandcodedType binds a type to the boilerplate initializer body that
// replaces its generated one.
type HandcodedType struct {
	Type     string `yaml:"type"`
	Template string `yaml:"template"`
}

// Options controls what the generated harness looks like. The zero value
// is not usable; start from DefaultOptions.
type Options struct {
	// Includes are emitted as #include lines, verbatim.
	Includes []string `yaml:"includes"`

	// BlobTypes are filled with random bytes in addition to builtins
	// declared with the blob kind.
	BlobTypes []string `yaml:"blob_types"`

	// IntegerTypes get the narrow integer assignment in addition to
	// numbers and builtins declared with the integer kind.
	IntegerTypes []string `yaml:"integer_types"`

	Handcoded  []HandcodedType `yaml:"handcoded"`
	IndentUnit string          `yaml:"indent"`

	// InvalidEnumToken is the from-string input expected to fail parsing.
	InvalidEnumToken string `yaml:"invalid_enum_token"`
}

// DefaultOptions matches the libxl type system.
func DefaultOptions() Options {
	return Options{
		Includes: []string{
			"<stdio.h>",
			"<stdlib.h>",
			"<string.h>",
			`"libxl.h"`,
			`"libxl_utils.h"`,
		},
		BlobTypes:    []string{"libxl_uuid", "libxl_mac", "libxl_hwcap"},
		IntegerTypes: []string{"libxl_domid"},
		Handcoded: []HandcodedType{
			{Type: "libxl_cpumap", Template: "bitmap"},
			{Type: "libxl_key_value_list", Template: "key_value_list"},
			{Type: "libxl_cpuid_policy_list", Template: "cpuid_policy_list"},
			{Type: "libxl_file_reference", Template: "file_reference"},
			{Type: "libxl_string_list", Template: "string_list"},
			{Type: "libxl_cpuarray", Template: "cpuarray"},
		},
		IndentUnit:       DefaultIndent,
		InvalidEnumToken: "AN INVALID VALUE",
	}
}

// Validate checks that every hand-coded type names a known boilerplate
// body and appears once.
func (o *Options) Validate() error {
	seen := make(map[string]bool, len(o.Handcoded))
	for _, h := range o.Handcoded {
		if h.Type == "" {
			return fmt.Errorf("handcoded entry for template %q has no type", h.Template)
		}
		if seen[h.Type] {
			return fmt.Errorf("type %s is hand-coded twice", h.Type)
		}
		seen[h.Type] = true
		if !slices.Contains(BoilerplateNames(), h.Template) {
			return fmt.Errorf("type %s: unknown boilerplate %q", h.Type, h.Template)
		}
	}
	if o.InvalidEnumToken == "" {
		return fmt.Errorf("invalid_enum_token must not be empty")
	}
	return nil
}

// IsHandcoded reports whether typeName uses a boilerplate initializer.
func (o *Options) IsHandcoded(typeName string) bool {
	return slices.ContainsFunc(o.Handcoded, func(h HandcodedType) bool {
		return h.Type == typeName
	})
}

// Option configures an Assembler.
type Option func(*config)

type config struct {
	seed    uint64
	logger  Logger
	options Options
}

func defaultConfig() *config {
	return &config{
		seed:    uint64(time.Now().UnixNano()),
		logger:  NopLogger{},
		options: DefaultOptions(),
	}
}

// WithSeed fixes the random seed. Without it the clock is used.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithLogger sets the logger used during generation.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOptions replaces the harness options.
func WithOptions(o Options) Option {
	return func(c *config) { c.options = o }
}
