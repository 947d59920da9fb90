package gentest

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempusfrangit/go-gentest/idl"
)

func loadSchema(t *testing.T, name string) *idl.Schema {
	t.Helper()
	s, err := idl.Load(filepath.Join("idl", "testdata", name))
	require.NoError(t, err)
	return s
}

func generate(t *testing.T, s *idl.Schema, opts ...Option) string {
	t.Helper()
	a, err := NewAssembler(s, opts...)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, a.Generate(&buf))
	return buf.String()
}

func TestGenerateLibxl(t *testing.T) {
	out := generate(t, loadSchema(t, "libxl_types.yaml"), WithSeed(1))

	t.Run("preamble", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(out, "\n#include <stdio.h>\n"))
		assert.Contains(t, out, "#include \"libxl_utils.h\"\n")
		assert.Contains(t, out, "static char *rand_str(void)")
		for _, h := range DefaultOptions().Handcoded {
			assert.Equal(t, 1, strings.Count(out, "static void "+h.Type+"_rand_init("), h.Type)
		}
	})

	t.Run("builtins", func(t *testing.T) {
		assert.Contains(t, out, "static void libxl_domid_rand_init(libxl_domid *p);\n"+
			"static void libxl_domid_rand_init(libxl_domid *p)\n"+
			"{\n"+
			"    *p = rand() % (sizeof(*p)*8);\n"+
			"}\n\n")
		assert.Contains(t, out, "static void libxl_uuid_rand_init(libxl_uuid *p)\n"+
			"{\n"+
			"    rand_bytes((uint8_t *)p, sizeof(*p));\n"+
			"}\n")
		assert.NotContains(t, out, "libxl_cpumap_rand_init(libxl_cpumap *p)")
	})

	t.Run("structs", func(t *testing.T) {
		assert.Contains(t, out, "    libxl_uuid_rand_init(&p->uuid);\n")
		assert.Contains(t, out, "    libxl_key_value_list_rand_init(&p->xsdata);\n")
		assert.Contains(t, out, "    libxl_cpuid_policy_list_rand_init(&p->cpuid);\n")
		assert.Contains(t, out, "    libxl_hwcap_rand_init(&p->hw_cap);\n")
		assert.Contains(t, out, "    libxl_cpuarray_rand_init(&p->cpuarray);\n")
		assert.Contains(t, out, "    libxl_mac_rand_init(&p->mac);\n")
		assert.Contains(t, out, "    p->running = rand() % 2;\n")
		assert.Contains(t, out, "    p->compiler = rand_str();\n")
		assert.Regexp(t, `\n    p->type = LIBXL_DOMAIN_TYPE_(INVALID|HVM|PV);\n`, out)
	})

	t.Run("keyed union", func(t *testing.T) {
		assert.Contains(t, out, "    switch (p->type) {\n"+
			"    case LIBXL_DOMAIN_TYPE_HVM:\n"+
			"        p->u.hvm.firmware = rand_str();\n"+
			"        p->u.hvm.pae = rand() % 2;\n"+
			"        p->u.hvm.timer_mode = rand() % (sizeof(p->u.hvm.timer_mode)*8);\n"+
			"        break;\n"+
			"    case LIBXL_DOMAIN_TYPE_PV:\n")
		assert.Contains(t, out, "        libxl_string_list_rand_init(&p->u.pv.bootloader_args);\n")
		assert.Contains(t, out, "        libxl_file_reference_rand_init(&p->u.pv.ramdisk);\n")
	})

	t.Run("arrays", func(t *testing.T) {
		assert.Contains(t, out, "    libxl_domain_create_info_rand_init(&p->c_info);\n")
		assert.Contains(t, out, "    libxl_domain_build_info_rand_init(&p->b_info);\n")
		assert.Contains(t, out, "    p->num_disks = rand() % 8;\n"+
			"    p->disks = calloc(p->num_disks, sizeof(*p->disks));\n"+
			"    {\n"+
			"        int i;\n"+
			"        for (i = 0; i < p->num_disks; i++) {\n"+
			"            libxl_device_disk_rand_init(&p->disks[i]);\n"+
			"        }\n"+
			"    }\n")
	})

	t.Run("dependencies first", func(t *testing.T) {
		def := func(name string) int {
			i := strings.Index(out, "static void "+name+"_rand_init("+name+" *p)\n")
			require.GreaterOrEqual(t, i, 0, name)
			return i
		}
		assert.Less(t, def("libxl_device_disk"), def("libxl_domain_config"))
		assert.Less(t, def("libxl_device_nic"), def("libxl_domain_config"))
		assert.Less(t, def("libxl_domain_build_info"), def("libxl_domain_config"))
		assert.Less(t, def("libxl_uuid"), def("libxl_dominfo"))
	})

	t.Run("const fields", func(t *testing.T) {
		assert.Contains(t, out, "static void libxl_vcpuinfo_rand_init(libxl_vcpuinfo *p)\n")
		assert.NotContains(t, out, "p->vcpuid")
	})

	t.Run("json tests", func(t *testing.T) {
		assert.Contains(t, out, "    libxl_dominfo libxl_dominfo_val;\n")
		assert.Contains(t, out, "    libxl_domain_type libxl_domain_type_val;\n")
		assert.Contains(t, out, `    printf("Testing TYPE_to_json()\n");`)
		assert.Contains(t, out, "    libxl_dominfo_rand_init(&libxl_dominfo_val);\n"+
			"    s = libxl_dominfo_to_json(ctx, &libxl_dominfo_val);\n"+
			"    printf(\"%s: %s\\n\", \"libxl_dominfo\", s);\n"+
			"    if (s == NULL) abort();\n"+
			"    free(s);\n"+
			"    libxl_dominfo_dispose(&libxl_dominfo_val);\n")
		assert.Contains(t, out, "    libxl_domain_type_rand_init(&libxl_domain_type_val);\n"+
			"    s = libxl_domain_type_to_json(ctx, libxl_domain_type_val);\n")
		assert.NotContains(t, out, "libxl_vcpuinfo_to_json")
	})

	t.Run("enum tests", func(t *testing.T) {
		assert.Equal(t, 1, strings.Count(out, "Testing Enumerations"))
		assert.Contains(t, out, `    printf("libxl_domain_type -- to string:\n");`)
		assert.Contains(t, out, `    printf("\tHVM = %d = \"%s\"\n", LIBXL_DOMAIN_TYPE_HVM, libxl_domain_type_to_string(LIBXL_DOMAIN_TYPE_HVM));`)
		assert.Contains(t, out, `    printf("\tPV = %d = %s", LIBXL_DOMAIN_TYPE_PV, libxl_domain_type_to_json(ctx, LIBXL_DOMAIN_TYPE_PV));`)
		assert.Equal(t, 4, strings.Count(out, "rc = libxl_domain_type_from_string("))
		assert.Equal(t, 7, strings.Count(out, "rc = libxl_disk_format_from_string("))
		assert.Regexp(t, `(?i)rc = libxl_console_type_from_string\("an invalid value", &libxl_console_type_val\);`, out)
		assert.Contains(t, out, `"\tAN INVALID VALUE = \"%s\" = %d (rc %d)\n"`)
	})

	assert.True(t, strings.HasSuffix(out, "    return 0;\n}\n"))
}

func TestGenerateSameSeed(t *testing.T) {
	s := loadSchema(t, "libxl_types.yaml")
	assert.Equal(t, generate(t, s, WithSeed(42)), generate(t, s, WithSeed(42)))
}

var enumAssignment = regexp.MustCompile(`= LIBXL_[A-Z0-9_]+;`)

// structure masks the randomized parts of a harness: enum constants and
// the case of from-string inputs.
func structure(out string) []string {
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.ToLower(enumAssignment.ReplaceAllString(l, "= ENUM;"))
	}
	return lines
}

func TestGenerateSeedsShareStructure(t *testing.T) {
	s := loadSchema(t, "libxl_types.yaml")
	a := generate(t, s, WithSeed(1))
	b := generate(t, s, WithSeed(2))

	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.Count(a, "\n"), strings.Count(b, "\n"))
	assert.Equal(t, structure(a), structure(b))
}

func TestGenerateRepeatable(t *testing.T) {
	a, err := NewAssembler(loadSchema(t, "small.json"), WithSeed(9))
	require.NoError(t, err)

	var first, second bytes.Buffer
	require.NoError(t, a.Generate(&first))
	require.NoError(t, a.Generate(&second))
	assert.Equal(t, structure(first.String()), structure(second.String()))
}

func TestExercises(t *testing.T) {
	s := loadSchema(t, "libxl_types.yaml")
	a, err := NewAssembler(s, WithSeed(3))
	require.NoError(t, err)

	for _, e := range s.Enumerations() {
		t.Run(e.TypeName, func(t *testing.T) {
			ex := a.Exercises(e)
			require.Len(t, ex, len(e.Values)+1)
			for i, v := range e.Values {
				assert.Equal(t, v.ValueName, ex[i].Label)
				assert.True(t, strings.EqualFold(v.ValueName, ex[i].Input))
			}

			last := ex[len(ex)-1]
			assert.Equal(t, "AN INVALID VALUE", last.Label)
			assert.True(t, strings.EqualFold("an invalid value", last.Input))
			for _, v := range e.Values {
				assert.NotEqual(t, v.ValueName, last.Input)
				assert.NotEqual(t, v.Name, last.Input)
			}
		})
	}
}

func TestGenerateCustomOptions(t *testing.T) {
	opts := Options{
		Includes:         []string{"<stdint.h>"},
		IndentUnit:       "\t",
		InvalidEnumToken: "bogus",
	}
	out := generate(t, loadSchema(t, "small.json"), WithSeed(5), WithOptions(opts))

	assert.True(t, strings.HasPrefix(out, "\n#include <stdint.h>\n\n"))
	assert.NotContains(t, out, "libxl_cpumap_rand_init")
	assert.Contains(t, out, "\t*p = rand() % (sizeof(*p)*8);\n")
	assert.Contains(t, out, "\tlibxl_uuid_rand_init(&p->domuuid);\n")
	assert.Contains(t, out, "\tp->detail.code = rand() % (sizeof(p->detail.code)*8);\n")
	assert.Contains(t, out, "\tp->detail.message = rand_str();\n")
	assert.Regexp(t, `\tp->reason = LIBXL_SHUTDOWN_REASON_(POWEROFF|REBOOT|SUSPEND);\n`, out)
	assert.Regexp(t, `(?i)rc = libxl_shutdown_reason_from_string\("bogus", `, out)
}

func TestGenerateUnsupportedType(t *testing.T) {
	s, err := idl.Parse([]byte(`
namespace: libxl_
builtins:
  - {name: ev_user, kind: opaque}
`), idl.FormatYAML)
	require.NoError(t, err)

	a, err := NewAssembler(s)
	require.NoError(t, err)
	err = a.Generate(&bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.EqualError(t, err, "generating libxl_ev_user_rand_init: cannot randomly initialize libxl_ev_user")
}

func TestGenerateHandcodedWithoutBoilerplate(t *testing.T) {
	s := loadSchema(t, "libxl_types.yaml")
	opts := DefaultOptions()
	opts.Handcoded = nil

	a, err := NewAssembler(s, WithOptions(opts))
	require.NoError(t, err)
	err = a.Generate(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestGenerateInvalidSchema(t *testing.T) {
	s, err := idl.Parse([]byte(`
namespace: libxl_
types:
  - {name: a, kind: struct, fields: [{name: b, type: b}]}
  - {name: b, kind: struct, fields: [{name: a, type: a}]}
`), idl.FormatYAML)
	require.NoError(t, err)

	a, err := NewAssembler(s)
	require.NoError(t, err)
	var buf bytes.Buffer
	err = a.Generate(&buf)
	require.Error(t, err)

	var verrs idl.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, err.Error(), "reference cycle")
	assert.Zero(t, buf.Len())
}

func TestGenerateArrayOfItself(t *testing.T) {
	s, err := idl.Parse([]byte(`
namespace: libxl_
types:
  - name: node
    kind: struct
    fields:
      - {name: id, type: int}
      - name: children
        type: {kind: array, elem: node, lenvar: num_children}
`), idl.FormatYAML)
	require.NoError(t, err)

	out := generate(t, s, WithSeed(1))
	assert.Contains(t, out, "static void libxl_node_rand_init(libxl_node *p)\n{\n"+
		"    p->id = rand() % (sizeof(p->id)*8);\n")
	assert.Contains(t, out, "        for (i = 0; i < p->num_children; i++) {\n"+
		"            libxl_node_rand_init(&p->children[i]);\n"+
		"        }\n")
	assert.Contains(t, out, "    libxl_node_rand_init(&libxl_node_val);\n")
}

func TestGenerateScalarBuiltins(t *testing.T) {
	s, err := idl.Parse([]byte(`
namespace: libxl_
builtins:
  - {name: flag, kind: bool}
  - {name: path, kind: string}
types:
  - name: mount
    kind: struct
    fields:
      - {name: ro, type: flag}
      - {name: target, type: path}
`), idl.FormatYAML)
	require.NoError(t, err)

	out := generate(t, s, WithSeed(1))
	assert.Contains(t, out, "static void libxl_flag_rand_init(libxl_flag *p)\n{\n    *p = rand() % 2;\n}\n")
	assert.Contains(t, out, "static void libxl_path_rand_init(libxl_path *p)\n{\n    *p = rand_str();\n}\n")
	assert.Contains(t, out, "    libxl_flag_rand_init(&p->ro);\n")
	assert.Contains(t, out, "    libxl_path_rand_init(&p->target);\n")
}

func TestGenerateInvalidTokenIsEnumValue(t *testing.T) {
	opts := DefaultOptions()
	opts.InvalidEnumToken = "hvm"

	var logs bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewTextHandler(&logs, nil)))
	a, err := NewAssembler(loadSchema(t, "libxl_types.yaml"), WithOptions(opts), WithLogger(logger))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = a.Generate(&buf)
	assert.EqualError(t, err, `invalid_enum_token "hvm" is a value of libxl_domain_type`)
	assert.Zero(t, buf.Len())
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "harness generation failed")
}

func TestNewAssemblerErrors(t *testing.T) {
	_, err := NewAssembler(nil)
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.Handcoded = append(opts.Handcoded, HandcodedType{Type: "libxl_bitmap", Template: "missing"})
	_, err = NewAssembler(loadSchema(t, "small.json"), WithOptions(opts))
	assert.ErrorContains(t, err, "invalid options")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestGenerateWriteError(t *testing.T) {
	a, err := NewAssembler(loadSchema(t, "libxl_types.yaml"), WithSeed(1))
	require.NoError(t, err)
	assert.ErrorContains(t, a.Generate(failingWriter{}), "disk full")
}

func TestGenerateLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	a, err := NewAssembler(loadSchema(t, "small.json"), WithSeed(11), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, uint64(11), a.Seed())
	require.NoError(t, a.Generate(&bytes.Buffer{}))

	logs := buf.String()
	assert.Contains(t, logs, "emitted initializer")
	assert.Contains(t, logs, "type=libxl_event")
	assert.Contains(t, logs, "level=WARN msg=\"hand-coded type not in schema\"")
	assert.Contains(t, logs, "msg=\"generated harness\"")
	assert.Contains(t, logs, "seed=11")
}
