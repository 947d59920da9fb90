package gentest

import (
	"embed"
	"fmt"
	"slices"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template data structures
type preambleData struct {
	Includes []string
}

type boilerplateData struct {
	Type string
	Func string
}

// Template names that are not hand-coded initializer bodies.
const (
	preambleTemplate     = "preamble"
	mainPrologueTemplate = "main_prologue"
	mainEpilogueTemplate = "main_epilogue"
)

// TemplateManager holds the parsed boilerplate.
type TemplateManager struct {
	templates map[string]*template.Template
}

// NewTemplateManager parses every embedded template.
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmpl") {
			name := strings.TrimSuffix(entry.Name(), ".tmpl")
			content, err := templateFS.ReadFile("templates/" + entry.Name())
			if err != nil {
				return nil, err
			}

			tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", name, err)
			}

			tm.templates[name] = tmpl
		}
	}

	return tm, nil
}

// GetTemplate returns a template by name
func (tm *TemplateManager) GetTemplate(name string) (*template.Template, bool) {
	tmpl, exists := tm.templates[name]
	return tmpl, exists
}

// ExecuteTemplate executes a template with the given data
func (tm *TemplateManager) ExecuteTemplate(name string, data any) (string, error) {
	tmpl, exists := tm.GetTemplate(name)
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

// Global template manager instance
var templateManager *TemplateManager

func init() {
	var err error
	templateManager, err = NewTemplateManager()
	if err != nil {
		panic(err)
	}
}

// BoilerplateNames lists the hand-written initializer bodies, sorted.
func BoilerplateNames() []string {
	var names []string
	for name := range templateManager.templates {
		switch name {
		case preambleTemplate, mainPrologueTemplate, mainEpilogueTemplate:
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// initFuncName is the name of the initializer generated or hand-written
// for typeName.
func initFuncName(typeName string) string {
	return typeName + "_rand_init"
}

// GeneratePreamble renders the includes and the rand_str and rand_bytes
// helpers.
func GeneratePreamble(includes []string) (string, error) {
	return templateManager.ExecuteTemplate(preambleTemplate, preambleData{Includes: includes})
}

// GenerateBoilerplate renders the hand-written initializer body named
// body for typeName.
func GenerateBoilerplate(body, typeName string) (string, error) {
	if !slices.Contains(BoilerplateNames(), body) {
		return "", fmt.Errorf("unknown boilerplate %q for %s", body, typeName)
	}
	return templateManager.ExecuteTemplate(body, boilerplateData{
		Type: typeName,
		Func: initFuncName(typeName),
	})
}

// GenerateMainPrologue renders the context setup at the top of main.
func GenerateMainPrologue() (string, error) {
	return templateManager.ExecuteTemplate(mainPrologueTemplate, nil)
}

// GenerateMainEpilogue renders the teardown closing main.
func GenerateMainEpilogue() (string, error) {
	return templateManager.ExecuteTemplate(mainEpilogueTemplate, nil)
}
