package planner

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinTemplates []byte

// Template is the structural skeleton suggested for a category.
type Template struct {
	Name      string   `yaml:"name"`
	Patterns  []string `yaml:"patterns"`
	Guidance  string   `yaml:"guidance"`
	Structure []string `yaml:"structure"`

	globs []glob.Glob
}

// Matches reports whether category matches any of the template's patterns.
func (t *Template) Matches(category string) bool {
	for _, g := range t.globs {
		if g.Match(category) {
			return true
		}
	}
	return false
}

// Registry resolves category tags to templates. The first matching template
// wins.
type Registry struct {
	templates []*Template
}

type templateFile struct {
	Templates []*Template `yaml:"templates"`
}

// DefaultRegistry returns the built-in templates.
func DefaultRegistry() *Registry {
	r, err := LoadRegistry(strings.NewReader(string(builtinTemplates)))
	if err != nil {
		panic(fmt.Sprintf("planner: built-in templates are invalid: %v", err))
	}
	return r
}

// LoadRegistry parses a YAML template file.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var file templateFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	reg := &Registry{}
	for _, t := range file.Templates {
		if t.Name == "" {
			return nil, fmt.Errorf("template without a name")
		}
		for _, pattern := range t.Patterns {
			g, err := glob.Compile(strings.ToLower(pattern))
			if err != nil {
				return nil, fmt.Errorf("template %s: invalid pattern %q: %w", t.Name, pattern, err)
			}
			t.globs = append(t.globs, g)
		}
		reg.templates = append(reg.templates, t)
	}
	return reg, nil
}

// Merge returns a registry where other's templates are consulted before r's.
func (r *Registry) Merge(other *Registry) *Registry {
	if other == nil {
		return r
	}
	merged := &Registry{}
	merged.templates = append(merged.templates, other.templates...)
	merged.templates = append(merged.templates, r.templates...)
	return merged
}

// Match returns the template for category, if any.
func (r *Registry) Match(category string) (*Template, bool) {
	category = normalizeCategory(category)
	if category == "" {
		return nil, false
	}
	for _, t := range r.templates {
		if t.Matches(category) {
			return t, true
		}
	}
	return nil, false
}

// Names returns the template names in lookup order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.templates))
	for i, t := range r.templates {
		names[i] = t.Name
	}
	return names
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(category)
}
