// Package render turns page content plus a theme and accumulated style
// overrides into a static HTML file. Overrides are appended after the
// theme's own classes so they win the cascade without rewriting the theme.
package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region theme

// Theme names a visual treatment: a body class list plus base classes per
// page region.
type Theme struct {
	Name    string            `yaml:"name"`
	Body    string            `yaml:"body"`
	Regions map[string]string `yaml:"regions"`
}

// Registry holds the known themes in a stable order. The order fixes each
// theme's numeric id, which feeds the classifier and the generator context,
// so it must not change between training and serving.
type Registry struct {
	themes []Theme
	index  map[string]int
}

func newRegistry(themes []Theme) (*Registry, error) {
	if len(themes) == 0 {
		return nil, fmt.Errorf("theme registry: no themes")
	}
	index := make(map[string]int, len(themes))
	for i, t := range themes {
		if t.Name == "" {
			return nil, fmt.Errorf("theme registry: theme %d has no name", i)
		}
		if _, dup := index[t.Name]; dup {
			return nil, fmt.Errorf("theme registry: duplicate theme %q", t.Name)
		}
		index[t.Name] = i
	}
	return &Registry{themes: themes, index: index}, nil
}

// Names returns the theme names in id order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.themes))
	for i, t := range r.themes {
		out[i] = t.Name
	}
	return out
}

// ID returns a theme's numeric id.
func (r *Registry) ID(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown theme %q", name)
	}
	return i, nil
}

// Get returns a theme by name.
func (r *Registry) Get(name string) (Theme, error) {
	i, ok := r.index[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q", name)
	}
	return r.themes[i], nil
}

// #endregion

// #region builtin

// Builtin returns the stock themes.
func Builtin() *Registry {
	reg, err := newRegistry([]Theme{
		{
			Name: "brutalist",
			Body: "bg-white text-black font-mono",
			Regions: map[string]string{
				"hero_title":       "text-5xl font-bold uppercase border-b-4 border-black pb-4",
				"hero_subtitle":    "text-xl mt-4",
				"card_title":       "text-2xl font-bold uppercase",
				"card_description": "text-base mt-2",
				"menu_item":        "text-sm font-bold uppercase underline",
				"cta_label":        "text-lg font-bold uppercase border-4 border-black px-6 py-3 inline-block",
			},
		},
		{
			Name: "editorial",
			Body: "bg-stone-50 text-stone-900 font-serif",
			Regions: map[string]string{
				"hero_title":       "text-5xl font-light italic tracking-tight",
				"hero_subtitle":    "text-2xl font-light mt-6 text-stone-600",
				"card_title":       "text-3xl font-light",
				"card_description": "text-lg leading-relaxed mt-3 text-stone-700",
				"menu_item":        "text-base italic",
				"cta_label":        "text-xl italic underline decoration-2 underline-offset-4",
			},
		},
		{
			Name: "enterprise",
			Body: "bg-slate-100 text-slate-900 font-sans",
			Regions: map[string]string{
				"hero_title":       "text-4xl font-semibold tracking-tight",
				"hero_subtitle":    "text-lg mt-4 text-slate-600",
				"card_title":       "text-xl font-semibold",
				"card_description": "text-sm mt-2 text-slate-600",
				"menu_item":        "text-sm font-medium text-slate-700",
				"cta_label":        "text-base font-semibold bg-blue-600 text-white rounded-lg px-5 py-2.5 inline-block",
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return reg
}

// #endregion

// #region load

type themeFile struct {
	Themes []Theme `yaml:"themes"`
}

// LoadRegistry reads a theme registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes: %w", err)
	}
	var f themeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse themes %s: %w", path, err)
	}
	return newRegistry(f.Themes)
}

// #endregion
