package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/danielpatrickdp/pageforge/internal/page"
)

// #region template

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="{{.BodyClass}}">
<nav class="flex gap-6 px-8 py-4">
{{- range .Menu}}
<a href="{{.Href}}" data-region="menu_item" class="{{$.Classes.menu_item}}">{{.Label}}</a>
{{- end}}
</nav>
<header class="px-8 py-16 max-w-4xl mx-auto">
<h1 data-region="hero_title" class="{{.Classes.hero_title}}">{{.Hero.Title}}</h1>
<p data-region="hero_subtitle" class="{{.Classes.hero_subtitle}}">{{.Hero.Subtitle}}</p>
{{- if .Hero.Tagline}}
<p class="mt-2 opacity-70">{{.Hero.Tagline}}</p>
{{- end}}
</header>
<main class="px-8 pb-16 max-w-4xl mx-auto grid gap-8 md:grid-cols-2">
{{- range .Cards}}
<section class="p-6">
<h2 data-region="card_title" class="{{$.Classes.card_title}}">{{.Title}}</h2>
<div data-region="card_description" class="{{$.Classes.card_description}}">{{.Description}}</div>
</section>
{{- end}}
</main>
{{- if .CTA.Label}}
<footer class="px-8 pb-16 max-w-4xl mx-auto">
<a href="{{.CTA.Href}}" data-region="cta_label" class="{{.Classes.cta_label}}">{{.CTA.Label}}</a>
</footer>
{{- end}}
</body>
</html>
`

// #endregion

// #region view

type cardView struct {
	Title       string
	Description template.HTML
}

type pageView struct {
	Title     string
	BodyClass string
	Classes   map[string]string
	Hero      page.Hero
	Cards     []cardView
	Menu      []page.MenuItem
	CTA       page.CallToAction
}

// #endregion

// #region renderer

// Renderer builds static pages from content, a theme, and style overrides.
type Renderer struct {
	reg  *Registry
	tmpl *template.Template
	md   goldmark.Markdown
}

// New parses the page template against the given theme registry.
func New(reg *Registry) (*Renderer, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{reg: reg, tmpl: tmpl, md: goldmark.New()}, nil
}

// Themes exposes the renderer's theme registry.
func (r *Renderer) Themes() *Registry {
	return r.reg
}

// HTML renders the page to bytes. Override classes are appended after the
// theme's region classes so they take effect without editing the theme.
func (r *Renderer) HTML(c page.Content, themeName string, overrides *page.OverrideSet) ([]byte, error) {
	theme, err := r.reg.Get(themeName)
	if err != nil {
		return nil, err
	}

	classes := make(map[string]string, len(page.TextRegions))
	for _, region := range page.TextRegions {
		classes[region] = joinClasses(theme.Regions[region], overrides.Classes(region))
	}

	view := pageView{
		Title:     c.Hero.Title,
		BodyClass: theme.Body,
		Classes:   classes,
		Hero:      c.Hero,
		Menu:      c.Menu,
		CTA:       c.CTA,
	}
	for _, card := range c.Cards {
		desc, err := r.markdown(card.Description)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", card.Title, err)
		}
		view.Cards = append(view.Cards, cardView{Title: card.Title, Description: desc})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes the page to outPath, replacing any previous attempt's
// output in one rename so the auditor never reads a half-written file.
func (r *Renderer) Render(c page.Content, themeName string, overrides *page.OverrideSet, outPath string) error {
	html, err := r.HTML(c, themeName, overrides)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, html, 0o644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("publish page: %w", err)
	}
	return nil
}

// markdown renders a description field. Card descriptions accept inline
// markdown; everything else is plain text escaped by the template.
func (r *Renderer) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func joinClasses(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// #endregion
