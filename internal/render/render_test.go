package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/pageforge/internal/page"
)

func testContent() page.Content {
	return page.Content{
		Hero: page.Hero{Title: "Forge", Subtitle: "Pages that fix themselves"},
		Cards: []page.Card{
			{Title: "Audit", Description: "Renders are **checked** before they ship."},
		},
		Menu: []page.MenuItem{{Label: "Docs", Href: "/docs"}},
		CTA:  page.CallToAction{Label: "Get started", Href: "/start"},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Builtin())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestHTMLCarriesRegionHooks(t *testing.T) {
	r := newTestRenderer(t)
	html, err := r.HTML(testContent(), "brutalist", page.NewOverrideSet())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	out := string(html)
	for _, region := range page.TextRegions {
		if !strings.Contains(out, `data-region="`+region+`"`) {
			t.Errorf("missing data-region hook %q", region)
		}
	}
	if !strings.Contains(out, "text-5xl font-bold uppercase") {
		t.Error("theme classes not applied to hero title")
	}
}

func TestOverridesAppendAfterThemeClasses(t *testing.T) {
	r := newTestRenderer(t)
	overrides := page.NewOverrideSet()
	overrides.Add(page.RegionHeroTitle, "text-2xl", "break-all")

	html, err := r.HTML(testContent(), "brutalist", overrides)
	if err != nil {
		t.Fatal(err)
	}
	out := string(html)

	theme, _ := Builtin().Get("brutalist")
	want := theme.Regions[page.RegionHeroTitle] + " text-2xl break-all"
	if !strings.Contains(out, `class="`+want+`"`) {
		t.Fatalf("hero title class list missing appended overrides:\n%s", out)
	}
}

func TestCardDescriptionRendersMarkdown(t *testing.T) {
	r := newTestRenderer(t)
	html, err := r.HTML(testContent(), "editorial", page.NewOverrideSet())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<strong>checked</strong>") {
		t.Fatal("card description markdown not rendered")
	}
}

func TestHeroTitleIsEscaped(t *testing.T) {
	r := newTestRenderer(t)
	c := testContent()
	c.Hero.Title = `<script>alert("x")</script>`

	html, err := r.HTML(c, "enterprise", page.NewOverrideSet())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(html), `<script>alert`) {
		t.Fatal("hero title must be HTML-escaped")
	}
}

func TestRenderUnknownTheme(t *testing.T) {
	r := newTestRenderer(t)
	if _, err := r.HTML(testContent(), "vaporwave", page.NewOverrideSet()); err == nil {
		t.Fatal("unknown theme must error")
	}
}

func TestRenderWritesAtomically(t *testing.T) {
	r := newTestRenderer(t)
	outPath := filepath.Join(t.TempDir(), "site", "index.html")

	if err := r.Render(testContent(), "brutalist", page.NewOverrideSet(), outPath); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if _, err := os.Stat(outPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.yaml")
	doc := `themes:
  - name: minimal
    body: "bg-white"
    regions:
      hero_title: "text-3xl"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := reg.Names(); len(got) != 1 || got[0] != "minimal" {
		t.Fatalf("names = %v", got)
	}
	id, err := reg.ID("minimal")
	if err != nil || id != 0 {
		t.Fatalf("id = %d, %v", id, err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := newRegistry([]Theme{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Fatal("duplicate theme names must be rejected")
	}
}
