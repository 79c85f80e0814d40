package features

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

var themes = []string{"brutalist", "editorial", "enterprise"}

func plainContent() page.Content {
	return page.Content{
		Hero:  page.Hero{Title: "Forge", Subtitle: "Pages that fix themselves"},
		Cards: []page.Card{{Title: "Audit", Description: "Render and inspect"}},
		CTA:   page.CallToAction{Label: "Start", Href: "/start"},
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]ErrorCategory{
		"hero_title overflow: 1300px > 1024px": ErrOverflow,
		"text clipped in card_description":     ErrTextTooLong,
		"element escapes viewport":             ErrLayoutShift,
		"something odd happened":               ErrUnknown,
	}
	for reason, want := range cases {
		if got := Categorize(reason); got != want {
			t.Errorf("Categorize(%q) = %s, want %s", reason, got, want)
		}
	}
}

func TestPathologicalScoreOrdering(t *testing.T) {
	clean := PathologicalScore(plainContent())

	bad := plainContent()
	bad.Hero.Title = strings.Repeat("A", 1000)
	pathological := PathologicalScore(bad)

	if clean >= pathological {
		t.Fatalf("clean score %.3f should be below pathological %.3f", clean, pathological)
	}
	if pathological > 1.0 {
		t.Fatalf("score %.3f exceeds cap", pathological)
	}
	if clean > 0.3 {
		t.Errorf("short prose scored %.3f, expected low risk", clean)
	}
}

func TestPathologicalScoreEmptyContent(t *testing.T) {
	if got := PathologicalScore(page.Content{}); got != 0 {
		t.Fatalf("empty content score = %v, want 0", got)
	}
}

func TestDensityCounts(t *testing.T) {
	o := page.NewOverrideSet()
	o.Add(page.RegionHeroTitle, "p-4", "mt-2", "flex", "max-w-sm", "truncate")
	o.Add(page.RegionCardDescription, "gap-2", "w-full")

	if got := DensitySpacing(o); got != 3 {
		t.Errorf("spacing density = %d, want 3", got)
	}
	if got := DensityLayout(o); got != 3 {
		t.Errorf("layout density = %d, want 3", got)
	}
	if DensitySpacing(nil) != 0 || DensityLayout(nil) != 0 {
		t.Error("nil override set must count zero")
	}
}

func TestContextVectorShapeAndDeterminism(t *testing.T) {
	vec, err := Context(themes, "editorial", 500, 2, ErrOverflow)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != ContextDim(themes) {
		t.Fatalf("dim = %d, want %d", len(vec), ContextDim(themes))
	}

	want := []float32{0, 1, 0, 0.5, 0.4, 1, 0, 0, 0}
	if diff := cmp.Diff(want, vec); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}

	again, _ := Context(themes, "editorial", 500, 2, ErrOverflow)
	if diff := cmp.Diff(vec, again); diff != "" {
		t.Fatalf("context vector not reproducible:\n%s", diff)
	}
}

func TestContextVectorUnknownThemeFallsToLastSlot(t *testing.T) {
	vec, err := Context(themes, "vaporwave", 0, 1, ErrUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if vec[2] != 1 {
		t.Error("unknown theme should land in the last theme slot")
	}
	if vec[len(vec)-1] != 1 {
		t.Error("unknown category should land in the last category slot")
	}
}

func TestContextVectorCaps(t *testing.T) {
	vec, err := Context(themes, "brutalist", 50_000, 40, ErrOverflow)
	if err != nil {
		t.Fatal(err)
	}
	if vec[3] != 1 || vec[4] != 1 {
		t.Fatalf("length/attempt should be capped at 1.0, got %v / %v", vec[3], vec[4])
	}
}

func TestExtractVectorMatchesNames(t *testing.T) {
	f := Extract(plainContent(), page.NewOverrideSet(), 1, strategy.CSSBreakWord)
	v := f.Vector()
	if len(v) != len(Names) {
		t.Fatalf("vector len %d != feature names %d", len(v), len(Names))
	}
	if v[5] != 1 || v[6] != float64(strategy.CSSBreakWord) {
		t.Error("theme/strategy columns misplaced")
	}
}
