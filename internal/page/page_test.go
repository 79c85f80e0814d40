package page

import (
	"strings"
	"testing"
)

func sampleContent() Content {
	return Content{
		Hero: Hero{Title: "Forge", Subtitle: "Pages that fix themselves"},
		Cards: []Card{
			{Title: "Self-healing", Description: "Render, audit, repair."},
			{Title: "Predictive", Description: "Skip strategies that will not work."},
		},
		Menu: []MenuItem{{Label: "Docs", Href: "/docs"}},
		CTA:  CallToAction{Label: "Get started", Href: "/start"},
	}
}

func TestTransformDoesNotMutateOriginal(t *testing.T) {
	c := sampleContent()
	upper := c.Transform(strings.ToUpper)

	if c.Hero.Title != "Forge" {
		t.Fatal("original content mutated by Transform")
	}
	if upper.Hero.Title != "FORGE" || upper.Cards[0].Description != "RENDER, AUDIT, REPAIR." {
		t.Fatal("transform did not reach all string fields")
	}
	if upper.Menu[0].Href != "/docs" {
		t.Fatal("hrefs must not be transformed")
	}
}

func TestEachStringVisitsAllFields(t *testing.T) {
	c := sampleContent()
	n := 0
	c.EachString(func(string) { n++ })
	// hero 3 + 2 cards * 2 + 1 menu + cta = 9
	if n != 9 {
		t.Fatalf("visited %d strings, want 9", n)
	}
}

func TestOverrideSetUnion(t *testing.T) {
	o := NewOverrideSet()
	o.Add(RegionHeroTitle, "break-all", "overflow-hidden")
	o.Add(RegionHeroTitle, "break-all", "truncate")

	if got := o.Classes(RegionHeroTitle); got != "break-all overflow-hidden truncate" {
		t.Fatalf("classes = %q", got)
	}
	if o.Len() != 3 {
		t.Fatalf("len = %d, want 3", o.Len())
	}
}

func TestOverrideSetMergeAccumulates(t *testing.T) {
	a := NewOverrideSet()
	a.Add(RegionHeroTitle, "break-all")
	b := NewOverrideSet()
	b.Add(RegionHeroTitle, "truncate")
	b.Add(RegionCardDescription, "line-clamp-2")

	a.Merge(b)
	if a.Classes(RegionHeroTitle) != "break-all truncate" {
		t.Errorf("hero_title = %q", a.Classes(RegionHeroTitle))
	}
	if a.Classes(RegionCardDescription) != "line-clamp-2" {
		t.Errorf("card_description = %q", a.Classes(RegionCardDescription))
	}
}

func TestOverrideSetEqual(t *testing.T) {
	a := NewOverrideSet()
	a.Add(RegionHeroTitle, "break-all")
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone should be equal")
	}
	b.Add(RegionHeroTitle, "truncate")
	if a.Equal(b) {
		t.Fatal("sets with different tokens reported equal")
	}
}
