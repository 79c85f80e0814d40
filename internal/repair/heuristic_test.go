package repair

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

func failingReport() audit.Report {
	return audit.Report{
		Approved: false,
		Issues:   []string{"hero_title overflow: 1400px > 1024px"},
		Reason:   "hero_title overflow: 1400px > 1024px",
	}
}

func longContent() page.Content {
	return page.Content{
		Hero: page.Hero{
			Title:    strings.Repeat("A", 1000),
			Subtitle: "short",
		},
		Cards: []page.Card{{Title: "t", Description: strings.Repeat("x", 80)}},
	}
}

func TestTableEscalationOrder(t *testing.T) {
	table := NewTable()
	want := []strategy.Strategy{
		strategy.CSSBreakWord,
		strategy.FontShrink,
		strategy.CSSTruncate,
		strategy.ContentCut,
		strategy.ContentCut, // attempts past the table stay on content cut
	}
	for i, w := range want {
		got := table.Apply(failingReport(), longContent(), i+1)
		if got.Strategy != w {
			t.Errorf("attempt %d strategy = %s, want %s", i+1, got.Strategy, w)
		}
	}
}

func TestTableIsDeterministic(t *testing.T) {
	table := NewTable()
	for attempt := 1; attempt <= 4; attempt++ {
		a := table.Apply(failingReport(), longContent(), attempt)
		b := table.Apply(failingReport(), longContent(), attempt)

		if a.Strategy != b.Strategy || a.Description != b.Description {
			t.Fatalf("attempt %d not deterministic", attempt)
		}
		if !a.StyleOverrides.Equal(b.StyleOverrides) {
			t.Fatalf("attempt %d produced differing override sets", attempt)
		}
		if a.ContentModified {
			if diff := cmp.Diff(*a.ModifiedContent, *b.ModifiedContent); diff != "" {
				t.Fatalf("attempt %d content differs:\n%s", attempt, diff)
			}
		}
	}
}

func TestBreakWordCoversAllTextRegions(t *testing.T) {
	res := NewTable().Apply(failingReport(), longContent(), 1)
	for _, region := range page.TextRegions {
		cls := res.StyleOverrides.Classes(region)
		if !strings.Contains(cls, "break-all") {
			t.Errorf("region %s missing break-all: %q", region, cls)
		}
	}
	if res.ContentModified {
		t.Error("CSS_BREAK_WORD must not modify content")
	}
}

func TestFontShrinkStepsLadder(t *testing.T) {
	table := NewTable()
	table.HeadingSize = "text-5xl"
	res := table.Apply(failingReport(), longContent(), 2)
	if got := res.StyleOverrides.Classes(page.RegionHeroTitle); !strings.Contains(got, "text-4xl") {
		t.Fatalf("hero_title classes = %q, want text-4xl", got)
	}
}

func TestNextSmaller(t *testing.T) {
	if got := NextSmaller("text-5xl"); got != "text-4xl" {
		t.Errorf("NextSmaller(text-5xl) = %s", got)
	}
	if got := NextSmaller("text-xs"); got != "text-xs" {
		t.Errorf("bottom rung should hold: got %s", got)
	}
	if got := NextSmaller("text-huge"); got != "text-xs" {
		t.Errorf("unknown size should clamp to smallest rung: got %s", got)
	}
}

func TestContentCutTruncatesEveryField(t *testing.T) {
	res := NewTable().Apply(failingReport(), longContent(), 4)
	if !res.ContentModified || res.ModifiedContent == nil {
		t.Fatal("CONTENT_CUT must set the content-modified flag")
	}
	cut := *res.ModifiedContent
	if len(cut.Hero.Title) > DefaultTruncateLength+3 {
		t.Fatalf("hero title still %d chars", len(cut.Hero.Title))
	}
	if !strings.HasSuffix(cut.Hero.Title, "...") {
		t.Error("truncated string should end with ellipsis")
	}
	if cut.Hero.Subtitle != "short" {
		t.Error("strings under the cap must be untouched")
	}
	if len(cut.Cards[0].Description) > DefaultTruncateLength+3 {
		t.Error("card description not truncated")
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("hello", 50); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	got := TruncateString(strings.Repeat("ab", 40), 10)
	if got != "ababababab..." {
		t.Errorf("TruncateString = %q", got)
	}
}
