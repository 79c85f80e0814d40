package repair

// #region imports
import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #endregion

// #region font-ladder

// FontLadder is the fixed heading-size ladder, largest first. FONT_SHRINK
// steps the configured heading size down one rung.
var FontLadder = []string{
	"text-5xl", "text-4xl", "text-3xl", "text-2xl",
	"text-xl", "text-lg", "text-base", "text-sm", "text-xs",
}

// NextSmaller returns the rung below size, or the smallest rung if size is
// not on the ladder or already at the bottom.
func NextSmaller(size string) string {
	for i, s := range FontLadder {
		if s == size {
			if i+1 < len(FontLadder) {
				return FontLadder[i+1]
			}
			return s
		}
	}
	return FontLadder[len(FontLadder)-1]
}

// #endregion

// #region table

// DefaultTruncateLength is the string cap for the content-cut strategy.
const DefaultTruncateLength = 50

// Table is the attempt-indexed heuristic repair table. It is the ground
// truth the generative path falls back to, and it is strictly deterministic:
// identical (report, content, attempt) always produce identical output.
type Table struct {
	// HeadingSize is the theme's largest heading class, the starting rung
	// for FONT_SHRINK.
	HeadingSize string
	// TruncateLength caps string fields under CONTENT_CUT.
	TruncateLength int
}

// NewTable returns a table with the default heading rung and truncate cap.
func NewTable() *Table {
	return &Table{HeadingSize: FontLadder[0], TruncateLength: DefaultTruncateLength}
}

// Apply returns the repair for the given attempt. The report is consulted
// only for the description; the escalation order is fixed by attempt number.
func (t *Table) Apply(report audit.Report, content page.Content, attempt int) Result {
	switch strategy.FromAttempt(attempt) {
	case strategy.CSSBreakWord:
		return t.breakWord()
	case strategy.FontShrink:
		return t.fontShrink()
	case strategy.CSSTruncate:
		return t.cssTruncate()
	case strategy.ContentCut:
		return t.contentCut(content)
	}
	return Result{Strategy: strategy.None, StyleOverrides: page.NewOverrideSet(),
		Description: "no repair for attempt 0"}
}

func (t *Table) breakWord() Result {
	o := page.NewOverrideSet()
	for _, region := range page.TextRegions {
		o.Add(region, "break-all", "overflow-wrap-anywhere")
	}
	return Result{
		Strategy:       strategy.CSSBreakWord,
		StyleOverrides: o,
		Description:    "inject word-break classes into every text region",
	}
}

func (t *Table) fontShrink() Result {
	size := t.HeadingSize
	if size == "" {
		size = FontLadder[0]
	}
	smaller := NextSmaller(size)
	o := page.NewOverrideSet()
	o.Add(page.RegionHeroTitle, smaller, "leading-tight")
	return Result{
		Strategy:       strategy.FontShrink,
		StyleOverrides: o,
		Description:    fmt.Sprintf("step heading size %s -> %s", size, smaller),
	}
}

func (t *Table) cssTruncate() Result {
	o := page.NewOverrideSet()
	o.Add(page.RegionHeroSubtitle, "truncate", "text-ellipsis")
	o.Add(page.RegionCardDescription, "line-clamp-2", "overflow-hidden")
	return Result{
		Strategy:       strategy.CSSTruncate,
		StyleOverrides: o,
		Description:    "inject truncation and line-clamp classes",
	}
}

func (t *Table) contentCut(content page.Content) Result {
	maxLen := t.TruncateLength
	if maxLen <= 0 {
		maxLen = DefaultTruncateLength
	}
	cut := content.Transform(func(s string) string {
		return TruncateString(s, maxLen)
	})
	return Result{
		Strategy:        strategy.ContentCut,
		StyleOverrides:  page.NewOverrideSet(),
		ContentModified: true,
		ModifiedContent: &cut,
		Description:     fmt.Sprintf("truncate every string field to %d characters", maxLen),
	}
}

// TruncateString caps s at maxLen runes, appending an ellipsis when it cuts.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimRight(string(runes[:maxLen]), " ") + "..."
}

// #endregion
