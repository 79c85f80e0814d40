// Package features derives the numeric inputs shared by the strategy
// predictor and the style generator. Everything here is a pure function of
// its arguments; identical inputs must produce bit-identical vectors.
package features

// #region imports
import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #endregion

// #region error-category

// ErrorCategory is the closed set of audit-failure categories fed into the
// context vector one-hot.
type ErrorCategory string

const (
	ErrOverflow    ErrorCategory = "overflow"
	ErrTextTooLong ErrorCategory = "text_too_long"
	ErrLayoutShift ErrorCategory = "layout_shift"
	ErrUnknown     ErrorCategory = "unknown"
)

// ErrorCategories lists the categories in one-hot order.
var ErrorCategories = []ErrorCategory{ErrOverflow, ErrTextTooLong, ErrLayoutShift, ErrUnknown}

// Categorize maps an audit reason string onto the closed category set.
func Categorize(reason string) ErrorCategory {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "overflow"):
		return ErrOverflow
	case strings.Contains(r, "text") || strings.Contains(r, "clipped") || strings.Contains(r, "truncat"):
		return ErrTextTooLong
	case strings.Contains(r, "layout") || strings.Contains(r, "shift") || strings.Contains(r, "viewport"):
		return ErrLayoutShift
	}
	return ErrUnknown
}

// #endregion

// #region counts

// CharLen counts characters across every user-visible string field.
func CharLen(c page.Content) int {
	n := 0
	c.EachString(func(s string) { n += len(s) })
	return n
}

// WordCount counts whitespace-separated words across every user-visible
// string field.
func WordCount(c page.Content) int {
	n := 0
	c.EachString(func(s string) { n += len(strings.Fields(s)) })
	return n
}

// #endregion

// #region css-density

var spacingPrefixes = []string{
	"p-", "m-", "gap-", "space-", "px-", "py-", "pt-", "pb-",
	"pl-", "pr-", "mx-", "my-", "mt-", "mb-", "ml-", "mr-",
}

var layoutKeywords = map[string]bool{
	"flex": true, "grid": true, "block": true, "inline": true,
	"absolute": true, "relative": true, "fixed": true,
}

var layoutPrefixes = []string{"w-", "h-", "max-w-", "max-h-", "min-w-", "min-h-"}

// DensitySpacing counts spacing utility classes across the override set.
func DensitySpacing(o *page.OverrideSet) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, region := range o.Regions() {
		for _, cls := range o.Tokens(region) {
			for _, p := range spacingPrefixes {
				if strings.HasPrefix(cls, p) {
					n++
					break
				}
			}
		}
	}
	return n
}

// DensityLayout counts layout utility classes across the override set.
func DensityLayout(o *page.OverrideSet) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, region := range o.Regions() {
		for _, cls := range o.Tokens(region) {
			if layoutKeywords[cls] {
				n++
				continue
			}
			for _, p := range layoutPrefixes {
				if strings.HasPrefix(cls, p) {
					n++
					break
				}
			}
		}
	}
	return n
}

// #endregion

// #region pathological-score

const (
	longWordThreshold = 30
	repeatThreshold   = 10
)

// PathologicalScore estimates how likely the content is to break a layout:
// long unbroken words, long single-character runs, and extreme word lengths
// all raise it. Range [0, 1].
func PathologicalScore(c page.Content) float64 {
	totalWords := 0
	pathological := 0
	maxWordLen := 0
	maxRepeat := 0

	c.EachString(func(s string) {
		for _, word := range strings.Fields(s) {
			totalWords++
			if len(word) > maxWordLen {
				maxWordLen = len(word)
			}
			if len(word) > longWordThreshold {
				pathological++
			}
			if run := longestRun(word); run > maxRepeat {
				maxRepeat = run
				if run >= repeatThreshold {
					pathological++
				}
			}
		}
	})

	if totalWords == 0 {
		return 0
	}

	ratio := float64(pathological) / float64(totalWords)
	lengthScore := min(float64(maxWordLen)/100.0, 1.0)
	repeatScore := min(float64(maxRepeat)/20.0, 1.0)

	score := ratio*0.5 + lengthScore*0.3 + repeatScore*0.2
	return min(score, 1.0)
}

func longestRun(word string) int {
	best, run := 0, 0
	var prev rune
	for i, r := range word {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = r
	}
	return best
}

// #endregion

// #region build-features

// BuildFeatures is the feature row for one build attempt, the predictor's
// input and the training record's feature columns.
type BuildFeatures struct {
	CharLen           int
	WordCount         int
	DensitySpacing    int
	DensityLayout     int
	PathologicalScore float64
	ThemeID           int
	StrategyID        int
}

// Names lists the feature columns in vector order, recorded in the model's
// metadata sidecar so inference and training cannot drift apart silently.
var Names = []string{
	"input_char_len",
	"input_word_count",
	"css_density_spacing",
	"css_density_layout",
	"pathological_score",
	"theme_id",
	"active_strategy_id",
}

// Extract computes the feature row for the current attempt state.
func Extract(c page.Content, overrides *page.OverrideSet, themeID int, active strategy.Strategy) BuildFeatures {
	return BuildFeatures{
		CharLen:           CharLen(c),
		WordCount:         WordCount(c),
		DensitySpacing:    DensitySpacing(overrides),
		DensityLayout:     DensityLayout(overrides),
		PathologicalScore: PathologicalScore(c),
		ThemeID:           themeID,
		StrategyID:        int(active),
	}
}

// Vector returns the row in Names order.
func (f BuildFeatures) Vector() []float64 {
	return []float64{
		float64(f.CharLen),
		float64(f.WordCount),
		float64(f.DensitySpacing),
		float64(f.DensityLayout),
		f.PathologicalScore,
		float64(f.ThemeID),
		float64(f.StrategyID),
	}
}

// #endregion

// #region context-vector

const (
	contentLenCap = 1000
	attemptCap    = 5
)

// ContextDim returns the context-vector dimensionality for a registered
// theme set: one-hot themes + content length + attempt + one-hot categories.
func ContextDim(themes []string) int {
	return len(themes) + 2 + len(ErrorCategories)
}

// Context builds the fixed-size numeric vector consumed by both the
// predictor's generator path and the sequence model. Unknown themes and
// categories fall into the last slot of their one-hot block.
func Context(themes []string, theme string, contentLen, attempt int, cat ErrorCategory) ([]float32, error) {
	if len(themes) == 0 {
		return nil, fmt.Errorf("context vector: no registered themes")
	}

	vec := make([]float32, 0, ContextDim(themes))

	themeIdx := len(themes) - 1
	for i, t := range themes {
		if t == theme {
			themeIdx = i
			break
		}
	}
	for i := range themes {
		if i == themeIdx {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}

	vec = append(vec, float32(min(contentLen, contentLenCap))/contentLenCap)
	vec = append(vec, float32(min(attempt, attemptCap))/attemptCap)

	catIdx := len(ErrorCategories) - 1
	for i, c := range ErrorCategories {
		if c == cat {
			catIdx = i
			break
		}
	}
	for i := range ErrorCategories {
		if i == catIdx {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}

	return vec, nil
}

// #endregion
