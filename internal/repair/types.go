// Package repair selects and produces corrective actions for failed audits:
// a learned style generator gated by token validation, with a deterministic
// heuristic table as ground-truth fallback.
package repair

// #region imports
import (
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #endregion

// #region result

// Result is one corrective action. StyleOverrides is non-nil for style-level
// strategies; ModifiedContent is set only when ContentModified is true, which
// only the content-cut strategy may do.
type Result struct {
	Strategy        strategy.Strategy
	StyleOverrides  *page.OverrideSet
	ContentModified bool
	ModifiedContent *page.Content
	Description     string
}

// #endregion

// #region allow-list

// safeClasses is the fixed allow-list of style classes a generated sequence
// may contain. Tokens outside it must instead match the bracketed
// arbitrary-value grammar or the whole sequence is discarded.
var safeClasses = map[string]bool{
	// text sizing
	"text-xs": true, "text-sm": true, "text-base": true, "text-lg": true,
	"text-xl": true, "text-2xl": true, "text-3xl": true, "text-4xl": true,
	"text-5xl": true,
	// line height
	"leading-none": true, "leading-tight": true, "leading-snug": true,
	"leading-normal": true,
	// word breaking
	"break-normal": true, "break-words": true, "break-all": true,
	"overflow-wrap-anywhere": true,
	// overflow
	"overflow-hidden": true, "overflow-x-hidden": true, "overflow-y-hidden": true,
	"overflow-auto": true, "overflow-scroll": true,
	// truncation
	"truncate": true, "text-ellipsis": true,
	"line-clamp-1": true, "line-clamp-2": true, "line-clamp-3": true,
	"line-clamp-4": true,
	// whitespace
	"whitespace-normal": true, "whitespace-nowrap": true, "whitespace-pre": true,
	// font weight
	"font-normal": true, "font-medium": true, "font-semibold": true,
	"font-bold": true,
}

// Allowed reports whether cls is on the fixed safe-class list.
func Allowed(cls string) bool {
	return safeClasses[cls]
}

// #endregion
