package strategy

// #region imports
import "fmt"

// #endregion

// #region strategy

// Strategy is a closed enumeration of repair strategies, totally ordered by
// destructiveness. ContentCut is the only strategy permitted to mutate page
// content; Unresolved is a terminal sentinel used when the retry budget is
// exhausted without approval.
type Strategy int

const (
	None         Strategy = 0
	CSSBreakWord Strategy = 1
	FontShrink   Strategy = 2
	CSSTruncate  Strategy = 3
	ContentCut   Strategy = 4

	Unresolved Strategy = 99
)

// #endregion

// #region string

// String returns the canonical name used in training records and logs.
func (s Strategy) String() string {
	switch s {
	case None:
		return "NONE"
	case CSSBreakWord:
		return "CSS_BREAK_WORD"
	case FontShrink:
		return "FONT_SHRINK"
	case CSSTruncate:
		return "CSS_TRUNCATE"
	case ContentCut:
		return "CONTENT_CUT"
	case Unresolved:
		return "UNRESOLVED"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Parse maps a canonical name back to its Strategy value.
func Parse(name string) (Strategy, error) {
	switch name {
	case "NONE":
		return None, nil
	case "CSS_BREAK_WORD":
		return CSSBreakWord, nil
	case "FONT_SHRINK":
		return FontShrink, nil
	case "CSS_TRUNCATE":
		return CSSTruncate, nil
	case "CONTENT_CUT":
		return ContentCut, nil
	case "UNRESOLVED":
		return Unresolved, nil
	}
	return None, fmt.Errorf("unknown strategy %q", name)
}

// #endregion

// #region ordering

// Repairable lists the non-terminal strategies that the engine can apply,
// in escalation order.
var Repairable = []Strategy{CSSBreakWord, FontShrink, CSSTruncate, ContentCut}

// Labels lists every value that can appear as a training label, in id order.
var Labels = []Strategy{None, CSSBreakWord, FontShrink, CSSTruncate, ContentCut, Unresolved}

// Destructive reports whether applying s rewrites page content.
func (s Strategy) Destructive() bool {
	return s == ContentCut
}

// Attempt returns the heuristic attempt slot that applies s, or 0 for
// strategies that have none.
func (s Strategy) Attempt() int {
	switch s {
	case CSSBreakWord, FontShrink, CSSTruncate, ContentCut:
		return int(s)
	}
	return 0
}

// FromAttempt returns the strategy the heuristic table applies at the given
// attempt. Attempts past the table's end stay on ContentCut.
func FromAttempt(attempt int) Strategy {
	switch {
	case attempt <= 0:
		return None
	case attempt >= int(ContentCut):
		return ContentCut
	}
	return Strategy(attempt)
}

// #endregion
