package repair

// #region imports
import (
	"log/slog"
	"strings"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/seqmodel"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

// #endregion

// #region generator-interface

// Generator is the trained sequence model's decoding surface.
type Generator interface {
	Generate(ctx []float32, opts seqmodel.GenerateOptions) ([]int, error)
}

// #endregion

// #region engine

// Engine produces the repair for a failed attempt. When a generator and
// vocabulary are loaded it tries a learned style patch first, validated
// token by token; on any validation failure, or when the attempt calls for
// the destructive strategy, it uses the heuristic table.
type Engine struct {
	table   *Table
	gen     Generator
	vocab   *vocab.Vocabulary
	themes  []string
	genOpts seqmodel.GenerateOptions
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenerator attaches a trained sequence model and its vocabulary.
func WithGenerator(gen Generator, v *vocab.Vocabulary) Option {
	return func(e *Engine) {
		e.gen = gen
		e.vocab = v
	}
}

// WithGenerateOptions overrides the default sampling policy.
func WithGenerateOptions(opts seqmodel.GenerateOptions) Option {
	return func(e *Engine) { e.genOpts = opts }
}

// NewEngine creates a repair engine over the given heuristic table. themes
// is the registered theme set the context vector one-hot is defined over.
func NewEngine(table *Table, themes []string, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		table:   table,
		themes:  themes,
		genOpts: seqmodel.DefaultGenerateOptions(),
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// #endregion

// #region repair

// Repair returns the corrective action for a failed audit at the given
// attempt. It never returns an error: generation problems degrade to the
// heuristic table.
func (e *Engine) Repair(report audit.Report, content page.Content, theme string, attempt int) Result {
	planned := strategy.FromAttempt(attempt)

	// The destructive strategy is never delegated to the generator: only
	// the deterministic table may rewrite content.
	if e.gen != nil && e.vocab != nil && !planned.Destructive() {
		if classes := e.generateValidated(report, content, theme, attempt); len(classes) > 0 {
			o := page.NewOverrideSet()
			o.Add(page.RegionHeroTitle, classes...)
			o.Add(page.RegionHeroSubtitle, classes...)
			o.Add(page.RegionCardDescription, classes...)
			return Result{
				Strategy:       planned,
				StyleOverrides: o,
				Description:    "generated style patch: " + joinClasses(classes),
			}
		}
	}

	return e.table.Apply(report, content, attempt)
}

// generateValidated runs the sequence model and gates its output. Returns
// nil whenever anything is off; the caller falls back to the table.
func (e *Engine) generateValidated(report audit.Report, content page.Content, theme string, attempt int) []string {
	ctx, err := features.Context(e.themes, theme, features.CharLen(content), attempt, features.Categorize(report.Reason))
	if err != nil {
		e.log.Warn("context vector unavailable", "err", err)
		return nil
	}

	ids, err := e.gen.Generate(ctx, e.genOpts)
	if err != nil {
		e.log.Warn("style generation failed, falling back to heuristic", "err", err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	// Map ids to tokens directly: routing through the split grammar would
	// drop malformed tokens before the gate sees them, turning a rejection
	// into a silent trim. A control or unknown id rejects the sequence.
	classes := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < vocab.FirstClassID {
			e.log.Warn("generated sequence rejected: control token in output", "id", id)
			return nil
		}
		classes = append(classes, e.vocab.Token(id))
	}
	if !Validate(e.vocab, classes) {
		e.log.Warn("generated sequence rejected by validation gate",
			"classes", joinClasses(classes))
		return nil
	}
	return classes
}

// #endregion

// #region validation-gate

// Validate is the anti-hallucination gate: every class must either be a
// known vocabulary token on the safe allow-list, or match the bracketed
// arbitrary-value grammar. One bad token rejects the entire sequence;
// sequences are never trimmed down to their valid subset.
func Validate(v *vocab.Vocabulary, classes []string) bool {
	if len(classes) == 0 {
		return false
	}
	for _, cls := range classes {
		if v != nil && v.Contains(cls) && Allowed(cls) {
			continue
		}
		if vocab.IsArbitraryValue(cls) {
			continue
		}
		return false
	}
	return true
}

func joinClasses(classes []string) string {
	return strings.Join(classes, " ")
}

// #endregion
