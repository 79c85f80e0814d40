// Package controller runs the closed build loop: predict, render, audit,
// repair, re-render, under a bounded attempt budget with escalating
// repair destructiveness.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/predictor"
	"github.com/danielpatrickdp/pageforge/internal/render"
	"github.com/danielpatrickdp/pageforge/internal/repair"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
)

// #region outcome

// Status is the terminal state of one build.
type Status string

const (
	// StatusSuccess: an attempt passed the audit and its page is published.
	StatusSuccess Status = "SUCCESS"
	// StatusRejected: the attempt budget ran out; the last render is kept
	// under a broken-page marker prefix.
	StatusRejected Status = "REJECTED"
	// StatusFailed: the loop itself broke (render error, auditor down).
	StatusFailed Status = "FAILED"
)

// BrokenPrefix marks the filename of a page that exhausted its repair
// budget without passing audit.
const BrokenPrefix = "BROKEN_"

// Outcome reports how a build ended.
type Outcome struct {
	Status            Status
	BuildID           string
	FinalPath         string
	AttemptsUsed      int
	Report            audit.Report
	StrategiesApplied []strategy.Strategy
	Prediction        *predictor.Prediction
}

// #endregion

// #region controller

// Options bounds the build loop.
type Options struct {
	// MaxAttempts caps render+audit cycles per build, the clean first
	// render included.
	MaxAttempts int
	// ConfidenceThreshold gates predictive strategy skipping.
	ConfidenceThreshold float64
}

// DefaultOptions returns the production loop bounds.
func DefaultOptions() Options {
	return Options{MaxAttempts: 5, ConfidenceThreshold: 0.6}
}

// Controller drives builds. All per-build state lives inside Run and the
// wired dependencies are read-only or internally synchronized, so one
// Controller may serve concurrent builds; loaded model artifacts are
// shared, not re-read per build.
type Controller struct {
	renderer *render.Renderer
	auditor  audit.Auditor
	engine   *repair.Engine
	pred     *predictor.Predictor
	store    *dataset.Store
	opts     Options
	log      *slog.Logger
}

// New wires a controller. Predictor and store are optional: without a
// predictor every build starts at the clean render, and without a store
// no training records are written.
func New(renderer *render.Renderer, auditor audit.Auditor, engine *repair.Engine,
	pred *predictor.Predictor, store *dataset.Store, opts Options, log *slog.Logger) *Controller {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultOptions().MaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		renderer: renderer,
		auditor:  auditor,
		engine:   engine,
		pred:     pred,
		store:    store,
		opts:     opts,
		log:      log,
	}
}

// #endregion

// #region run

// Run drives one build to a terminal status. The returned error is non-nil
// only for StatusFailed; success and rejection are ordinary outcomes.
func (c *Controller) Run(ctx context.Context, content page.Content, theme, outPath string) (Outcome, error) {
	out := Outcome{Status: StatusFailed, BuildID: uuid.New().String(), FinalPath: outPath}
	log := c.log.With("build", out.BuildID, "theme", theme)

	themeID, err := c.renderer.Themes().ID(theme)
	if err != nil {
		return out, err
	}

	overrides := page.NewOverrideSet()
	current := content
	slot := 0 // strategy attempt slot; 0 is the clean render

	// Pre-render prediction: when the classifier is confident the content
	// will need repair, start at the predicted strategy's slot instead of
	// burning attempts climbing to it. Only the predicted strategy's repair
	// is applied; the skipped milder slots are skipped outright.
	if skip, pred := c.predictSkip(content, themeID, log); skip > 0 {
		out.Prediction = pred
		res := c.engine.Repair(audit.Report{Reason: "predicted"}, current, theme, skip)
		c.applyRepair(&out, res, overrides, &current)
		slot = skip
		log.Info("starting at predicted strategy",
			"strategy", strategy.FromAttempt(skip).String(),
			"confidence", pred.Confidence)
	} else if pred != nil {
		out.Prediction = pred
	}

	noProgress := 0
	for cycle := 1; cycle <= c.opts.MaxAttempts; cycle++ {
		out.AttemptsUsed = cycle

		if err := c.renderer.Render(current, theme, overrides, outPath); err != nil {
			return out, fmt.Errorf("render attempt %d: %w", cycle, err)
		}

		report, err := c.auditor.Audit(ctx, outPath)
		if err != nil {
			// An unreachable auditor fails the build; guessing at page
			// health is worse than reporting the outage.
			return out, fmt.Errorf("audit attempt %d: %w", cycle, err)
		}
		out.Report = report

		active := strategy.FromAttempt(slot)
		c.record(log, out.BuildID, cycle, theme, current, overrides, themeID, active, report)

		if report.Approved {
			out.Status = StatusSuccess
			c.resolve(log, out.BuildID, active)
			log.Info("build approved", "attempts", cycle, "strategy", active.String())
			return out, nil
		}
		log.Warn("audit rejected render", "attempt", cycle, "reason", report.Reason)

		if cycle == c.opts.MaxAttempts {
			break
		}

		slot++
		res := c.engine.Repair(report, current, theme, slot)
		progressed := c.applyRepair(&out, res, overrides, &current)
		if progressed {
			noProgress = 0
			continue
		}
		// Two stalled repairs in a row mean this strategy has nothing
		// left to add; escalate past it rather than re-auditing an
		// identical page.
		noProgress++
		if noProgress >= 2 && strategy.FromAttempt(slot) != strategy.ContentCut {
			slot++
			noProgress = 0
		} else if noProgress >= 2 {
			break
		}
	}

	out.Status = StatusRejected
	c.resolve(log, out.BuildID, strategy.Unresolved)
	if renamed, err := markBroken(outPath); err == nil {
		out.FinalPath = renamed
	} else {
		log.Warn("could not mark broken page", "error", err)
	}
	log.Warn("build rejected", "attempts", out.AttemptsUsed, "reason", out.Report.Reason)
	return out, nil
}

// applyRepair folds a repair result into the build state and reports
// whether it changed anything.
func (c *Controller) applyRepair(out *Outcome, res repair.Result, overrides *page.OverrideSet, current *page.Content) bool {
	out.StrategiesApplied = append(out.StrategiesApplied, res.Strategy)

	before := overrides.Len()
	overrides.Merge(res.StyleOverrides)
	changed := overrides.Len() > before

	if res.ContentModified && res.ModifiedContent != nil {
		cut := *res.ModifiedContent
		if features.CharLen(cut) != features.CharLen(*current) {
			changed = true
		}
		*current = cut
	}
	return changed
}

// #endregion

// #region prediction

// predictSkip consults the classifier on the pre-render features and
// returns the attempt slot to start at. Confidence below the threshold, a
// NONE answer, or no loaded model all mean no skip. A prediction can never
// start past the truncation slot unless the predicted strategy is the
// destructive cut itself.
func (c *Controller) predictSkip(content page.Content, themeID int, log *slog.Logger) (int, *predictor.Prediction) {
	if c.pred == nil || !c.pred.Available() {
		return 0, nil
	}
	feat := features.Extract(content, page.NewOverrideSet(), themeID, strategy.None)
	pred, err := c.pred.Predict(feat.Vector())
	if err != nil {
		log.Warn("prediction unavailable", "error", err)
		return 0, nil
	}
	if pred.Strategy == strategy.None || pred.Strategy == strategy.Unresolved {
		return 0, &pred
	}
	if pred.Confidence < c.opts.ConfidenceThreshold {
		log.Debug("prediction below threshold",
			"strategy", pred.Strategy.String(), "confidence", pred.Confidence)
		return 0, &pred
	}
	slot := pred.Strategy.Attempt()
	if ceiling := strategy.CSSTruncate.Attempt(); slot > ceiling && pred.Strategy != strategy.ContentCut {
		slot = ceiling
	}
	return slot, &pred
}

// #endregion

// #region records

func (c *Controller) record(log *slog.Logger, buildID string, cycle int, theme string,
	content page.Content, overrides *page.OverrideSet, themeID int,
	active strategy.Strategy, report audit.Report) {
	if c.store == nil {
		return
	}
	var tokens []string
	for _, region := range overrides.Regions() {
		tokens = append(tokens, overrides.Tokens(region)...)
	}
	rec := dataset.Record{
		BuildID:   buildID,
		Attempt:   cycle,
		Theme:     theme,
		Features:  features.Extract(content, overrides, themeID, active),
		Strategy:  active,
		Approved:  report.Approved,
		Reason:    report.Reason,
		Overrides: tokens,
	}
	if _, err := c.store.Append(rec); err != nil {
		log.Warn("training record not written", "attempt", cycle, "error", err)
	}
}

func (c *Controller) resolve(log *slog.Logger, buildID string, resolved strategy.Strategy) {
	if c.store == nil {
		return
	}
	if err := c.store.Resolve(buildID, resolved); err != nil {
		log.Warn("training records not resolved", "error", err)
	}
}

// #endregion

// #region broken

// markBroken renames a rejected page so it cannot be mistaken for a good
// one by anything serving the output directory.
func markBroken(outPath string) (string, error) {
	dir, base := filepath.Split(outPath)
	renamed := filepath.Join(dir, BrokenPrefix+base)
	if err := os.Rename(outPath, renamed); err != nil {
		return "", fmt.Errorf("mark broken: %w", err)
	}
	return renamed, nil
}

// #endregion
