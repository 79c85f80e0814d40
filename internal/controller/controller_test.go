package controller

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/features"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/predictor"
	"github.com/danielpatrickdp/pageforge/internal/render"
	"github.com/danielpatrickdp/pageforge/internal/repair"
	"github.com/danielpatrickdp/pageforge/internal/seqmodel"
	"github.com/danielpatrickdp/pageforge/internal/strategy"
	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

func testContent() page.Content {
	return page.Content{
		Hero: page.Hero{Title: "Forge", Subtitle: "Pages that fix themselves"},
		Cards: []page.Card{
			{Title: "Audit", Description: "Renders are checked before they ship."},
		},
		Menu: []page.MenuItem{{Label: "Docs", Href: "/docs"}},
		CTA:  page.CallToAction{Label: "Get started", Href: "/start"},
	}
}

type fixture struct {
	ctrl    *Controller
	store   *dataset.Store
	outPath string
}

func newFixture(t *testing.T, auditor audit.Auditor, pred *predictor.Predictor) fixture {
	t.Helper()
	r, err := render.New(render.Builtin())
	if err != nil {
		t.Fatal(err)
	}
	store, err := dataset.Open(filepath.Join(t.TempDir(), "forge.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	engine := repair.NewEngine(repair.NewTable(), render.Builtin().Names(), nil)
	ctrl := New(r, auditor, engine, pred, store, DefaultOptions(), nil)
	return fixture{
		ctrl:    ctrl,
		store:   store,
		outPath: filepath.Join(t.TempDir(), "index.html"),
	}
}

func TestCleanBuildSucceedsFirstAttempt(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{{Approved: true}}}
	f := newFixture(t, auditor, nil)

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Status != StatusSuccess || out.AttemptsUsed != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.StrategiesApplied) != 0 {
		t.Fatalf("clean build applied strategies %v", out.StrategiesApplied)
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want exactly one per attempt", len(records))
	}
	if records[0].ResolvedStrategy != strategy.None {
		t.Fatalf("resolved = %s, want NONE", records[0].ResolvedStrategy)
	}
}

func TestEscalatesUntilApproved(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: true},
	}}
	f := newFixture(t, auditor, nil)

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSuccess || out.AttemptsUsed != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	want := []strategy.Strategy{strategy.CSSBreakWord, strategy.FontShrink}
	if len(out.StrategiesApplied) != len(want) {
		t.Fatalf("strategies = %v, want %v", out.StrategiesApplied, want)
	}
	for i := range want {
		if out.StrategiesApplied[i] != want[i] {
			t.Fatalf("strategies = %v, want %v", out.StrategiesApplied, want)
		}
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want one per attempt", len(records))
	}
	for _, rec := range records {
		if rec.ResolvedStrategy != strategy.FontShrink {
			t.Fatalf("attempt %d resolved = %s, want FONT_SHRINK", rec.Attempt, rec.ResolvedStrategy)
		}
	}
}

func TestEscalatesToContentCut(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: true},
	}}
	f := newFixture(t, auditor, nil)

	c := testContent()
	c.Hero.Title = strings.Repeat("W", 1000)
	out, err := f.ctrl.Run(context.Background(), c, "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSuccess || out.AttemptsUsed != 5 {
		t.Fatalf("outcome = %+v", out)
	}
	want := []strategy.Strategy{
		strategy.CSSBreakWord, strategy.FontShrink,
		strategy.CSSTruncate, strategy.ContentCut,
	}
	if len(out.StrategiesApplied) != len(want) {
		t.Fatalf("strategies = %v, want %v", out.StrategiesApplied, want)
	}
	for i := range want {
		if out.StrategiesApplied[i] != want[i] {
			t.Fatalf("strategies = %v, want %v", out.StrategiesApplied, want)
		}
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("records = %d, want one per attempt", len(records))
	}
	for _, rec := range records {
		if rec.ResolvedStrategy != strategy.ContentCut {
			t.Fatalf("attempt %d resolved = %s, want CONTENT_CUT", rec.Attempt, rec.ResolvedStrategy)
		}
	}
}

// repeatGenerator always emits the same sequence, so every generated patch
// after the first adds no new tokens.
type repeatGenerator struct{ ids []int }

func (g *repeatGenerator) Generate([]float32, seqmodel.GenerateOptions) ([]int, error) {
	return g.ids, nil
}

func TestStalledRepairsAdvancePastStrategy(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: false, Reason: "overflow: hero_title"},
		{Approved: true},
	}}
	r, err := render.New(render.Builtin())
	if err != nil {
		t.Fatal(err)
	}
	v := vocab.New()
	v.Build([]string{"break-all"}, 1)
	gen := &repeatGenerator{ids: []int{v.ID("break-all")}}
	engine := repair.NewEngine(repair.NewTable(), render.Builtin().Names(), nil,
		repair.WithGenerator(gen, v))
	ctrl := New(r, auditor, engine, nil, nil, DefaultOptions(), nil)

	c := testContent()
	c.Hero.Title = strings.Repeat("W", 1000)
	out, err := ctrl.Run(context.Background(), c, "brutalist", filepath.Join(t.TempDir(), "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSuccess {
		t.Fatalf("outcome = %+v", out)
	}
	// Attempt 2 and 3 regenerate the same patch and stall; the second stall
	// must advance the slot so the budget still reaches the content cut.
	last := out.StrategiesApplied[len(out.StrategiesApplied)-1]
	if last != strategy.ContentCut {
		t.Fatalf("strategies = %v, want escalation to CONTENT_CUT", out.StrategiesApplied)
	}
}

func TestStalledContentCutEndsBuildEarly(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{
		{Approved: false, Reason: "overflow: hero_title"},
	}}
	f := newFixture(t, auditor, confidentPredictor(t, strategy.ContentCut))

	// Every string is already under the truncation cap, so the predicted cut
	// and each retried cut change nothing.
	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED", out.Status)
	}
	if out.AttemptsUsed >= DefaultOptions().MaxAttempts {
		t.Fatalf("attempts = %d, want early exit before the full budget", out.AttemptsUsed)
	}
}

func TestExhaustedBudgetRejectsAndMarksBroken(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{
		{Approved: false, Reason: "overflow: hero_title"},
	}}
	f := newFixture(t, auditor, nil)

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("status = %s, want REJECTED", out.Status)
	}
	if out.AttemptsUsed != DefaultOptions().MaxAttempts {
		t.Fatalf("attempts = %d, want full budget", out.AttemptsUsed)
	}
	if !strings.HasPrefix(filepath.Base(out.FinalPath), BrokenPrefix) {
		t.Fatalf("final path %q not marked broken", out.FinalPath)
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.ResolvedStrategy != strategy.Unresolved {
			t.Fatalf("resolved = %s, want UNRESOLVED", rec.ResolvedStrategy)
		}
	}
}

func TestSharedControllerServesConcurrentBuilds(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{{Approved: true}}}
	f := newFixture(t, auditor, nil)

	const builds = 4
	dir := t.TempDir()
	var wg sync.WaitGroup
	outcomes := make([]Outcome, builds)
	errs := make([]error, builds)
	for i := 0; i < builds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := filepath.Join(dir, fmt.Sprintf("page-%d.html", i))
			outcomes[i], errs[i] = f.ctrl.Run(context.Background(), testContent(), "brutalist", out)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < builds; i++ {
		if errs[i] != nil {
			t.Fatalf("build %d: %v", i, errs[i])
		}
		if outcomes[i].Status != StatusSuccess {
			t.Fatalf("build %d outcome = %+v", i, outcomes[i])
		}
		if seen[outcomes[i].BuildID] {
			t.Fatalf("build id %s reused across concurrent builds", outcomes[i].BuildID)
		}
		seen[outcomes[i].BuildID] = true
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != builds {
		t.Fatalf("records = %d, want one per build", len(records))
	}
}

func TestAuditOutageFailsBuild(t *testing.T) {
	auditor := &audit.Scripted{Err: audit.ErrUnreachable}
	f := newFixture(t, auditor, nil)

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err == nil {
		t.Fatal("auditor outage must fail the build")
	}
	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", out.Status)
	}
}

func TestUnknownThemeFailsBuild(t *testing.T) {
	f := newFixture(t, &audit.Scripted{}, nil)
	if _, err := f.ctrl.Run(context.Background(), testContent(), "vaporwave", f.outPath); err == nil {
		t.Fatal("unknown theme must fail")
	}
}

// confidentPredictor builds a predictor whose loaded model always answers
// the given strategy with probability 1.
func confidentPredictor(t *testing.T, s strategy.Strategy) *predictor.Predictor {
	t.Helper()
	classes := []int{int(strategy.None), int(s)}
	tree := predictor.Tree{Nodes: []predictor.Node{
		{Leaf: true, Probs: []float64{0, 1}},
	}}
	forest := &predictor.Forest{
		NumFeatures: len(features.Names),
		Classes:     classes,
		Trees:       []predictor.Tree{tree},
	}

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	metaPath := filepath.Join(dir, "meta.json")
	if err := predictor.SaveArtifact(forest, predictor.Metadata{FeatureNames: features.Names}, modelPath, metaPath); err != nil {
		t.Fatal(err)
	}
	p := predictor.New(nil)
	if err := p.Load(modelPath, metaPath); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfidentPredictionSkipsEarlySlots(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{{Approved: true}}}
	f := newFixture(t, auditor, confidentPredictor(t, strategy.CSSTruncate))

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSuccess || out.AttemptsUsed != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Prediction == nil || out.Prediction.Strategy != strategy.CSSTruncate {
		t.Fatalf("prediction = %+v", out.Prediction)
	}
	// Only the predicted strategy is applied before the first render; the
	// milder slots it skipped over are not.
	if len(out.StrategiesApplied) != 1 || out.StrategiesApplied[0] != strategy.CSSTruncate {
		t.Fatalf("strategies = %v, want exactly [CSS_TRUNCATE]", out.StrategiesApplied)
	}

	records, err := f.store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].ResolvedStrategy != strategy.CSSTruncate {
		t.Fatalf("resolved = %s, want CSS_TRUNCATE", records[0].ResolvedStrategy)
	}
}

func TestDestructivePredictionIsNotClamped(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{{Approved: true}}}
	f := newFixture(t, auditor, confidentPredictor(t, strategy.ContentCut))

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.StrategiesApplied) != 1 || out.StrategiesApplied[0] != strategy.ContentCut {
		t.Fatalf("strategies = %v, want exactly [CONTENT_CUT]", out.StrategiesApplied)
	}
}

func TestPredictedStrategyIsAppliedFirst(t *testing.T) {
	auditor := &audit.Scripted{Reports: []audit.Report{{Approved: false, Reason: "overflow: hero_title"}, {Approved: true}}}
	f := newFixture(t, auditor, confidentPredictor(t, strategy.FontShrink))

	out, err := f.ctrl.Run(context.Background(), testContent(), "brutalist", f.outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.StrategiesApplied) == 0 || out.StrategiesApplied[0] != strategy.FontShrink {
		t.Fatalf("first repair = %v, want FONT_SHRINK (full list %v)",
			out.StrategiesApplied, out.StrategiesApplied)
	}
	for _, s := range out.StrategiesApplied {
		if s == strategy.CSSBreakWord {
			t.Fatalf("skipped slot was applied: %v", out.StrategiesApplied)
		}
	}
}
