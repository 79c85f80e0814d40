package seqmodel

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

const (
	testVocab   = 12
	testContext = 9
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	return New(testVocab, testContext, 8, 16, rand.New(rand.NewSource(1)))
}

func testCtx() []float32 {
	ctx := make([]float32, testContext)
	ctx[0] = 1
	ctx[3] = 0.5
	return ctx
}

func TestGenerateRespectsLengthCap(t *testing.T) {
	m := newTestModel(t)
	out, err := m.Generate(testCtx(), GenerateOptions{MaxLength: 3, Temperature: 0.8, TopK: 5, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) > 3 {
		t.Fatalf("generated %d tokens, cap was 3", len(out))
	}
}

func TestGenerateNeverEmitsControlTokens(t *testing.T) {
	m := newTestModel(t)
	for seed := int64(0); seed < 20; seed++ {
		out, err := m.Generate(testCtx(), GenerateOptions{Temperature: 1.2, TopK: testVocab, Seed: seed})
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range out {
			switch id {
			case vocab.PadID, vocab.StartID, vocab.UnknownID:
				t.Fatalf("seed %d emitted control token %d", seed, id)
			}
		}
		if len(out) > MaxGenerate {
			t.Fatalf("seed %d exceeded hard cap: %d tokens", seed, len(out))
		}
	}
}

func TestGreedyDecodingIsDeterministic(t *testing.T) {
	m := newTestModel(t)
	opts := GenerateOptions{Temperature: 0, TopK: 20}
	a, err := m.Generate(testCtx(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Generate(testCtx(), opts)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("greedy decoding differed across calls:\n%s", diff)
	}
}

func TestFixedSeedSamplingIsReproducible(t *testing.T) {
	m := newTestModel(t)
	opts := GenerateOptions{Temperature: 0.8, TopK: 6, Seed: 42}
	a, _ := m.Generate(testCtx(), opts)
	b, _ := m.Generate(testCtx(), opts)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different sequences:\n%s", diff)
	}
}

func TestGenerateRejectsWrongDimension(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.Generate(make([]float32, testContext+1), DefaultGenerateOptions()); err == nil {
		t.Fatal("expected dimensionality error")
	}
}

func TestTrainStepReducesLoss(t *testing.T) {
	m := newTestModel(t)
	ctx := testCtx()
	target := []int{5, 6, 7}

	before := m.Loss(ctx, target)
	for i := 0; i < 60; i++ {
		m.TrainStep(ctx, target, 0.05)
	}
	after := m.Loss(ctx, target)

	if after >= before {
		t.Fatalf("loss did not decrease: %.4f -> %.4f", before, after)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	m := newTestModel(t)
	path := filepath.Join(t.TempDir(), "style_generator.bin")
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	opts := GenerateOptions{Temperature: 0, TopK: 20}
	want, _ := m.Generate(testCtx(), opts)
	got, _ := loaded.Generate(testCtx(), opts)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("loaded model decodes differently:\n%s", diff)
	}
}

func TestLoadFailsClosedOnCorruption(t *testing.T) {
	m := newTestModel(t)
	path := filepath.Join(t.TempDir(), "style_generator.bin")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip one byte in the middle of the weights.
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("corrupt artifact must not load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
