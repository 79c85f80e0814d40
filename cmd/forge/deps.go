package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/pageforge/internal/audit"
	"github.com/danielpatrickdp/pageforge/internal/breaker"
	"github.com/danielpatrickdp/pageforge/internal/cache"
	"github.com/danielpatrickdp/pageforge/internal/content"
	"github.com/danielpatrickdp/pageforge/internal/controller"
	"github.com/danielpatrickdp/pageforge/internal/dataset"
	"github.com/danielpatrickdp/pageforge/internal/logging"
	"github.com/danielpatrickdp/pageforge/internal/page"
	"github.com/danielpatrickdp/pageforge/internal/predictor"
	"github.com/danielpatrickdp/pageforge/internal/render"
	"github.com/danielpatrickdp/pageforge/internal/repair"
	"github.com/danielpatrickdp/pageforge/internal/seqmodel"
	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

// #region wiring

func loadThemes() (*render.Registry, error) {
	if cfg.Paths.ThemesFile != "" {
		return render.LoadRegistry(cfg.Paths.ThemesFile)
	}
	return render.Builtin(), nil
}

// newEngine assembles the repair engine, attaching the trained generator
// when its artifact pair is deployed and generation is enabled.
func newEngine(themes *render.Registry, log *slog.Logger) *repair.Engine {
	var opts []repair.Option
	modelPath, vocabPath := generatorPaths()
	if _, statErr := os.Stat(modelPath); cfg.Build.UseGenerator && statErr == nil {
		model, err := seqmodel.Load(modelPath)
		if err != nil {
			log.Warn("style generator unusable, falling back to heuristics", "error", err)
		} else if v, verr := vocab.Load(vocabPath); verr != nil {
			log.Warn("style vocabulary unusable, falling back to heuristics", "error", verr)
		} else if v.Size() != model.VocabSize {
			log.Warn("style generator and vocabulary disagree, falling back to heuristics",
				"model_vocab", model.VocabSize, "vocab", v.Size())
		} else {
			opts = append(opts, repair.WithGenerator(model, v))
			log.Info("style generator loaded", "path", modelPath, "vocab", v.Size())
		}
	}
	return repair.NewEngine(repair.NewTable(), themes.Names(), log, opts...)
}

func newPredictor(log *slog.Logger) *predictor.Predictor {
	p := predictor.New(log)
	p.TryLoad(predictorPaths())
	return p
}

func newController(themes *render.Registry, store *dataset.Store, log *slog.Logger) (*controller.Controller, error) {
	renderer, err := render.New(themes)
	if err != nil {
		return nil, err
	}
	auditor := audit.NewDOM(audit.DOMConfig{
		ViewportWidth:  cfg.Audit.ViewportWidth,
		ViewportHeight: cfg.Audit.ViewportHeight,
		Timeout:        cfg.Audit.Timeout.Std(),
	}, logging.New("audit"))
	engine := newEngine(themes, logging.New("repair"))

	opts := controller.Options{
		MaxAttempts:         cfg.Build.MaxAttempts,
		ConfidenceThreshold: cfg.Build.ConfidenceThreshold,
	}
	return controller.New(renderer, auditor, engine, newPredictor(logging.New("predictor")), store, opts, log), nil
}

// #endregion

// #region content

// fetchContent resolves the page content for a topic: an explicit JSON file
// wins, then the configured upstream, then the local fallback.
func fetchContent(ctx context.Context, topic, contentFile string, log *slog.Logger) (page.Content, error) {
	if contentFile != "" {
		return page.LoadContent(contentFile)
	}
	if cfg.Content.APIKey == "" && cfg.Content.BaseURL == "" {
		log.Debug("no content endpoint configured, using fallback", "topic", topic)
		return content.Fallback(topic), nil
	}

	mem := cache.NewMemory(64, cfg.Content.CacheTTL.Std())
	disk, err := cache.NewDisk(cfg.Paths.CacheDir, cfg.Content.CacheTTL.Std())
	if err != nil {
		return page.Content{}, err
	}
	client := content.NewClient(content.ClientConfig{
		BaseURL: cfg.Content.BaseURL,
		APIKey:  cfg.Content.APIKey,
		Model:   cfg.Content.Model,
		Timeout: cfg.Content.Timeout.Std(),
	}, cache.NewTiered(mem, disk),
		breaker.New(cfg.Content.BreakerThreshold, cfg.Content.BreakerCooldown.Std()),
		log)

	c, err := client.Fetch(ctx, topic)
	if err != nil {
		if errors.Is(err, content.ErrUpstream) {
			log.Warn("content service unavailable, using fallback", "topic", topic, "error", err)
			return content.Fallback(topic), nil
		}
		return page.Content{}, err
	}
	return c, nil
}

// #endregion
