package audit

// #region imports
import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// #endregion

// #region dom-config

// DOMConfig holds headless-browser auditor settings.
type DOMConfig struct {
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
}

// DefaultDOMConfig returns the viewport and timeout used in production.
func DefaultDOMConfig() DOMConfig {
	return DOMConfig{
		ViewportWidth:  1024,
		ViewportHeight: 768,
		Timeout:        30 * time.Second,
	}
}

// #endregion

// #region overflow-script

// overflowScript runs inside the rendered page and collects elements whose
// content escapes either their own box or the document viewport.
const overflowScript = `(() => {
	const issues = [];
	const doc = document.documentElement;
	if (doc.scrollWidth > doc.clientWidth) {
		issues.push("document overflows horizontally: " +
			doc.scrollWidth + "px > " + doc.clientWidth + "px");
	}
	for (const el of document.querySelectorAll("[data-region]")) {
		const region = el.getAttribute("data-region");
		if (el.scrollWidth > el.clientWidth + 1) {
			issues.push(region + " overflow: " +
				el.scrollWidth + "px > " + el.clientWidth + "px");
		}
		const rect = el.getBoundingClientRect();
		if (rect.right > doc.clientWidth + 1) {
			issues.push(region + " escapes viewport");
		}
	}
	return issues;
})()`

// #endregion

// #region dom-auditor

// DOM audits a rendered page by loading it in headless Chromium and probing
// scroll/client geometry for overflow. One auditor may serve concurrent
// builds; each Audit call gets its own browser context.
type DOM struct {
	config DOMConfig
	log    *slog.Logger
}

// NewDOM creates a headless-browser auditor.
func NewDOM(config DOMConfig, log *slog.Logger) *DOM {
	if log == nil {
		log = slog.Default()
	}
	return &DOM{config: config, log: log}
}

// Audit renders htmlPath and returns the overflow verdict. Browser startup
// or navigation failures surface as ErrUnreachable.
func (d *DOM) Audit(ctx context.Context, htmlPath string) (Report, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: resolve path: %v", ErrUnreachable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(d.config.ViewportWidth, d.config.ViewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var issues []string
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(overflowScript, &issues),
	)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if len(issues) > 0 {
		d.log.Debug("layout rejected", "path", htmlPath, "issues", len(issues))
		return Report{
			Approved: false,
			Issues:   issues,
			Reason:   issues[0],
		}, nil
	}
	return Report{Approved: true, Reason: "no overflow detected"}, nil
}

// #endregion
