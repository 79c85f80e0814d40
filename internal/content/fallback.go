package content

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/pageforge/internal/page"
)

// Fallback returns deterministic local content for a topic. It is used when
// no content endpoint is configured or the upstream is down, so builds and
// training runs keep working offline.
func Fallback(topic string) page.Content {
	name := strings.TrimSpace(topic)
	if name == "" {
		name = "Pageforge"
	}
	title := strings.ToUpper(name[:1]) + name[1:]

	return page.Content{
		Hero: page.Hero{
			Title:    title,
			Subtitle: fmt.Sprintf("Everything you need to get started with %s.", name),
			Tagline:  "Built and verified automatically.",
		},
		Cards: []page.Card{
			{
				Title:       "Overview",
				Description: fmt.Sprintf("A concise introduction to **%s** and where it fits.", name),
			},
			{
				Title:       "Getting started",
				Description: "Install, configure, and ship your first page in minutes.",
			},
			{
				Title:       "Reference",
				Description: "The complete option and API reference, kept current.",
			},
		},
		Menu: []page.MenuItem{
			{Label: "Home", Href: "/"},
			{Label: "Docs", Href: "/docs"},
			{Label: "About", Href: "/about"},
		},
		CTA: page.CallToAction{Label: "Get started", Href: "/docs"},
	}
}
