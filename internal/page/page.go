package page

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// #endregion

// #region content

// Hero is the page's lead block.
type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Tagline  string `json:"tagline,omitempty"`
}

// Card is one feature/repository card.
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MenuItem is one navigation entry.
type MenuItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// CallToAction is the closing action block.
type CallToAction struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Content is the mutable page content for one build. The controller owns it
// for the duration of a build; only the content-cut repair strategy may
// rewrite it, and it does so via Transform on a clone.
type Content struct {
	Hero  Hero         `json:"hero"`
	Cards []Card       `json:"cards"`
	Menu  []MenuItem   `json:"menu"`
	CTA   CallToAction `json:"cta"`
}

// #endregion

// #region content-load

// LoadContent reads a content JSON file matching the generator schema.
func LoadContent(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("read content: %w", err)
	}
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("parse content %s: %w", path, err)
	}
	return c, nil
}

// #endregion

// #region content-traversal

// Clone returns a deep copy of the content.
func (c Content) Clone() Content {
	out := c
	out.Cards = append([]Card(nil), c.Cards...)
	out.Menu = append([]MenuItem(nil), c.Menu...)
	return out
}

// EachString calls fn for every user-visible string field.
func (c Content) EachString(fn func(string)) {
	fn(c.Hero.Title)
	fn(c.Hero.Subtitle)
	fn(c.Hero.Tagline)
	for _, card := range c.Cards {
		fn(card.Title)
		fn(card.Description)
	}
	for _, m := range c.Menu {
		fn(m.Label)
	}
	fn(c.CTA.Label)
}

// Transform returns a copy with fn applied to every user-visible string
// field. Hrefs are left alone.
func (c Content) Transform(fn func(string) string) Content {
	out := c.Clone()
	out.Hero.Title = fn(out.Hero.Title)
	out.Hero.Subtitle = fn(out.Hero.Subtitle)
	out.Hero.Tagline = fn(out.Hero.Tagline)
	for i := range out.Cards {
		out.Cards[i].Title = fn(out.Cards[i].Title)
		out.Cards[i].Description = fn(out.Cards[i].Description)
	}
	for i := range out.Menu {
		out.Menu[i].Label = fn(out.Menu[i].Label)
	}
	out.CTA.Label = fn(out.CTA.Label)
	return out
}

// #endregion

// #region regions

// Named page regions style overrides can target. These are the template's
// class hook points, not CSS selectors.
const (
	RegionHeroTitle       = "hero_title"
	RegionHeroSubtitle    = "hero_subtitle"
	RegionCardTitle       = "card_title"
	RegionCardDescription = "card_description"
	RegionMenuItem        = "menu_item"
	RegionCTALabel        = "cta_label"
)

// TextRegions lists every text-bearing region, the injection targets for
// style-level repairs.
var TextRegions = []string{
	RegionHeroTitle,
	RegionHeroSubtitle,
	RegionCardTitle,
	RegionCardDescription,
	RegionMenuItem,
	RegionCTALabel,
}

// #endregion

// #region override-set

// OverrideSet maps page regions to an ordered set of style-class tokens.
// It accumulates monotonically across build attempts: Add unions, nothing
// removes.
type OverrideSet struct {
	classes map[string][]string
}

// NewOverrideSet returns an empty override set.
func NewOverrideSet() *OverrideSet {
	return &OverrideSet{classes: make(map[string][]string)}
}

// Add unions tokens into the region's ordered set. Duplicates are dropped,
// first occurrence wins the position.
func (o *OverrideSet) Add(region string, tokens ...string) {
	have := make(map[string]bool, len(o.classes[region]))
	for _, t := range o.classes[region] {
		have[t] = true
	}
	for _, t := range tokens {
		if t == "" || have[t] {
			continue
		}
		o.classes[region] = append(o.classes[region], t)
		have[t] = true
	}
}

// Merge unions every region of other into o.
func (o *OverrideSet) Merge(other *OverrideSet) {
	if other == nil {
		return
	}
	for _, region := range other.Regions() {
		o.Add(region, other.Tokens(region)...)
	}
}

// Tokens returns the region's tokens in insertion order.
func (o *OverrideSet) Tokens(region string) []string {
	return append([]string(nil), o.classes[region]...)
}

// Classes returns the region's tokens joined into a class attribute string.
func (o *OverrideSet) Classes(region string) string {
	return strings.Join(o.classes[region], " ")
}

// Regions returns the regions that have at least one token, sorted.
func (o *OverrideSet) Regions() []string {
	out := make([]string, 0, len(o.classes))
	for region, toks := range o.classes {
		if len(toks) > 0 {
			out = append(out, region)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the total token count across regions.
func (o *OverrideSet) Len() int {
	n := 0
	for _, toks := range o.classes {
		n += len(toks)
	}
	return n
}

// Clone returns a deep copy.
func (o *OverrideSet) Clone() *OverrideSet {
	out := NewOverrideSet()
	out.Merge(o)
	return out
}

// Equal reports whether two sets hold the same tokens in the same order.
func (o *OverrideSet) Equal(other *OverrideSet) bool {
	if o.Len() != other.Len() || len(o.Regions()) != len(other.Regions()) {
		return false
	}
	for _, region := range o.Regions() {
		a, b := o.classes[region], other.classes[region]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON serializes regions sorted for stable training records.
func (o *OverrideSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(o.classes))
	for _, region := range o.Regions() {
		m[region] = o.Classes(region)
	}
	return json.Marshal(m)
}

// #endregion
