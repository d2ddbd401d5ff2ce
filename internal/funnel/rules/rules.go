// Package rules checks structurally valid funnels against e-commerce best
// practice. Findings are advisory data; nothing here blocks or mutates.
package rules

import (
	"fmt"
	"strings"

	"github.com/boron/funnel-service/internal/funnel"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Finding struct {
	Severity Severity
	Message  string
}

func warn(format string, args ...any) Finding {
	return Finding{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Finding {
	return Finding{Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Rule is a named, pure check over a document.
type Rule struct {
	Name  string
	Check func(doc *funnel.Document) []Finding
}

// Report is the lint result. Valid is true iff Errors is empty.
type Report struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

type Engine struct {
	rules []Rule
}

func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// With returns a new engine with extra rules appended.
func (e *Engine) With(rules ...Rule) *Engine {
	out := make([]Rule, 0, len(e.rules)+len(rules))
	out = append(out, e.rules...)
	return &Engine{rules: append(out, rules...)}
}

// Rules returns the rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

func (e *Engine) Lint(doc *funnel.Document) Report {
	rep := Report{Warnings: []string{}, Errors: []string{}}
	if doc == nil {
		return rep
	}
	for _, r := range e.rules {
		for _, f := range r.Check(doc) {
			switch f.Severity {
			case SeverityError:
				rep.Errors = append(rep.Errors, f.Message)
			default:
				rep.Warnings = append(rep.Warnings, f.Message)
			}
		}
	}
	rep.Valid = len(rep.Errors) == 0
	return rep
}

var defaultEngine = NewEngine(
	CTAPresence,
	CTARedundancy,
	OpeningBlock,
	SocialProofOrder,
	FAQPlacement,
	UniqueIDs,
)

// Default returns the engine with the built-in best-practice rules.
func Default() *Engine { return defaultEngine }

// Lint runs the default rules.
func Lint(doc *funnel.Document) Report { return defaultEngine.Lint(doc) }

var CTAPresence = Rule{
	Name: "cta-presence",
	Check: func(doc *funnel.Document) []Finding {
		if doc.Count(funnel.TagAddToCartButton) == 0 {
			return []Finding{fail("Funnel must include at least one AddToCartButton")}
		}
		return nil
	},
}

var CTARedundancy = Rule{
	Name: "cta-redundancy",
	Check: func(doc *funnel.Document) []Finding {
		// zero CTAs is already an error from cta-presence
		if doc.Count(funnel.TagAddToCartButton) == 1 {
			return []Finding{warn("Best practice: Include 2-3 AddToCartButton blocks throughout funnel")}
		}
		return nil
	},
}

var OpeningBlock = Rule{
	Name: "opening-block",
	Check: func(doc *funnel.Document) []Finding {
		if len(doc.Blocks) == 0 || doc.Blocks[0].Type.IsOpening() {
			return nil
		}
		names := make([]string, len(funnel.OpeningTags))
		for i, t := range funnel.OpeningTags {
			names[i] = string(t)
		}
		return []Finding{warn("First block should be one of: %s. Found: %s", strings.Join(names, ", "), doc.Blocks[0].Type)}
	},
}

var SocialProofOrder = Rule{
	Name: "social-proof-order",
	Check: func(doc *funnel.Document) []Finding {
		reviews, lastCTA := -1, -1
		for i, b := range doc.Blocks {
			switch b.Type {
			case funnel.TagReviews:
				if reviews < 0 {
					reviews = i
				}
			case funnel.TagAddToCartButton:
				lastCTA = i
			}
		}
		if reviews >= 0 && lastCTA >= 0 && reviews > lastCTA {
			return []Finding{warn("Best practice: Place Reviews block before final CTA")}
		}
		return nil
	},
}

var FAQPlacement = Rule{
	Name: "faq-placement",
	Check: func(doc *funnel.Document) []Finding {
		for i, b := range doc.Blocks {
			if b.Type != funnel.TagAccordions {
				continue
			}
			if i < len(doc.Blocks)/2 {
				return []Finding{warn("Best practice: Place Accordions (FAQ) in bottom half of funnel")}
			}
			return nil
		}
		return nil
	},
}

var UniqueIDs = Rule{
	Name: "unique-ids",
	Check: func(doc *funnel.Document) []Finding {
		seen := make(map[string]int, len(doc.Blocks))
		var dups []string
		for _, b := range doc.Blocks {
			seen[b.ID]++
			if seen[b.ID] == 2 {
				dups = append(dups, b.ID)
			}
		}
		if len(dups) == 0 {
			return nil
		}
		return []Finding{fail("Duplicate block IDs found: %s", strings.Join(dups, ", "))}
	},
}
