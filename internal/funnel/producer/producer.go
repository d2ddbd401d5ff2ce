// Package producer is the boundary between free-text model completions and
// the document store: extract JSON, validate it, and only then store it.
package producer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/funnel/rules"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/boron/funnel-service/pkg/metrics"
)

var ErrNoJSON = errors.New("no json code fence in completion")

const (
	WarnNoFunnel      = "AI did not return a funnel. Try rephrasing your request."
	WarnMalformedJSON = "AI returned malformed JSON. Try again."
	WarnInvalidFunnel = "AI returned a funnel that failed validation. Try rephrasing your request."
)

var fence = regexp.MustCompile("(?s)```json[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// ExtractJSON returns the body of the first ```json fenced block in text.
func ExtractJSON(text string) ([]byte, error) {
	m := fence.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoJSON
	}
	return []byte(m[1]), nil
}

// ExtractFunnel parses the first fenced JSON block and unwraps a top-level
// {"funnel": ...} envelope when present.
func ExtractFunnel(text string) (any, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse completion json: %w", err)
	}
	if obj, ok := v.(map[string]any); ok {
		if inner, ok := obj["funnel"]; ok {
			return inner, nil
		}
	}
	return v, nil
}

// DocumentSetter receives validated documents.
type DocumentSetter interface {
	SetDocument(doc *funnel.Document)
}

// Outcome describes what happened to one completion. Failures are data: the
// caller reports them to the user instead of erroring.
type Outcome struct {
	Produced   bool             `json:"produced"`
	Message    string           `json:"message,omitempty"`
	Document   *funnel.Document `json:"funnel"`
	Validation *rules.Report    `json:"validation,omitempty"`
	Issues     []schema.Issue   `json:"issues,omitempty"`
	Warning    string           `json:"warning,omitempty"`
}

// Ingest runs a completion through extraction and validation. Only a valid
// document reaches dst; it is then linted with eng.
func Ingest(dst DocumentSetter, eng *rules.Engine, completion string) Outcome {
	v, err := ExtractFunnel(completion)
	switch {
	case errors.Is(err, ErrNoJSON):
		metrics.FunnelsIngested.WithLabelValues("no_json").Inc()
		logger.Warnf("producer: no JSON found in completion")
		return Outcome{Message: completion, Warning: WarnNoFunnel}
	case err != nil:
		metrics.FunnelsIngested.WithLabelValues("malformed").Inc()
		logger.Warnf("producer: %v", err)
		return Outcome{Warning: WarnMalformedJSON, Issues: []schema.Issue{{Message: err.Error()}}}
	}

	res := schema.Validate(v)
	if !res.OK() {
		metrics.FunnelsIngested.WithLabelValues("invalid").Inc()
		logger.Warnf("producer: funnel rejected with %d issue(s): %s", len(res.Issues), res.Issues[0])
		return Outcome{Warning: WarnInvalidFunnel, Issues: res.Issues}
	}

	doc := res.Document
	dst.SetDocument(doc)
	if eng == nil {
		eng = rules.Default()
	}
	rep := eng.Lint(doc)
	if !rep.Valid {
		logger.Warnf("producer: funnel %s stored with rule errors: %v", doc.ID, rep.Errors)
	}
	metrics.FunnelsIngested.WithLabelValues("produced").Inc()
	logger.Infof("producer: stored funnel %q with %d blocks", doc.Name, len(doc.Blocks))
	return Outcome{
		Produced:   true,
		Message:    fmt.Sprintf("I've generated your %q funnel with %d blocks!", doc.Name, len(doc.Blocks)),
		Document:   doc,
		Validation: &rep,
	}
}
