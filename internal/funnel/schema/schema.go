// Package schema validates untrusted funnel input against the block catalog.
// It is the only way a value from an external producer becomes a
// funnel.Document.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/google/uuid"
)

var knownTags = funnel.Tags()

// Result is the outcome of the safe entry points. Document is set iff Issues is empty.
type Result struct {
	Document *funnel.Document
	Issues   []Issue
}

func (r Result) OK() bool { return len(r.Issues) == 0 && r.Document != nil }

// Err returns the issues as a *ValidationError, or nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Issues: r.Issues}
}

// Validate checks raw and returns either a typed, defaulted document or the
// list of issues. raw may be any JSON-compatible value, raw JSON bytes or a
// funnel.Document. It never panics on malformed input and never mutates raw.
func Validate(raw any) Result {
	v, issue := normalize(raw)
	if issue != nil {
		return Result{Issues: []Issue{*issue}}
	}
	doc, issues := checkDocument(v)
	if len(issues) > 0 {
		return Result{Issues: issues}
	}
	return Result{Document: doc}
}

// Parse is the failing variant of Validate; the error is a *ValidationError.
func Parse(raw any) (*funnel.Document, error) {
	r := Validate(raw)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.Document, nil
}

// MustParse is Parse for inputs known to be valid; it panics otherwise.
func MustParse(raw any) *funnel.Document {
	doc, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return doc
}

func ValidateJSON(b []byte) Result { return Validate(json.RawMessage(b)) }

func ParseJSON(b []byte) (*funnel.Document, error) { return Parse(json.RawMessage(b)) }

// ValidateBlock checks a single block value, as inserted by an editor.
func ValidateBlock(raw any) (funnel.Block, []Issue) {
	v, issue := normalize(raw)
	if issue != nil {
		return funnel.Block{}, []Issue{*issue}
	}
	tag, issues := checkBlockEnvelope("", v)
	if len(issues) > 0 {
		return funnel.Block{}, issues
	}
	return checkBlockProps("", v.(map[string]any), tag)
}

// ValidateProps checks a complete payload for tag.
func ValidateProps(tag funnel.Tag, raw any) (funnel.Props, []Issue) {
	if !tag.Known() {
		return nil, []Issue{unknownTag("type", string(tag))}
	}
	v, issue := normalize(raw)
	if issue != nil {
		return nil, []Issue{*issue}
	}
	return decodeProps("", tag, v)
}

// normalize turns any accepted input into the generic JSON value space
// (map[string]any, []any, string, float64, bool, nil). It always copies.
func normalize(raw any) (any, *Issue) {
	var data []byte
	switch r := raw.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		data = r
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, &Issue{Message: "input is not JSON-compatible: " + err.Error()}
		}
		data = b
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &Issue{Message: "malformed JSON: " + err.Error()}
	}
	return v, nil
}

func checkDocument(v any) (*funnel.Document, []Issue) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, []Issue{typeIssue("", "object", v)}
	}
	var issues []Issue
	doc := &funnel.Document{}

	switch id, present := obj["id"]; {
	case !present:
		issues = append(issues, Issue{Path: "id", Message: "required"})
	default:
		s, ok := id.(string)
		switch {
		case !ok:
			issues = append(issues, typeIssue("id", "string", id))
		case !isUUID(s):
			issues = append(issues, Issue{Path: "id", Message: "must be a valid UUID"})
		default:
			doc.ID = s
		}
	}

	switch name, present := obj["name"]; {
	case !present:
		issues = append(issues, Issue{Path: "name", Message: "required"})
	default:
		s, ok := name.(string)
		switch {
		case !ok:
			issues = append(issues, typeIssue("name", "string", name))
		case s == "":
			issues = append(issues, Issue{Path: "name", Message: "must not be empty"})
		default:
			doc.Name = s
		}
	}

	if p, present := obj["product"]; !present {
		issues = append(issues, Issue{Path: "product", Message: "required"})
	} else {
		product, pi := checkProduct(p)
		issues = append(issues, pi...)
		doc.Product = product
	}

	blocks, bi := checkBlocks(obj)
	issues = append(issues, bi...)
	doc.Blocks = blocks

	issues = append(issues, unknownKeys("", obj, map[string]bool{"id": true, "name": true, "product": true, "blocks": true})...)
	if len(issues) > 0 {
		return nil, issues
	}
	return doc, nil
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func checkProduct(v any) (funnel.Product, []Issue) {
	var p funnel.Product
	if issues := checkShape("product", v, reflect.TypeOf(p)); len(issues) > 0 {
		return p, issues
	}
	obj := v.(map[string]any)
	if err := remarshal(obj, &p); err != nil {
		return p, []Issue{{Path: "product", Message: err.Error()}}
	}
	if _, present := obj["currency"]; !present {
		p.Currency = funnel.DefaultCurrency
	}
	return p, checkConstraints("product", &p)
}

func checkBlocks(obj map[string]any) ([]funnel.Block, []Issue) {
	raw, present := obj["blocks"]
	if !present {
		return nil, []Issue{{Path: "blocks", Message: "required"}}
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, []Issue{typeIssue("blocks", "array", raw)}
	}
	if len(arr) == 0 {
		return nil, []Issue{{Path: "blocks", Message: "must contain at least 1 block"}}
	}

	// Envelopes and tags first, then payloads of blocks whose tag is known.
	var issues []Issue
	tags := make([]funnel.Tag, len(arr))
	okEnvelope := make([]bool, len(arr))
	for i, b := range arr {
		tag, bi := checkBlockEnvelope(index("blocks", i), b)
		issues = append(issues, bi...)
		tags[i] = tag
		okEnvelope[i] = len(bi) == 0
	}
	blocks := make([]funnel.Block, len(arr))
	for i, b := range arr {
		if tags[i] == "" {
			continue
		}
		blk, bi := checkBlockProps(index("blocks", i), b.(map[string]any), tags[i])
		issues = append(issues, bi...)
		blocks[i] = blk
	}
	for _, ok := range okEnvelope {
		if !ok {
			return nil, issues
		}
	}
	return blocks, issues
}

// checkBlockEnvelope validates id and discriminator. It returns the tag when
// it is a catalog member, even if the id has problems, so that payload checks
// can still run.
func checkBlockEnvelope(path string, v any) (funnel.Tag, []Issue) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", []Issue{typeIssue(path, "object", v)}
	}
	var issues []Issue
	switch id, present := obj["id"]; {
	case !present:
		issues = append(issues, Issue{Path: join(path, "id"), Message: "required"})
	default:
		s, ok := id.(string)
		if !ok {
			issues = append(issues, typeIssue(join(path, "id"), "string", id))
		} else if s == "" {
			issues = append(issues, Issue{Path: join(path, "id"), Message: "must not be empty"})
		}
	}

	var tag funnel.Tag
	typ, hasType := obj["type"]
	alias, hasTag := obj["tag"]
	discKey, disc := "type", typ
	if !hasType && hasTag {
		discKey, disc = "tag", alias
	}
	switch {
	case !hasType && !hasTag:
		issues = append(issues, Issue{Path: join(path, "type"), Message: "required"})
	case hasType && hasTag && !reflect.DeepEqual(typ, alias):
		issues = append(issues, Issue{Path: join(path, "tag"), Message: "conflicts with type"})
	default:
		s, ok := disc.(string)
		switch {
		case !ok:
			issues = append(issues, typeIssue(join(path, discKey), "string", disc))
		case !funnel.Tag(s).Known():
			issues = append(issues, unknownTag(join(path, discKey), s))
		default:
			tag = funnel.Tag(s)
		}
	}

	if _, present := obj["props"]; !present {
		issues = append(issues, Issue{Path: join(path, "props"), Message: "required"})
	}
	issues = append(issues, unknownKeys(path, obj, map[string]bool{"id": true, "type": true, "tag": true, "props": true})...)
	return tag, issues
}

func unknownTag(path, tag string) Issue {
	return Issue{Path: path, Message: fmt.Sprintf("unknown block type %q; expected one of: %s", tag, tagList())}
}

func checkBlockProps(path string, obj map[string]any, tag funnel.Tag) (funnel.Block, []Issue) {
	id, _ := obj["id"].(string)
	raw, present := obj["props"]
	if !present {
		return funnel.Block{}, nil
	}
	props, issues := decodeProps(join(path, "props"), tag, raw)
	if len(issues) > 0 {
		return funnel.Block{}, issues
	}
	return funnel.Block{ID: id, Type: tag, Props: props}, nil
}

func decodeProps(path string, tag funnel.Tag, raw any) (funnel.Props, []Issue) {
	p, _ := funnel.NewProps(tag)
	if issues := checkShape(path, raw, reflect.TypeOf(p)); len(issues) > 0 {
		return nil, issues
	}
	if err := remarshal(raw, p); err != nil {
		return nil, []Issue{{Path: path, Message: err.Error()}}
	}
	if d, ok := p.(funnel.Defaulter); ok {
		d.ApplyDefaults()
	}
	if issues := checkConstraints(path, p); len(issues) > 0 {
		return nil, issues
	}
	return p, nil
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
