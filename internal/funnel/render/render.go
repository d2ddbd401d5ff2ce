// Package render turns funnel documents into HTML by dispatching every block
// to the renderer registered for its tag.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strings"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/boron/funnel-service/pkg/metrics"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.New("funnel").Funcs(template.FuncMap{
	"stars":  stars,
	"deref":  deref,
	"price":  price,
	"signed": signed,
}).ParseFS(templateFS, "templates/*.html"))

// Node is the rendered form of one block. BlockID and Tag let external tools
// map a rendered region back to its source block.
type Node struct {
	BlockID     string        `json:"blockId"`
	Tag         funnel.Tag    `json:"tag"`
	HTML        template.HTML `json:"html"`
	Placeholder bool          `json:"placeholder,omitempty"`
}

// Renderer renders one block payload. It may assume the payload passed validation.
type Renderer func(props funnel.Props) (template.HTML, error)

// Registry maps tags to renderers.
type Registry map[funnel.Tag]Renderer

// DefaultRegistry returns renderers for every catalog tag.
func DefaultRegistry() Registry {
	return Registry{
		funnel.TagBanner:               templated[*funnel.BannerProps](funnel.TagBanner),
		funnel.TagCallout:              templated[*funnel.CalloutProps](funnel.TagCallout),
		funnel.TagText:                 templated[*funnel.TextProps](funnel.TagText),
		funnel.TagReviews:              templated[*funnel.ReviewsProps](funnel.TagReviews),
		funnel.TagIconGroup:            templated[*funnel.IconGroupProps](funnel.TagIconGroup),
		funnel.TagMedia:                templated[*funnel.MediaProps](funnel.TagMedia),
		funnel.TagMediaCarousel:        templated[*funnel.MediaCarouselProps](funnel.TagMediaCarousel),
		funnel.TagAccordions:           templated[*funnel.AccordionsProps](funnel.TagAccordions),
		funnel.TagProductGrid:          templated[*funnel.ProductGridProps](funnel.TagProductGrid),
		funnel.TagVariantSelector:      templated[*funnel.VariantSelectorProps](funnel.TagVariantSelector),
		funnel.TagProductImageCarousel: templated[*funnel.ProductImageCarouselProps](funnel.TagProductImageCarousel),
		funnel.TagAddToCartButton:      templated[*funnel.AddToCartButtonProps](funnel.TagAddToCartButton),
		funnel.TagUpsellCarousel:       templated[*funnel.UpsellCarouselProps](funnel.TagUpsellCarousel),
	}
}

func templated[P funnel.Props](tag funnel.Tag) Renderer {
	return func(props funnel.Props) (template.HTML, error) {
		p, ok := props.(P)
		if !ok {
			return "", fmt.Errorf("%s renderer: unexpected props %T", tag, props)
		}
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, string(tag), p); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil
	}
}

// Pipeline renders documents with a fixed registry. It has no state beyond
// the registry and is safe for concurrent use.
type Pipeline struct {
	registry Registry
}

func NewPipeline(reg Registry) *Pipeline {
	cp := make(Registry, len(reg))
	for k, v := range reg {
		cp[k] = v
	}
	return &Pipeline{registry: cp}
}

var defaultPipeline = NewPipeline(DefaultRegistry())

// Default returns the pipeline over DefaultRegistry.
func Default() *Pipeline { return defaultPipeline }

// Tags returns the registered tags, sorted.
func (p *Pipeline) Tags() []funnel.Tag {
	out := make([]funnel.Tag, 0, len(p.registry))
	for t := range p.registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render returns one node per block in document order. A block without a
// renderer, or whose renderer fails, becomes a placeholder node; rendering
// always continues with the next block.
func (p *Pipeline) Render(doc *funnel.Document) []Node {
	if doc == nil {
		return nil
	}
	nodes := make([]Node, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		nodes = append(nodes, p.renderBlock(b))
	}
	return nodes
}

func (p *Pipeline) renderBlock(b funnel.Block) Node {
	r, ok := p.registry[b.Type]
	if !ok {
		logger.L().Warn("unknown block type", zap.String("tag", string(b.Type)), zap.String("block_id", b.ID))
		metrics.RenderPlaceholders.WithLabelValues("unknown_tag").Inc()
		return placeholder(b)
	}
	html, err := safeCall(r, b.Props)
	if err != nil {
		logger.L().Warn("block render failed", zap.String("tag", string(b.Type)), zap.String("block_id", b.ID), zap.Error(err))
		metrics.RenderPlaceholders.WithLabelValues("render_error").Inc()
		return placeholder(b)
	}
	metrics.RenderedBlocks.WithLabelValues(string(b.Type)).Inc()
	return Node{BlockID: b.ID, Tag: b.Type, HTML: html}
}

func safeCall(r Renderer, props funnel.Props) (html template.HTML, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panic: %v", rec)
		}
	}()
	return r(props)
}

func placeholder(b funnel.Block) Node {
	n := Node{BlockID: b.ID, Tag: b.Type, Placeholder: true}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "placeholder", n); err != nil {
		n.HTML = template.HTML(template.HTMLEscapeString("Unknown block type: " + string(b.Type)))
		return n
	}
	n.HTML = template.HTML(buf.String())
	return n
}

type page struct {
	ID    string
	Name  string
	Nodes []Node
}

// RenderPage renders doc as a standalone HTML page. Every node is wrapped in a
// section carrying data-block-id and data-block-type.
func (p *Pipeline) RenderPage(doc *funnel.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render page: no document")
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", page{ID: doc.ID, Name: doc.Name, Nodes: p.Render(doc)}); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// stars draws a rating rounded to whole stars.
func stars(rating float64) string {
	n := int(math.Round(rating))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func deref(b *bool) bool { return b != nil && *b }

func price(f float64) string { return fmt.Sprintf("%.2f", f) }

// signed formats a price difference; zero and absent render as "".
func signed(d *float64) string {
	if d == nil || *d == 0 {
		return ""
	}
	if *d > 0 {
		return fmt.Sprintf("+$%.2f", *d)
	}
	return fmt.Sprintf("-$%.2f", -*d)
}
