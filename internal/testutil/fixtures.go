// Package testutil holds funnel fixtures shared by package tests.
package testutil

import (
	"encoding/json"

	"github.com/boron/funnel-service/internal/funnel"
)

const FunnelID = "550e8400-e29b-41d4-a716-446655440000"

// FullFunnelJSON uses every catalog tag and passes every best-practice rule.
const FullFunnelJSON = `{
  "id": "550e8400-e29b-41d4-a716-446655440000",
  "name": "Complete Funnel",
  "product": {"title": "Glow Serum", "description": "Vitamin C serum", "price": 39.99, "currency": "USD"},
  "blocks": [
    {"id": "banner-1", "type": "Banner", "props": {"content": "Free shipping today", "background": "#111827", "textColor": "#ffffff", "dismissible": true}},
    {"id": "callout-1", "type": "Callout", "props": {"title": "Glow in 7 days", "subtitle": "Clinically tested", "icon": "sparkles"}},
    {"id": "images-1", "type": "ProductImageCarousel", "props": {"images": [{"src": "https://cdn.example.com/a.jpg", "alt": "Front"}, {"src": "https://cdn.example.com/b.jpg", "alt": "Back"}], "zoomEnabled": true}},
    {"id": "text-1", "type": "Text", "props": {"content": "Our best seller.", "size": "lg"}},
    {"id": "variant-1", "type": "VariantSelector", "props": {"label": "Size", "options": [{"label": "30ml", "value": "30"}, {"label": "60ml", "value": "60", "priceDiff": 15, "badge": "Best value"}], "defaultValue": "60"}},
    {"id": "cta-1", "type": "AddToCartButton", "props": {"text": "Add to cart", "link": "/cart/add/1", "subtext": "30-day guarantee"}},
    {"id": "reviews-1", "type": "Reviews", "props": {"items": [{"name": "Ana", "quote": "Love it", "stars": 5, "verified": true}, {"name": "Bo", "quote": "Nice", "stars": 4}], "layout": "carousel"}},
    {"id": "icons-1", "type": "IconGroup", "props": {"icons": [{"label": "Vegan", "src": "leaf"}, {"label": "Cruelty free", "src": "rabbit"}], "layout": "grid"}},
    {"id": "media-1", "type": "Media", "props": {"src": "https://cdn.example.com/demo.mp4", "type": "video", "caption": "How to apply"}},
    {"id": "gallery-1", "type": "MediaCarousel", "props": {"media": [{"type": "image", "src": "https://cdn.example.com/c.jpg", "alt": "Texture"}]}},
    {"id": "grid-1", "type": "ProductGrid", "props": {"products": [{"title": "Toner", "image": "https://cdn.example.com/t.jpg", "price": 19, "url": "/p/toner"}, {"title": "Cream", "image": "https://cdn.example.com/cr.jpg", "price": 25, "url": "/p/cream", "badge": "New"}], "columns": 3}},
    {"id": "faq-1", "type": "Accordions", "props": {"sections": [{"title": "Is it safe?", "content": "Yes."}, {"title": "Shipping?", "content": "2-4 days."}]}},
    {"id": "cta-2", "type": "AddToCartButton", "props": {"text": "Buy now", "link": "/cart/add/1", "variant": "secondary", "size": "md"}},
    {"id": "upsell-1", "type": "UpsellCarousel", "props": {"title": "Complete the routine", "products": [{"title": "Mask", "image": "https://cdn.example.com/m.jpg", "price": 29, "url": "/p/mask"}]}}
  ]
}`

// ScenarioJSON is the smallest valid funnel: a single CTA block, keyed with "tag".
const ScenarioJSON = `{
  "id": "550e8400-e29b-41d4-a716-446655440000",
  "name": "Test",
  "product": {"title": "T", "description": "D", "price": 9.99, "currency": "USD"},
  "blocks": [{"id": "b1", "tag": "AddToCartButton", "props": {"text": "Buy", "link": "#"}}]
}`

// Raw decodes s into a generic JSON value, panicking on malformed input.
func Raw(s string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		panic(err)
	}
	return out
}

// Blocks builds a document from the given blocks with fixed identity and product.
func Blocks(blocks ...funnel.Block) *funnel.Document {
	return &funnel.Document{
		ID:      FunnelID,
		Name:    "Fixture",
		Product: funnel.Product{Title: "T", Description: "D", Price: 9.99, Currency: funnel.DefaultCurrency},
		Blocks:  blocks,
	}
}

func Callout(id string) funnel.Block {
	return funnel.Block{ID: id, Type: funnel.TagCallout, Props: &funnel.CalloutProps{Title: "Hello", Subtitle: "World", Align: "center"}}
}

func Text(id, content string) funnel.Block {
	return funnel.Block{ID: id, Type: funnel.TagText, Props: &funnel.TextProps{Content: content, Align: "left", Size: "base"}}
}

func CTA(id string) funnel.Block {
	return funnel.Block{ID: id, Type: funnel.TagAddToCartButton, Props: &funnel.AddToCartButtonProps{Text: "Buy", Link: "#", Variant: "primary", Size: "lg"}}
}

func Reviews(id string) funnel.Block {
	return funnel.Block{ID: id, Type: funnel.TagReviews, Props: &funnel.ReviewsProps{
		Items:  []funnel.ReviewItem{{Name: "Ana", Quote: "Great", Stars: 5}},
		Layout: "stacked",
	}}
}

func FAQ(id string) funnel.Block {
	return funnel.Block{ID: id, Type: funnel.TagAccordions, Props: &funnel.AccordionsProps{
		Sections: []funnel.AccordionSection{{Title: "Q", Content: "A"}},
	}}
}

// Unknown builds a block whose tag is outside the catalog.
func Unknown(id string) funnel.Block {
	return funnel.Block{ID: id, Type: "UnknownBlockType", Props: funnel.RawProps{"foo": "bar"}}
}
