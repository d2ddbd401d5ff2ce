package funnel

// Tag names one block variant in the catalog.
type Tag string

const (
	TagBanner               Tag = "Banner"
	TagCallout              Tag = "Callout"
	TagText                 Tag = "Text"
	TagReviews              Tag = "Reviews"
	TagIconGroup            Tag = "IconGroup"
	TagMedia                Tag = "Media"
	TagMediaCarousel        Tag = "MediaCarousel"
	TagAccordions           Tag = "Accordions"
	TagProductGrid          Tag = "ProductGrid"
	TagVariantSelector      Tag = "VariantSelector"
	TagProductImageCarousel Tag = "ProductImageCarousel"
	TagAddToCartButton      Tag = "AddToCartButton"
	TagUpsellCarousel       Tag = "UpsellCarousel"
)

var catalog = []Tag{
	TagBanner,
	TagCallout,
	TagText,
	TagReviews,
	TagIconGroup,
	TagMedia,
	TagMediaCarousel,
	TagAccordions,
	TagProductGrid,
	TagVariantSelector,
	TagProductImageCarousel,
	TagAddToCartButton,
	TagUpsellCarousel,
}

// Tags returns the closed set of block tags in catalog order.
func Tags() []Tag {
	out := make([]Tag, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether t is a catalog tag.
func (t Tag) Known() bool {
	_, ok := NewProps(t)
	return ok
}

func (t Tag) String() string { return string(t) }

// NewProps returns an empty typed payload for t. ok is false for tags outside
// the catalog. Adding a block kind means adding a case here.
func NewProps(t Tag) (p Props, ok bool) {
	switch t {
	case TagBanner:
		return &BannerProps{}, true
	case TagCallout:
		return &CalloutProps{}, true
	case TagText:
		return &TextProps{}, true
	case TagReviews:
		return &ReviewsProps{}, true
	case TagIconGroup:
		return &IconGroupProps{}, true
	case TagMedia:
		return &MediaProps{}, true
	case TagMediaCarousel:
		return &MediaCarouselProps{}, true
	case TagAccordions:
		return &AccordionsProps{}, true
	case TagProductGrid:
		return &ProductGridProps{}, true
	case TagVariantSelector:
		return &VariantSelectorProps{}, true
	case TagProductImageCarousel:
		return &ProductImageCarouselProps{}, true
	case TagAddToCartButton:
		return &AddToCartButtonProps{}, true
	case TagUpsellCarousel:
		return &UpsellCarouselProps{}, true
	}
	return nil, false
}

// IsOpening reports whether t is an accepted first block of a funnel.
func (t Tag) IsOpening() bool {
	for _, o := range OpeningTags {
		if o == t {
			return true
		}
	}
	return false
}

// OpeningTags are the tags a funnel is expected to start with.
var OpeningTags = []Tag{TagCallout, TagBanner, TagProductImageCarousel}
