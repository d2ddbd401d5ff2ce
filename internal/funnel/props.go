package funnel

// Props is the payload of a block. The set of implementations is closed: one
// pointer type per catalog tag plus RawProps for tags this build does not know.
type Props interface {
	BlockTag() Tag
	isProps()
}

// Defaulter is implemented by payloads whose optional fields carry catalog defaults.
type Defaulter interface {
	ApplyDefaults()
}

type BannerProps struct {
	Content     string `json:"content" validate:"required"`
	Background  string `json:"background" validate:"required"`
	TextColor   string `json:"textColor" validate:"required"`
	Dismissible *bool  `json:"dismissible,omitempty"`
}

type CalloutProps struct {
	Title    string `json:"title" validate:"required"`
	Subtitle string `json:"subtitle" validate:"required"`
	Icon     string `json:"icon,omitempty"`
	Align    string `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
}

func (p *CalloutProps) ApplyDefaults() {
	if p.Align == "" {
		p.Align = "center"
	}
}

type TextProps struct {
	Content string `json:"content" validate:"required"`
	Align   string `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
	Size    string `json:"size,omitempty" validate:"omitempty,oneof=sm base lg"`
}

func (p *TextProps) ApplyDefaults() {
	if p.Align == "" {
		p.Align = "left"
	}
	if p.Size == "" {
		p.Size = "base"
	}
}

type ReviewItem struct {
	Name  string `json:"name" validate:"required"`
	Quote string `json:"quote" validate:"required"`
	// Stars may be fractional, e.g. 4.5.
	Stars    float64 `json:"stars" validate:"gte=1,lte=5"`
	Verified *bool   `json:"verified,omitempty"`
}

type ReviewsProps struct {
	Items  []ReviewItem `json:"items" validate:"required,min=1,dive"`
	Layout string       `json:"layout,omitempty" validate:"omitempty,oneof=stacked carousel"`
}

func (p *ReviewsProps) ApplyDefaults() {
	if p.Layout == "" {
		p.Layout = "stacked"
	}
}

type IconItem struct {
	Label string `json:"label" validate:"required"`
	Src   string `json:"src" validate:"required"`
}

type IconGroupProps struct {
	Icons  []IconItem `json:"icons" validate:"required,min=1,dive"`
	Layout string     `json:"layout,omitempty" validate:"omitempty,oneof=horizontal grid"`
}

func (p *IconGroupProps) ApplyDefaults() {
	if p.Layout == "" {
		p.Layout = "horizontal"
	}
}

type MediaProps struct {
	Src     string `json:"src" validate:"required,url"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
	Type    string `json:"type" validate:"required,oneof=image video"`
}

type MediaItem struct {
	Type string `json:"type" validate:"required,oneof=image video"`
	Src  string `json:"src" validate:"required,url"`
	Alt  string `json:"alt,omitempty"`
}

type MediaCarouselProps struct {
	Media    []MediaItem `json:"media" validate:"required,min=1,dive"`
	Autoplay bool        `json:"autoplay"`
}

type AccordionSection struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type AccordionsProps struct {
	Sections []AccordionSection `json:"sections" validate:"required,min=1,dive"`
}

// ProductItem is a product card shared by ProductGrid and UpsellCarousel.
type ProductItem struct {
	Title string  `json:"title" validate:"required"`
	Image string  `json:"image" validate:"required,url"`
	Price float64 `json:"price" validate:"gt=0"`
	URL   string  `json:"url" validate:"required"`
	Badge string  `json:"badge,omitempty"`
}

type ProductGridProps struct {
	Products []ProductItem `json:"products" validate:"required,min=1,dive"`
	Columns  int           `json:"columns,omitempty" validate:"omitempty,oneof=2 3 4"`
}

func (p *ProductGridProps) ApplyDefaults() {
	if p.Columns == 0 {
		p.Columns = 2
	}
}

type VariantOption struct {
	Label     string   `json:"label" validate:"required"`
	Value     string   `json:"value" validate:"required"`
	PriceDiff *float64 `json:"priceDiff,omitempty"`
	Badge     string   `json:"badge,omitempty"`
}

type VariantSelectorProps struct {
	Label        string          `json:"label" validate:"required"`
	Options      []VariantOption `json:"options" validate:"required,min=1,dive"`
	DefaultValue string          `json:"defaultValue,omitempty"`
}

// Selected returns the value that starts out selected.
func (p *VariantSelectorProps) Selected() string {
	if p.DefaultValue != "" {
		return p.DefaultValue
	}
	if len(p.Options) > 0 {
		return p.Options[0].Value
	}
	return ""
}

type ProductImage struct {
	Src string `json:"src" validate:"required,url"`
	Alt string `json:"alt" validate:"required"`
}

type ProductImageCarouselProps struct {
	Images      []ProductImage `json:"images" validate:"required,min=1,dive"`
	ZoomEnabled bool           `json:"zoomEnabled"`
}

type AddToCartButtonProps struct {
	Text    string `json:"text" validate:"required"`
	Link    string `json:"link" validate:"required"`
	Variant string `json:"variant,omitempty" validate:"omitempty,oneof=primary secondary"`
	Size    string `json:"size,omitempty" validate:"omitempty,oneof=sm md lg"`
	Subtext string `json:"subtext,omitempty"`
}

func (p *AddToCartButtonProps) ApplyDefaults() {
	if p.Variant == "" {
		p.Variant = "primary"
	}
	if p.Size == "" {
		p.Size = "lg"
	}
}

type UpsellCarouselProps struct {
	Title    string        `json:"title,omitempty"`
	Products []ProductItem `json:"products" validate:"required,min=1,dive"`
}

// RawProps carries the payload of a block whose tag is not in the catalog.
// It never passes validation; it exists so such blocks survive decoding of
// trusted data and can be rendered as placeholders.
type RawProps map[string]any

func (*BannerProps) BlockTag() Tag               { return TagBanner }
func (*CalloutProps) BlockTag() Tag              { return TagCallout }
func (*TextProps) BlockTag() Tag                 { return TagText }
func (*ReviewsProps) BlockTag() Tag              { return TagReviews }
func (*IconGroupProps) BlockTag() Tag            { return TagIconGroup }
func (*MediaProps) BlockTag() Tag                { return TagMedia }
func (*MediaCarouselProps) BlockTag() Tag        { return TagMediaCarousel }
func (*AccordionsProps) BlockTag() Tag           { return TagAccordions }
func (*ProductGridProps) BlockTag() Tag          { return TagProductGrid }
func (*VariantSelectorProps) BlockTag() Tag      { return TagVariantSelector }
func (*ProductImageCarouselProps) BlockTag() Tag { return TagProductImageCarousel }
func (*AddToCartButtonProps) BlockTag() Tag      { return TagAddToCartButton }
func (*UpsellCarouselProps) BlockTag() Tag       { return TagUpsellCarousel }
func (RawProps) BlockTag() Tag                   { return "" }

func (*BannerProps) isProps()               {}
func (*CalloutProps) isProps()              {}
func (*TextProps) isProps()                 {}
func (*ReviewsProps) isProps()              {}
func (*IconGroupProps) isProps()            {}
func (*MediaProps) isProps()                {}
func (*MediaCarouselProps) isProps()        {}
func (*AccordionsProps) isProps()           {}
func (*ProductGridProps) isProps()          {}
func (*VariantSelectorProps) isProps()      {}
func (*ProductImageCarouselProps) isProps() {}
func (*AddToCartButtonProps) isProps()      {}
func (*UpsellCarouselProps) isProps()       {}
func (RawProps) isProps()                   {}
