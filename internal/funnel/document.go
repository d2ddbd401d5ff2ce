package funnel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPatch is returned when merged props no longer fit the block's payload shape.
var ErrInvalidPatch = errors.New("invalid props patch")

// DefaultCurrency is used when a product does not name one.
const DefaultCurrency = "USD"

type Product struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	Currency    string  `json:"currency"`
}

// Block is one tagged content unit. Type is the discriminator; on the wire it
// is "type" ("tag" is accepted on input).
type Block struct {
	ID    string `json:"id"`
	Type  Tag    `json:"type"`
	Props Props  `json:"props"`
}

// Document is a funnel: product metadata plus an ordered list of blocks.
type Document struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Product Product `json:"product"`
	Blocks  []Block `json:"blocks"`
}

type wireBlock struct {
	ID    string          `json:"id"`
	Type  Tag             `json:"type"`
	Tag   Tag             `json:"tag,omitempty"`
	Props json.RawMessage `json:"props"`
}

// UnmarshalJSON decodes a block leniently: unknown tags keep their payload as
// RawProps. Untrusted input goes through the schema package instead.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tag := w.Type
	if tag == "" {
		tag = w.Tag
	}
	b.ID = w.ID
	b.Type = tag
	props, err := DecodeProps(tag, w.Props)
	if err != nil {
		return fmt.Errorf("block %q: %w", w.ID, err)
	}
	b.Props = props
	return nil
}

// DecodeProps decodes raw JSON into the typed payload for tag and applies
// catalog defaults. Tags outside the catalog decode into RawProps.
func DecodeProps(tag Tag, raw json.RawMessage) (Props, error) {
	p, ok := NewProps(tag)
	if !ok {
		rp := RawProps{}
		if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &rp); err != nil {
				return nil, err
			}
		}
		return rp, nil
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
	}
	if d, ok := p.(Defaulter); ok {
		d.ApplyDefaults()
	}
	return p, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{ID: d.ID, Name: d.Name, Product: d.Product}
	if d.Blocks != nil {
		out.Blocks = make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			out.Blocks[i] = b.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	return Block{ID: b.ID, Type: b.Type, Props: cloneProps(b.Type, b.Props)}
}

func cloneProps(tag Tag, p Props) Props {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	if p.BlockTag() != "" {
		tag = p.BlockTag()
	}
	c, err := DecodeProps(tag, raw)
	if err != nil {
		return p
	}
	return c
}

// IndexOf returns the position of the first block with id, or -1.
func (d *Document) IndexOf(id string) int {
	for i := range d.Blocks {
		if d.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Count returns how many blocks carry tag.
func (d *Document) Count(tag Tag) int {
	n := 0
	for i := range d.Blocks {
		if d.Blocks[i].Type == tag {
			n++
		}
	}
	return n
}

// PropsMap converts a payload to its JSON object form.
func PropsMap(p Props) (map[string]any, error) {
	if rp, ok := p.(RawProps); ok {
		out := make(map[string]any, len(rp))
		for k, v := range rp {
			out[k] = v
		}
		return out, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeProps shallow-merges patch into p and returns a new payload of the same
// shape. p is not modified. A patch value of null removes the key.
func MergeProps(tag Tag, p Props, patch map[string]any) (Props, error) {
	base, err := PropsMap(p)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	if _, ok := NewProps(tag); !ok {
		return RawProps(base), nil
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	np, _ := NewProps(tag)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(np); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if d, ok := np.(Defaulter); ok {
		d.ApplyDefaults()
	}
	return np, nil
}
