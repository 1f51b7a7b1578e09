package model

import "fmt"

// FieldType enumerates the supported annotation kinds.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldDate      FieldType = "date"
	FieldSignature FieldType = "signature"
)

// SignerParty identifies which side of the contract fills a field.
type SignerParty string

const (
	PartyOwner        SignerParty = "owner"
	PartyCounterparty SignerParty = "counterparty"
)

// Default field sizes in percent of page dimensions. Signature boxes get
// more room than typed fields.
const (
	DefaultTextWidth       = 16.0
	DefaultTextHeight      = 4.0
	DefaultSignatureWidth  = 22.0
	DefaultSignatureHeight = 8.0
)

// Field is a positioned annotation slot on one page of a contract document.
// X, Y, Width and Height are percentages of the page's rendered dimensions,
// so the same field renders correctly at any zoom level.
type Field struct {
	ID           string      `json:"id"`
	ContractID   string      `json:"contract_id"`
	Type         FieldType   `json:"type"`
	Label        string      `json:"label"`
	PageNumber   int         `json:"page_number"`
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	SignerParty  SignerParty `json:"signer_party"`
	DisplayOrder int         `json:"display_order"`
}

// DefaultSize returns the placement size for a freshly placed field of the
// given type.
func DefaultSize(t FieldType) (width, height float64) {
	if t == FieldSignature {
		return DefaultSignatureWidth, DefaultSignatureHeight
	}
	return DefaultTextWidth, DefaultTextHeight
}

// Clamp forces the field back inside the page bounds: 0 ≤ x ≤ 100-width and
// 0 ≤ y ≤ 100-height. Oversized fields are first clipped to the page.
func (f *Field) Clamp() {
	f.Width = clampFloat(f.Width, 0, 100)
	f.Height = clampFloat(f.Height, 0, 100)
	f.X = clampFloat(f.X, 0, 100-f.Width)
	f.Y = clampFloat(f.Y, 0, 100-f.Height)
}

// InBounds reports whether the field satisfies the page-bounds invariant.
func (f *Field) InBounds() bool {
	return f.X >= 0 && f.Y >= 0 && f.X+f.Width <= 100 && f.Y+f.Height <= 100
}

// PixelRect converts the field's percentage geometry into pixel space for
// the given rendered page rect.
func (f *Field) PixelRect(page Rect) Rect {
	return Rect{
		Left:   page.Left + f.X/100*page.Width,
		Top:    page.Top + f.Y/100*page.Height,
		Width:  f.Width / 100 * page.Width,
		Height: f.Height / 100 * page.Height,
	}
}

// PlaceAt positions the field centered on the given percentage point,
// clamped to the page.
func (f *Field) PlaceAt(p PercentPoint) {
	f.X = p.X - f.Width/2
	f.Y = p.Y - f.Height/2
	f.Clamp()
}

// Validate checks type, party and page number. Geometry is clamped rather
// than rejected, so it is not part of validation.
func (f *Field) Validate() error {
	switch f.Type {
	case FieldText, FieldDate, FieldSignature:
	default:
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	switch f.SignerParty {
	case PartyOwner, PartyCounterparty:
	default:
		return fmt.Errorf("unknown signer party %q", f.SignerParty)
	}
	if f.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", f.PageNumber)
	}
	return nil
}

// DuplicateLabels returns labels shared by more than one field, in first
// appearance order. Duplicate labels make counterparty submissions, which
// correlate by label, ambiguous.
func DuplicateLabels(fields []Field) []string {
	seen := make(map[string]int)
	var dups []string
	for _, f := range fields {
		seen[f.Label]++
		if seen[f.Label] == 2 {
			dups = append(dups, f.Label)
		}
	}
	return dups
}
