package service

import (
	"github.com/quillsign/quillsign/backend/model"
)

// ExportEntry is one positioned value handed to the rendering collaborator,
// which converts the percentage geometry back into the document's native
// coordinate space.
type ExportEntry struct {
	Page   int             `json:"page"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Type   model.FieldType `json:"type"`
	Value  string          `json:"value"`
}

// ResolveValues unifies the two differently-keyed value sources against the
// authoritative field list. Owner values are keyed by field id and applied
// first; submission values are keyed by field label and matched to the
// first field (in stored order) carrying that label. A submission value
// whose label matches no field is dropped. The result maps field id to the
// final value.
func ResolveValues(fields []model.Field, ownerValues map[string]string, submission *model.Submission) map[string]string {
	resolved := make(map[string]string)

	for id, value := range ownerValues {
		resolved[id] = value
	}

	if submission != nil {
		matched := make(map[string]bool)
		for _, f := range fields {
			if matched[f.Label] {
				continue
			}
			if value, ok := submission.FieldValues[f.Label]; ok {
				resolved[f.ID] = value
				matched[f.Label] = true
			}
		}
	}

	return resolved
}

// BuildExportEntries produces one entry per field, resolved value attached
// where present; fields without a value render empty. Pure and idempotent:
// repeated exports over the same inputs build the same payload.
func BuildExportEntries(fields []model.Field, resolved map[string]string) []ExportEntry {
	entries := make([]ExportEntry, 0, len(fields))
	for _, f := range fields {
		entries = append(entries, ExportEntry{
			Page:   f.PageNumber,
			X:      f.X,
			Y:      f.Y,
			Width:  f.Width,
			Height: f.Height,
			Type:   f.Type,
			Value:  resolved[f.ID],
		})
	}
	return entries
}
