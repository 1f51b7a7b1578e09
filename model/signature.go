package model

import "time"

// SavedSignature is a reusable raster signature owned by an operator. Its
// lifecycle is independent of any contract: applying one copies the raster
// value into the field, so later edits or deletion of the saved signature
// never touch a contract.
type SavedSignature struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Data      string    `json:"data"` // raster image as a data URL
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}
