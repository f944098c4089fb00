package tags

import "time"

// DefaultColor is applied when a tag is created without one.
const DefaultColor = "#1976d2"

// Tag labels expenses for filtering and reporting.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
