package models

import "time"

// Category represents a product category, optionally nested under a parent
type Category struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	ParentName string    `json:"parent_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
