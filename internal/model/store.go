package model

import "encoding/json"

// Store is a physical shop from the `stores` table.  Latitude and Longitude
// are optional; stores without them cannot be ranked by distance.
type Store struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	City         string          `json:"city"`
	Province     string          `json:"province"`
	PostalCode   *string         `json:"postal_code"`
	Phone        *string         `json:"phone"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	OpeningHours json.RawMessage `json:"opening_hours,omitempty"`
	IsActive     bool            `json:"is_active"`
}
