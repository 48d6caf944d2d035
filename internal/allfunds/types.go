package allfunds

import "encoding/json"

// Payload is one raw JSON object from the API. Numbers are json.Number.
type Payload map[string]any

// Envelope is the outer shape shared by every endpoint.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// CatalogData is the data object of GET /funds/catalog.
type CatalogData struct {
	Funds []Payload `json:"funds"`
}
