package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingDetails is the recipient snapshot frozen onto an order at
// placement time. Stored as JSONB; later edits to the source address must
// never alter it.
type ShippingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	County  string `json:"county,omitempty"`
	Country string `json:"country,omitempty"`
}

// Value serializes the details to JSON.
func (s ShippingDetails) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan decodes JSONB into the details struct.
func (s *ShippingDetails) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingDetails{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, s)
}

// VariantOptions captures the chosen variant axes on a cart or order line,
// e.g. {"size": "M", "color": "black"}. Stored as JSONB.
type VariantOptions map[string]string

// Value serializes the options to JSON.
func (v VariantOptions) Value() (driver.Value, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// Scan decodes JSONB into the options map.
func (v *VariantOptions) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded VariantOptions
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*v = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch typed := value.(type) {
	case []byte:
		return typed, nil
	case string:
		return []byte(typed), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb scan type %T", value)
	}
}
