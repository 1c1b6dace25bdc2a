package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zedexpress/zedexpress-backend/pkg/enums"
)

// JSONMap stores an arbitrary JSON object inside a JSONB column.
type JSONMap map[string]any

// Value serializes the map to JSON. The receiver is a value so the valuer is
// visible on value-typed model fields.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan decodes JSONB into the map.
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded JSONMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*j = decoded
	return nil
}

// NextAction tells the client what to do after a payment confirmation, for
// example wait out a mobile-money push prompt.
type NextAction struct {
	Type         enums.NextActionType `json:"type"`
	Reference    string               `json:"reference,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
}

// Value serializes the next action to JSON.
func (n *NextAction) Value() (driver.Value, error) {
	if n == nil {
		return nil, nil
	}
	return json.Marshal(n)
}

// Scan decodes JSONB into the next action struct.
func (n *NextAction) Scan(value interface{}) error {
	if value == nil {
		*n = NextAction{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, n)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
