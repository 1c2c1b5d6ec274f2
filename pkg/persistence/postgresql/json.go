package postgresql

import (
	"encoding/json"
	"fmt"
)

// marshalJSON encodes a value for a JSONB column, mapping nil to SQL NULL.
func marshalJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONB value: %w", err)
	}

	return data, nil
}

// unmarshalJSON decodes a JSONB column into target, treating NULL as empty.
func unmarshalJSON(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB value: %w", err)
	}

	return nil
}
