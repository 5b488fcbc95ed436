package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shivavenkatesh/segmenta/pkg/chunking"
)

// encodeMetadata returns nil for empty metadata so the column stays NULL.
func encodeMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return m, nil
}

func encodeParts(parts []chunking.TextPart) (any, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parts: %w", err)
	}
	return string(b), nil
}

func decodeParts(s sql.NullString) ([]chunking.TextPart, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var parts []chunking.TextPart
	if err := json.Unmarshal([]byte(s.String), &parts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parts: %w", err)
	}
	return parts, nil
}
