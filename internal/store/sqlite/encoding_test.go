package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivavenkatesh/segmenta/pkg/chunking"
)

func TestEncodeMetadata(t *testing.T) {
	v, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = encodeMetadata(map[string]string{"lang": "en"})
	require.NoError(t, err)
	assert.Equal(t, `{"lang":"en"}`, v)

	m, err := decodeMetadata(sql.NullString{String: v.(string), Valid: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lang": "en"}, m)
}

func TestDecodeMetadata_Null(t *testing.T) {
	m, err := decodeMetadata(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDecodeMetadata_Corrupt(t *testing.T) {
	_, err := decodeMetadata(sql.NullString{String: "{", Valid: true})
	assert.Error(t, err)
}

func TestEncodeParts(t *testing.T) {
	parts := []chunking.TextPart{{Text: "Hello, ", Size: 2}, {Text: "world", Size: 1}}

	v, err := encodeParts(parts)
	require.NoError(t, err)

	got, err := decodeParts(sql.NullString{String: v.(string), Valid: true})
	require.NoError(t, err)
	assert.Equal(t, parts, got)

	v, err = encodeParts(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
