package cmd

import (
	"testing"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	got, err := parseCategory("SCANSAN_PROPERTY")
	require.NoError(t, err)
	assert.Equal(t, schema.PropertyCategory, got)

	got, err = parseCategory("video_url")
	require.NoError(t, err)
	assert.Equal(t, schema.VideoURLCategory, got)

	_, err = parseCategory("weather")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
