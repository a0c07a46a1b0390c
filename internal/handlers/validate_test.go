// internal/handlers/validate_test.go
package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skatebattle/skate/internal/models"
)

func TestValidateTrickName(t *testing.T) {
	assert.NoError(t, validateTrickName("kickflip"))
	assert.NoError(t, validateTrickName("  360 flip  "))
	assert.Error(t, validateTrickName(""))
	assert.Error(t, validateTrickName("   "))
	assert.Error(t, validateTrickName(strings.Repeat("x", maxTrickNameLen+1)))
}

func TestValidateClip(t *testing.T) {
	assert.NoError(t, validateClip(nil), "clipless submissions are the synchronous variant")

	valid := &models.Clip{
		ClipID:       "clip-1",
		DurationMS:   15000,
		ThumbnailURL: "https://cdn.example.com/t.jpg",
		Description:  "first try",
	}
	assert.NoError(t, validateClip(valid))

	cases := map[string]models.Clip{
		"missing id":        {DurationMS: 1000},
		"zero duration":     {ClipID: "c", DurationMS: 0},
		"negative duration": {ClipID: "c", DurationMS: -5},
		"too long":          {ClipID: "c", DurationMS: maxClipDurationMS + 1},
		"huge description":  {ClipID: "c", DurationMS: 1000, Description: strings.Repeat("a", maxClipDescriptionLen+1)},
		"relative thumb":    {ClipID: "c", DurationMS: 1000, ThumbnailURL: "/t.jpg"},
		"bad scheme":        {ClipID: "c", DurationMS: 1000, ThumbnailURL: "ftp://x/t.jpg"},
	}
	for name, clip := range cases {
		c := clip
		assert.Error(t, validateClip(&c), name)
	}
}
