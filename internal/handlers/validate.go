// internal/handlers/validate.go
package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skatebattle/skate/internal/models"
)

// Shape limits enforced before a command ever reaches the state machine.
// Rejections here are plain 400s; only well-formed commands get a ledger
// entry.
const (
	maxTrickNameLen       = 100
	maxClipDurationMS     = 600_000 // ten minutes
	maxClipDescriptionLen = 500
)

func validateTrickName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("trick name is required")
	}
	if len(trimmed) > maxTrickNameLen {
		return fmt.Errorf("trick name exceeds %d characters", maxTrickNameLen)
	}
	return nil
}

func validateClip(clip *models.Clip) error {
	if clip == nil {
		return nil
	}
	if clip.ClipID == "" {
		return fmt.Errorf("clip_id is required")
	}
	if clip.DurationMS <= 0 {
		return fmt.Errorf("clip duration must be positive")
	}
	if clip.DurationMS > maxClipDurationMS {
		return fmt.Errorf("clip duration exceeds %dms", maxClipDurationMS)
	}
	if len(clip.Description) > maxClipDescriptionLen {
		return fmt.Errorf("clip description exceeds %d characters", maxClipDescriptionLen)
	}
	if clip.ThumbnailURL != "" {
		u, err := url.Parse(clip.ThumbnailURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("thumbnail_url must be an absolute http(s) URL")
		}
	}
	return nil
}
