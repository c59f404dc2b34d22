package segmentation

import (
	"fmt"
	"strings"
	"unicode"
)

const maxGestureNameLen = 48

// SanitizeGestureName makes a gesture label safe for filenames: letters,
// digits, '-' and '_' pass through lowercased, everything else becomes '_',
// runs of '_' collapse.
func SanitizeGestureName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
			}
			lastUnderscore = true
		}
	}

	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "unnamed"
	}
	runes := []rune(cleaned)
	if len(runes) > maxGestureNameLen {
		cleaned = string(runes[:maxGestureNameLen])
	}
	return cleaned
}

// ClipFilename builds the deterministic output name for an accepted segment.
// segmentIndex is the zero-based acceptance ordinal for the camera, not the
// gesture index: per-camera rejections leave no holes in the numbering.
func ClipFilename(participantID, cameraID string, segmentIndex int, gestureName string) string {
	return fmt.Sprintf("p%s_cam%s_seg%03d_%s.mp4",
		participantID, cameraID, segmentIndex, SanitizeGestureName(gestureName))
}
