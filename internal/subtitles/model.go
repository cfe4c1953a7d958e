package subtitles

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Cue is one on-screen text window in narration-track time.
type Cue struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate checks the cue sequence invariants: sorted by start, non
// overlapping, and every window inside [0, duration].
func Validate(cues []Cue, duration float64) error {
	prevEnd := 0.0
	for i, cue := range cues {
		if strings.TrimSpace(cue.Text) == "" {
			return fmt.Errorf("cue %d has empty text", i)
		}
		if cue.Start < 0 || cue.End > duration+timingSlack {
			return fmt.Errorf("cue %d window [%.3f, %.3f] outside track duration %.3f", i, cue.Start, cue.End, duration)
		}
		if cue.Start >= cue.End {
			return fmt.Errorf("cue %d has non-positive window [%.3f, %.3f]", i, cue.Start, cue.End)
		}
		if cue.Start < prevEnd {
			return fmt.Errorf("cue %d starts at %.3f before previous cue ends at %.3f", i, cue.Start, prevEnd)
		}
		prevEnd = cue.End
	}
	return nil
}

// timingSlack tolerates float accumulation drift against the probed track
// duration.
const timingSlack = 0.05

// Encode serializes cues for queue item storage.
func Encode(cues []Cue) (string, error) {
	data, err := json.Marshal(cues)
	if err != nil {
		return "", fmt.Errorf("encode cues: %w", err)
	}
	return string(data), nil
}

// Decode parses cues stored on a queue item.
func Decode(raw string) ([]Cue, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("decode cues: empty payload")
	}
	var cues []Cue
	if err := json.Unmarshal([]byte(raw), &cues); err != nil {
		return nil, fmt.Errorf("decode cues: %w", err)
	}
	return cues, nil
}
