package speech

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segment is one sentence's synthesized audio unit, the atomic unit for
// subtitle timing bookkeeping.
type Segment struct {
	Index    int     `json:"index"`
	Sentence string  `json:"sentence"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

// Narration is the ordered segment sequence plus its concatenation into the
// single track the composer and aligner consume. Concatenation order is
// authoritative for segment start/end offsets.
type Narration struct {
	Segments  []Segment `json:"segments"`
	TrackPath string    `json:"track_path"`
	Duration  float64   `json:"duration"`
}

// SegmentStart returns the start offset in seconds of the indexed segment
// within the concatenated track.
func (n Narration) SegmentStart(index int) float64 {
	start := 0.0
	for i := 0; i < index && i < len(n.Segments); i++ {
		start += n.Segments[i].Duration
	}
	return start
}

// Encode serializes the narration for queue item storage.
func (n Narration) Encode() (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encode narration: %w", err)
	}
	return string(data), nil
}

// Decode parses a narration stored on a queue item.
func Decode(raw string) (Narration, error) {
	var n Narration
	if strings.TrimSpace(raw) == "" {
		return n, fmt.Errorf("decode narration: empty payload")
	}
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, fmt.Errorf("decode narration: %w", err)
	}
	return n, nil
}
