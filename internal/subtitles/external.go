package subtitles

import (
	"fmt"
	"strings"

	"shortreel/internal/services/aligner"
)

// BuildFromWords maps word-level timestamps from the alignment service onto
// cue-sized groups. Word order is taken as given; each cue spans from its
// first word's start to its last word's end, clamped into the track and
// squeezed so consecutive cues never overlap.
func BuildFromWords(words []aligner.Word, wordsPerCue int, duration float64) ([]Cue, error) {
	if wordsPerCue <= 0 {
		wordsPerCue = 1
	}
	cleaned := make([]aligner.Word, 0, len(words))
	for _, word := range words {
		if strings.TrimSpace(word.Text) == "" {
			continue
		}
		cleaned = append(cleaned, word)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("alignment returned no words")
	}

	var cues []Cue
	for start := 0; start < len(cleaned); start += wordsPerCue {
		end := start + wordsPerCue
		if end > len(cleaned) {
			end = len(cleaned)
		}
		group := cleaned[start:end]

		texts := make([]string, 0, len(group))
		for _, word := range group {
			texts = append(texts, strings.TrimSpace(word.Text))
		}
		cue := Cue{
			Text:  strings.Join(texts, " "),
			Start: group[0].Start,
			End:   group[len(group)-1].End,
		}
		if cue.Start < 0 {
			cue.Start = 0
		}
		if duration > 0 && cue.End > duration {
			cue.End = duration
		}
		if len(cues) > 0 && cue.Start < cues[len(cues)-1].End {
			cues[len(cues)-1].End = cue.Start
			if cues[len(cues)-1].Start >= cues[len(cues)-1].End {
				return nil, fmt.Errorf("alignment timestamps not monotonic around %.3f", cue.Start)
			}
		}
		if cue.Start >= cue.End {
			return nil, fmt.Errorf("alignment produced empty window at %.3f", cue.Start)
		}
		cues = append(cues, cue)
	}
	return cues, nil
}
