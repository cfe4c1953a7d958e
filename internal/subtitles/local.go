package subtitles

import (
	"strings"

	"shortreel/internal/speech"
)

// BuildLocal derives cues from segment durations alone. Each sentence's words
// are split into cue-sized groups and every group receives a slice of the
// segment proportional to its character count, so cues never cross their
// owning segment's boundaries and no network call is needed.
func BuildLocal(narration speech.Narration, wordsPerCue, minCueMillis int) []Cue {
	if wordsPerCue <= 0 {
		wordsPerCue = 1
	}
	minCue := float64(minCueMillis) / 1000.0

	var cues []Cue
	for _, segment := range narration.Segments {
		words := strings.Fields(segment.Sentence)
		if len(words) == 0 || segment.Duration <= 0 {
			continue
		}

		groups := groupWords(words, wordsPerCue)
		// Short segments get fewer, longer cues instead of sub-minimum flashes.
		if minCue > 0 && segment.Duration/float64(len(groups)) < minCue {
			max := int(segment.Duration / minCue)
			if max < 1 {
				max = 1
			}
			if max < len(groups) {
				groups = regroupWords(words, max)
			}
		}

		totalChars := 0
		for _, group := range groups {
			totalChars += len([]rune(group))
		}
		if totalChars == 0 {
			continue
		}

		start := narration.SegmentStart(segment.Index)
		segmentEnd := start + segment.Duration
		for i, group := range groups {
			share := float64(len([]rune(group))) / float64(totalChars)
			end := start + segment.Duration*share
			if i == len(groups)-1 || end > segmentEnd {
				end = segmentEnd
			}
			cues = append(cues, Cue{Text: group, Start: start, End: end})
			start = end
		}
	}
	return cues
}

func groupWords(words []string, size int) []string {
	var groups []string
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		groups = append(groups, strings.Join(words[start:end], " "))
	}
	return groups
}

// regroupWords splits words into exactly count near-even groups.
func regroupWords(words []string, count int) []string {
	groups := make([]string, 0, count)
	base := len(words) / count
	extra := len(words) % count
	index := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		groups = append(groups, strings.Join(words[index:index+size], " "))
		index += size
	}
	return groups
}
