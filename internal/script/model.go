package script

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Script is the narration text plus the footage search terms for one job.
// Produced once by the scripting stage and immutable afterwards.
type Script struct {
	Sentences   []string `json:"sentences"`
	SearchTerms []string `json:"search_terms"`
}

// Text returns the full narration as a single string.
func (s Script) Text() string {
	return strings.Join(s.Sentences, " ")
}

// Encode serializes the script for queue item storage.
func (s Script) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode script: %w", err)
	}
	return string(data), nil
}

// Decode parses a script stored on a queue item.
func Decode(raw string) (Script, error) {
	var s Script
	if strings.TrimSpace(raw) == "" {
		return s, fmt.Errorf("decode script: empty payload")
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("decode script: %w", err)
	}
	return s, nil
}

// SplitSentences breaks narration text into sentences on terminal
// punctuation. Terminators stay attached to their sentence so synthesized
// speech keeps its prosody.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		current.Reset()
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// A period inside a number or abbreviation does not end a sentence.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		flush()
	}
	flush()
	return sentences
}

// CleanNarration strips markdown artifacts some models insert despite
// instructions: emphasis markers, headings, and bracketed stage directions.
func CleanNarration(text string) string {
	text = strings.NewReplacer("*", "", "#", "", "\"", "").Replace(text)
	text = removeDelimited(text, '[', ']')
	text = removeDelimited(text, '(', ')')
	return strings.Join(strings.Fields(text), " ")
}

func removeDelimited(text string, open, close rune) string {
	var out strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case open:
			depth++
		case close:
			if depth > 0 {
				depth--
				continue
			}
			out.WriteRune(r)
		default:
			if depth == 0 {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}
