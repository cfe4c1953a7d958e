package tts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxChunkChars is the backend's per-request text limit.
const maxChunkChars = 300

var symbolReplacer = strings.NewReplacer(
	"&", " and ",
	"+", " plus ",
	"ß", "ss",
)

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText prepares a sentence for the synthesis backend, which only
// understands ASCII input: symbols become words, diacritics are folded away,
// and whitespace collapses to single spaces.
func NormalizeText(text string) string {
	text = symbolReplacer.Replace(text)
	if folded, _, err := transform.String(diacriticFolder, text); err == nil {
		text = folded
	}
	return strings.Join(strings.Fields(text), " ")
}

// SplitChunks breaks text into backend-sized chunks on word boundaries. A
// single word longer than the limit becomes its own chunk rather than being
// cut mid-word.
func SplitChunks(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	current := ""
	for _, word := range words {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= maxChunkChars:
			current += " " + word
		default:
			chunks = append(chunks, current)
			current = word
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
