package script

import (
	"fmt"
	"strings"
)

const generationSystemPrompt = `You write narration scripts for short vertical videos.

Respond with a single JSON object of this shape:
{"script": "...", "search_terms": ["...", "..."]}

Rules for "script":
- Plain spoken narration only. No markdown, no headings, no stage directions,
  no "voiceover" or "narrator" labels, and never reference these instructions.
- Get straight to the point. Do not open with filler like "welcome to this video".
- Write exactly the requested number of paragraphs, related to the subject.

Rules for "search_terms":
- Stock-footage search phrases of 1 to 3 words each, visually concrete,
  related to the subject. Return the requested amount.`

func generationUserPrompt(topic, extra string, paragraphs, terms int) string {
	var b strings.Builder
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString(extra)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Subject: %s\n", topic)
	fmt.Fprintf(&b, "Number of paragraphs: %d\n", paragraphs)
	fmt.Fprintf(&b, "Number of search terms: %d\n", terms)
	return b.String()
}

// FallbackSearchTerms pads a short term list the way the search stage expects:
// the topic itself first, then generic qualifiers that still return usable
// b-roll for almost any subject.
func FallbackSearchTerms(topic string) []string {
	topic = strings.TrimSpace(topic)
	return []string{
		topic,
		topic + " tutorial",
		topic + " guide",
		"learning",
		"educational video",
	}
}
