package publish

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxTitleRunes = 100
const maxTags = 6

// Metadata is the listing the publisher attaches to an upload.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Encode serializes metadata for queue item storage.
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

// DecodeMetadata parses metadata stored on a queue item.
func DecodeMetadata(raw string) (Metadata, error) {
	var m Metadata
	if strings.TrimSpace(raw) == "" {
		return m, fmt.Errorf("decode metadata: empty payload")
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

const metadataSystemPrompt = `You write listing metadata for short vertical videos.
Respond with a single JSON object and nothing else:
{"title": "...", "description": "...", "tags": ["...", "..."]}
Rules:
- The title is a catchy phrase under 90 characters with no hashtags or emoji.
- The description is one or two sentences summarizing the video.
- Provide exactly 6 short keyword tags.`

func metadataUserPrompt(topic, narration string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video topic: %s\n\n", topic)
	fmt.Fprintf(&b, "Narration:\n%s\n", narration)
	return b.String()
}

// normalize enforces platform limits on backend-produced metadata and fills
// gaps from the topic.
func (m Metadata) normalize(topic string) Metadata {
	out := m
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = fallbackMetadata(topic, "").Title
	}
	if runes := []rune(out.Title); len(runes) > maxTitleRunes {
		out.Title = string(runes[:maxTitleRunes])
	}
	out.Description = strings.TrimSpace(out.Description)

	tags := make([]string, 0, len(out.Tags))
	for _, tag := range out.Tags {
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) >= maxTags {
			break
		}
	}
	out.Tags = tags
	return out
}

// fallbackMetadata derives a serviceable listing from the topic alone, for
// when the text-generation backend is unavailable at publish time.
func fallbackMetadata(topic, narration string) Metadata {
	topic = strings.TrimSpace(topic)
	title := topic
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	description := strings.TrimSpace(narration)
	if description == "" {
		description = "A short video about " + topic + "."
	}
	return Metadata{
		Title:       title,
		Description: description,
		Tags:        []string{topic, "shorts", "facts"},
	}
}
