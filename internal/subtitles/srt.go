package subtitles

import (
	"fmt"
	"os"
	"strings"
)

// WriteSRT renders the cues as a SubRip file at path. The subtitle burn-in
// filter consumes this file directly.
func WriteSRT(path string, cues []Cue) error {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTime(cue.Start), formatSRTTime(cue.End))
		b.WriteString(cue.Text)
		b.WriteString("\n\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// formatSRTTime renders seconds as HH:MM:SS,mmm per the SubRip standard.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
