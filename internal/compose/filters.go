package compose

import (
	"fmt"
	"strings"
)

// videoFilter scales and center-crops one input to the target frame without
// stretching, then normalizes sample aspect and frame rate so every clip can
// be concatenated.
func videoFilter(width, height, frameRate int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		width, height, width, height, frameRate,
	)
}

// assembleFilterGraph chains every clip through the video filter and
// concatenates the results into one silent visual track.
func assembleFilterGraph(clipCount, width, height, frameRate int) string {
	var graph strings.Builder
	for i := 0; i < clipCount; i++ {
		fmt.Fprintf(&graph, "[%d:v]%s[v%d];", i, videoFilter(width, height, frameRate), i)
	}
	for i := 0; i < clipCount; i++ {
		fmt.Fprintf(&graph, "[v%d]", i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=0[vout]", clipCount)
	return graph.String()
}

// subtitleFilter burns the SRT file into the frame with the configured
// styling.
func subtitleFilter(srtPath, position, color, fontName string, fontSize int) string {
	style := fmt.Sprintf(
		"Alignment=%d,PrimaryColour=%s,FontName=%s,FontSize=%d,BorderStyle=1,Outline=1",
		alignmentCode(position), assColor(color), fontName, fontSize,
	)
	return fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(srtPath), style)
}

// musicMixFilter ducks the music bed under the narration and limits the mix
// so the sum never clips.
func musicMixFilter(gain float64) string {
	return fmt.Sprintf(
		"[2:a]volume=%.2f[bed];[1:a][bed]amix=inputs=2:duration=first:dropout_transition=0,alimiter=limit=0.891[aout]",
		gain,
	)
}

// renderFilterGraph builds the final-pass graph: subtitle burn-in on the
// looped visual track, plus the music mix when a bed track is present.
func renderFilterGraph(srtPath, position, color, fontName string, fontSize int, withMusic bool, gain float64) string {
	video := fmt.Sprintf("[0:v]%s[vout]", subtitleFilter(srtPath, position, color, fontName, fontSize))
	if !withMusic {
		return video
	}
	return video + ";" + musicMixFilter(gain)
}

// alignmentCode maps the configured position onto the ASS numpad alignment
// scheme.
func alignmentCode(position string) int {
	switch strings.ToLower(strings.TrimSpace(position)) {
	case "top":
		return 8
	case "center", "middle":
		return 5
	default:
		return 2
	}
}

// assColor converts an RRGGBB hex color into the ASS &HBBGGRR& form the
// subtitle renderer expects.
func assColor(hex string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return "&H00FFFFFF&"
	}
	hex = strings.ToUpper(hex)
	return fmt.Sprintf("&H00%s%s%s&", hex[4:6], hex[2:4], hex[0:2])
}

// escapeFilterPath quotes characters the filter parser treats specially.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(path)
}
