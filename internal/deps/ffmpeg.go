package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg binary shortreel will execute. A
// configured path wins; otherwise the name resolves from PATH so status
// output matches what composition actually runs.
func ResolveFFmpegPath(configured string) string {
	return resolveBinary(configured, "ffmpeg")
}

// ResolveFFprobePath returns the ffprobe binary used for media inspection.
func ResolveFFprobePath(configured string) string {
	return resolveBinary(configured, "ffprobe")
}

func resolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

// MediaRequirements lists the external binaries the composition and
// inspection stages need.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ResolveFFmpegPath(ffmpegBinary),
			Description: "Required for video composition",
		},
		{
			Name:        "FFprobe",
			Command:     ResolveFFprobePath(ffprobeBinary),
			Description: "Required for media inspection",
		},
	}
}
