package compose

import (
	"strings"
	"testing"
)

func TestAssembleFilterGraph(t *testing.T) {
	graph := assembleFilterGraph(2, 1080, 1920, 30)
	if !strings.Contains(graph, "scale=1080:1920:force_original_aspect_ratio=increase") {
		t.Fatalf("expected aspect-preserving scale, got %q", graph)
	}
	if !strings.Contains(graph, "crop=1080:1920") {
		t.Fatalf("expected center crop, got %q", graph)
	}
	if !strings.Contains(graph, "concat=n=2:v=1:a=0[vout]") {
		t.Fatalf("expected concat of 2 inputs, got %q", graph)
	}
	if !strings.Contains(graph, "[0:v]") || !strings.Contains(graph, "[1:v]") {
		t.Fatalf("expected both inputs consumed, got %q", graph)
	}
}

func TestAlignmentCode(t *testing.T) {
	cases := map[string]int{
		"bottom": 2,
		"center": 5,
		"middle": 5,
		"top":    8,
		"":       2,
		"weird":  2,
	}
	for position, want := range cases {
		if got := alignmentCode(position); got != want {
			t.Fatalf("alignmentCode(%q) = %d, want %d", position, got, want)
		}
	}
}

func TestASSColor(t *testing.T) {
	cases := map[string]string{
		"#FFFF00": "&H0000FFFF&",
		"ff0000":  "&H000000FF&",
		"#FFFFFF": "&H00FFFFFF&",
		"bogus":   "&H00FFFFFF&",
	}
	for hex, want := range cases {
		if got := assColor(hex); got != want {
			t.Fatalf("assColor(%q) = %q, want %q", hex, got, want)
		}
	}
}

func TestSubtitleFilterStyling(t *testing.T) {
	filter := subtitleFilter("/work/subtitles/cues.srt", "top", "#FFFF00", "Arial", 24)
	if !strings.Contains(filter, "Alignment=8") {
		t.Fatalf("expected top alignment, got %q", filter)
	}
	if !strings.Contains(filter, "PrimaryColour=&H0000FFFF&") {
		t.Fatalf("expected converted color, got %q", filter)
	}
	if !strings.Contains(filter, "FontName=Arial") || !strings.Contains(filter, "FontSize=24") {
		t.Fatalf("expected font styling, got %q", filter)
	}
}

func TestRenderFilterGraphWithMusic(t *testing.T) {
	graph := renderFilterGraph("/work/cues.srt", "bottom", "#FFFFFF", "Arial", 24, true, 0.3)
	if !strings.Contains(graph, "volume=0.30") {
		t.Fatalf("expected music gain applied, got %q", graph)
	}
	if !strings.Contains(graph, "amix=inputs=2:duration=first") {
		t.Fatalf("expected narration-length mix, got %q", graph)
	}
	if !strings.Contains(graph, "alimiter") {
		t.Fatalf("expected clipping limiter, got %q", graph)
	}
}

func TestRenderFilterGraphWithoutMusic(t *testing.T) {
	graph := renderFilterGraph("/work/cues.srt", "bottom", "#FFFFFF", "Arial", 24, false, 0.3)
	if strings.Contains(graph, "amix") {
		t.Fatalf("expected no mix without music, got %q", graph)
	}
	if !strings.HasPrefix(graph, "[0:v]subtitles=") {
		t.Fatalf("expected subtitle burn-in, got %q", graph)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\media\cues.srt`)
	if got != `C\:\\media\\cues.srt` {
		t.Fatalf("unexpected escaping: %q", got)
	}
}
