// Package subtitles times cue windows to the narration track and renders
// them as a SubRip file for burn-in. Two strategies are interchangeable: an
// external word-level alignment service and a local heuristic that divides
// each sentence segment's known duration across its words by character
// weight.
package subtitles
