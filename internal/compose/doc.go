// Package compose renders the final vertical video. The first pass scales,
// center-crops, and concatenates the footage pool into one silent track; the
// second loops that track to cover the narration, burns in subtitle cues,
// mixes the optional music bed under the voice, and trims to the exact
// narration duration.
package compose
