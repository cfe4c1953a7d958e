// Package tts wraps the speech synthesis HTTP backend.
//
// Synthesize converts one sentence at a time so segment durations stay known
// to the caller. Input text is normalized to ASCII (the backend's voices do
// not handle diacritics) and split into request-sized chunks on word
// boundaries. Transient failures retry with exponential backoff; an unknown
// speaker identifier surfaces as ErrUnknownVoice.
package tts
