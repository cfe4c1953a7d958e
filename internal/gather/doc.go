// Package gather runs the two independent pipeline lanes, footage
// acquisition and speech synthesis, concurrently and joins them before
// subtitle alignment.
package gather
