// Package publish uploads the rendered video to the hosting backend with
// listing metadata derived from the script.
package publish
