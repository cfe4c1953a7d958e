// Package pexels wraps the Pexels video search API.
//
// Search returns candidate clips with the URL of each video's largest mp4
// rendition; Download streams a rendition into the job workspace. Non-2xx
// responses surface as *StatusError so the acquisition stage can distinguish
// transient failures (retry) from permanent ones.
package pexels
