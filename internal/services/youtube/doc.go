// Package youtube uploads rendered videos through the YouTube Data API.
//
// Credentials are a stored OAuth refresh token plus client id/secret; the
// interactive consent flow happens out of band (shortreel config init prints
// instructions). Auth failures surface as ErrAuth so the publish stage can
// fail the job without retrying.
package youtube
