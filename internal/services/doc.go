// Package services holds the shared plumbing for external collaborators: the
// stage error taxonomy used for failure classification, and context carriers
// for job, stage, lane, and correlation identifiers.
package services
