// Package footage sources stock clips for a job. It searches the configured
// backend per term, filters candidates by orientation, resolution, and
// duration, and downloads accepted clips through a bounded worker pool until
// the pool covers the narration duration.
package footage
