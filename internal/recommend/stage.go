// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

// StageStatus classifies the outcome of one pipeline stage.
type StageStatus int

const (
	// StageOK means the stage completed with full-quality output.
	StageOK StageStatus = iota
	// StageDegraded means the stage completed but substituted defaults
	// or dropped a sub-computation; Warnings lists what was lost.
	StageDegraded
	// StageFatal means the stage cannot produce output; Err is set and
	// the request must not continue.
	StageFatal
)

// String returns a human-readable name for the stage status.
func (s StageStatus) String() string {
	switch s {
	case StageOK:
		return "ok"
	case StageDegraded:
		return "degraded"
	case StageFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StageResult reports how a pipeline stage finished. Stages return their
// output value alongside a StageResult instead of swallowing recoverable
// failures, so the engine can log every degradation and count it in
// metrics while still serving the request.
type StageResult struct {
	// Status is the stage outcome.
	Status StageStatus

	// Warnings describes each degradation when Status is StageDegraded.
	Warnings []string

	// Err is the fatal error when Status is StageFatal.
	Err error
}

// ok returns a clean stage result.
func ok() StageResult {
	return StageResult{Status: StageOK}
}

// degraded returns a stage result carrying one or more warnings.
func degraded(warnings ...string) StageResult {
	return StageResult{Status: StageDegraded, Warnings: warnings}
}

// fatal returns a stage result carrying a terminal error.
func fatal(err error) StageResult {
	return StageResult{Status: StageFatal, Err: err}
}

// merge folds another stage result into this one: fatal wins, otherwise
// warnings accumulate and the status escalates to degraded if either side
// is degraded.
func (r StageResult) merge(other StageResult) StageResult {
	if r.Status == StageFatal {
		return r
	}
	if other.Status == StageFatal {
		return other
	}
	out := StageResult{Status: StageOK}
	out.Warnings = append(out.Warnings, r.Warnings...)
	out.Warnings = append(out.Warnings, other.Warnings...)
	if len(out.Warnings) > 0 || r.Status == StageDegraded || other.Status == StageDegraded {
		out.Status = StageDegraded
	}
	return out
}
