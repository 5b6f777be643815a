package models

import "time"

// VerificationResult holds the result of running a task's verification
// command, the blocking "correctness" tier of the three-tier verification
// the worker runtime performs before a task can be marked COMPLETED.
type VerificationResult struct {
	Command  string
	Output   string
	Error    error
	Passed   bool
	Duration time.Duration
}
