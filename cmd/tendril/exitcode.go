package main

// Exit codes form the external-collaborator contract for scripts driving
// this binary (spec.md §6).
const (
	exitSuccess        = 0
	exitUsageError     = 1
	exitActionFailures = 2
	exitConfigError    = 3
	exitSetupError     = 4
)
