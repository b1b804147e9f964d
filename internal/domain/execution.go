package domain

// ExecutionOutcome is the terminal result of one sandboxed run.
// RC is nil when no exit code was observed (dry run, timeout, spawn failure).
type ExecutionOutcome struct {
	OK         bool   `json:"ok"`
	RC         *int   `json:"rc"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DryRun     bool   `json:"dry_run"`
	Cmd        string `json:"cmd"`
	DurationMS int64  `json:"duration_ms"`
}

// ExitCode returns the return code, or -1 when none was observed.
func (o ExecutionOutcome) ExitCode() int {
	if o.RC == nil {
		return -1
	}
	return *o.RC
}
