package models

// GroupState tracks one group through poll, resolve, commit and verify.
type GroupState string

const (
	GroupPending    GroupState = "pending"
	GroupPolling    GroupState = "polling"
	GroupResolving  GroupState = "resolving"
	GroupCommitting GroupState = "committing"
	GroupVerifying  GroupState = "verifying"
	GroupVerified   GroupState = "verified"
	GroupRolledBack GroupState = "rolled_back"
	GroupSkipped    GroupState = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s GroupState) Terminal() bool {
	return s == GroupVerified || s == GroupRolledBack || s == GroupSkipped
}

// GroupOutcome is the per-group result of one submission.
type GroupOutcome struct {
	GroupIndex int
	Success    bool
	RecordID   string
	State      GroupState
	Err        error
}

// GroupNumber is the 1-based number shown to the user.
func (o GroupOutcome) GroupNumber() int {
	return o.GroupIndex + 1
}
