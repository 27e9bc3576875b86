package status

// SyncState identifies the synchronization condition of a probed repository.
type SyncState string

// Recognized synchronization states, declared in report display order.
const (
	SyncStateUpToDate            SyncState = "up_to_date"
	SyncStateUncommittedChanges  SyncState = "uncommitted_changes"
	SyncStateStagedChanges       SyncState = "staged_changes"
	SyncStatePushNeeded          SyncState = "push_needed"
	SyncStatePullNeeded          SyncState = "pull_needed"
	SyncStateDiverged            SyncState = "diverged"
	SyncStateNoRemote            SyncState = "no_remote"
	SyncStateDetachedHead        SyncState = "detached_head"
	SyncStateRemoteAccessLimited SyncState = "remote_access_limited"
)

// OrderedSyncStates lists every synchronization state in display order.
var OrderedSyncStates = []SyncState{
	SyncStateUpToDate,
	SyncStateUncommittedChanges,
	SyncStateStagedChanges,
	SyncStatePushNeeded,
	SyncStatePullNeeded,
	SyncStateDiverged,
	SyncStateNoRemote,
	SyncStateDetachedHead,
	SyncStateRemoteAccessLimited,
}

// String renders the state identifier.
func (state SyncState) String() string {
	return string(state)
}
