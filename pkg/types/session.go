// Package types provides the core data types for the strands agent runtime.
package types

// ManagerState is the persisted state of a conversation manager.
type ManagerState struct {
	Name                string `json:"name"`
	RemovedMessageCount int    `json:"removedMessageCount,omitempty"`
	SummaryIndex        *int   `json:"summaryIndex,omitempty"`
}

// Clone returns a copy that shares no pointers with m.
func (m ManagerState) Clone() ManagerState {
	out := m
	if m.SummaryIndex != nil {
		idx := *m.SummaryIndex
		out.SummaryIndex = &idx
	}
	return out
}

// SessionSnapshot is the durable layout of an agent: its history plus the
// conversation manager identity and state needed to resume bounding decisions.
type SessionSnapshot struct {
	ID       string       `json:"id"`
	Messages []Message    `json:"messages"`
	Manager  ManagerState `json:"manager"`
	Time     SessionTime  `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
