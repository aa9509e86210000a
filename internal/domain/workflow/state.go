package workflow

// State is the audit-pipeline status of a closing event
type State string

const (
	StatePending          State = "PENDING"
	StateAwaitingEnvelope State = "AWAITING_ENVELOPE"
	StateAIPending        State = "AI_PENDING"
	StateAIDone           State = "AI_DONE"
	StateAIError          State = "AI_ERROR"
)

var validStates = map[State]bool{
	StatePending:          true,
	StateAwaitingEnvelope: true,
	StateAIPending:        true,
	StateAIDone:           true,
	StateAIError:          true,
}

// attentionStates are waiting on a person rather than on the pipeline
var attentionStates = map[State]bool{
	StatePending:          true,
	StateAwaitingEnvelope: true,
	StateAIError:          true,
}

// NeedsAttention returns true if an operator or administrator must act before the closing can progress
func (s State) NeedsAttention() bool {
	return attentionStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid pipeline state
func (s State) IsValid() bool {
	return validStates[s]
}

// CachePhase is the lifecycle of a closing's evidence extraction progress:
// NOT_STARTED until the first batch is saved, IN_PROGRESS while batches
// accumulate, COMPLETE once the analysis finished. A COMPLETE cache is then
// deleted.
type CachePhase string

const (
	PhaseNotStarted CachePhase = "NOT_STARTED"
	PhaseInProgress CachePhase = "IN_PROGRESS"
	PhaseComplete   CachePhase = "COMPLETE"
)

// String returns the string representation of the phase
func (p CachePhase) String() string {
	return string(p)
}
