package workflow

// pipeline is the transition table shared by every closing.
// Re-ingesting a closing re-classifies it and may set any state directly;
// that path bypasses the machine.
var pipeline = NewBuilder().
	Permit(StatePending, TriggerRegisterEnvelope, StateAIPending).
	Permit(StateAwaitingEnvelope, TriggerRegisterEnvelope, StateAIPending).
	Permit(StateAIDone, TriggerRegisterEnvelope, StateAIPending).
	Permit(StateAIError, TriggerRegisterEnvelope, StateAIPending).
	Permit(StatePending, TriggerRequestReview, StateAIPending).
	Permit(StateAwaitingEnvelope, TriggerRequestReview, StateAIPending).
	Permit(StateAIDone, TriggerRequestReview, StateAIPending).
	Permit(StateAIError, TriggerRequestReview, StateAIPending).
	Permit(StateAIPending, TriggerCompleteReview, StateAIDone).
	Permit(StateAIPending, TriggerFailReview, StateAIError)

// NewPipelineMachine returns an audit-pipeline machine positioned at current
func NewPipelineMachine(current State) (StateMachine, error) {
	return pipeline.Build(current)
}

// Next returns the state reached by firing trigger from current
func Next(current State, trigger Trigger) (State, error) {
	m, err := NewPipelineMachine(current)
	if err != nil {
		return "", err
	}
	if err := m.Fire(trigger); err != nil {
		return current, err
	}
	return m.State(), nil
}

// CanTransition reports whether some trigger moves from one state to the other
func CanTransition(from, to State) bool {
	for _, target := range pipeline.transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
