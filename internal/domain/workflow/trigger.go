package workflow

// Trigger represents an event that moves a closing through the audit pipeline
type Trigger string

const (
	TriggerRegisterEnvelope Trigger = "REGISTER_ENVELOPE"
	TriggerRequestReview    Trigger = "REQUEST_REVIEW"
	TriggerCompleteReview   Trigger = "COMPLETE_REVIEW"
	TriggerFailReview       Trigger = "FAIL_REVIEW"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
