package workflow

// State is a status tag within an entity kind's declared state set
type State string

const (
	StateDraft                     State = "draft"
	StateUnderReview               State = "under_review"
	StatePending                   State = "pending"
	StatePendingApproval           State = "pending_approval"
	StatePendingSignatures         State = "pending_signatures"
	StateApproved                  State = "approved"
	StateApprovedWithObservations  State = "approved_with_observations"
	StateRejected                  State = "rejected"
	StatePublished                 State = "published"
	StateArchived                  State = "archived"
	StateObsolete                  State = "obsolete"
	StatePlanning                  State = "planning"
	StateBudgetReview              State = "budget_review"
	StateQuotation                 State = "quotation"
	StateScheduled                 State = "scheduled"
	StateConfirmed                 State = "confirmed"
	StateInProgress                State = "in_progress"
	StateCompleted                 State = "completed"
	StateCancelled                 State = "cancelled"
	StateClosed                    State = "closed"
	StateFilled                    State = "filled"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
