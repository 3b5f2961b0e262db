package verifier

// Outcome is the terminal state of one verification request. Tests and the
// presentation layer branch on this, never on message text.
type Outcome string

const (
	OutcomeVerified        Outcome = "verified"
	OutcomeInvalidEmail    Outcome = "invalid_email"
	OutcomeAlreadyLinked   Outcome = "already_linked_conflict"
	OutcomeNoPaidOrder     Outcome = "no_paid_order"
	OutcomePaidNoTierMatch Outcome = "paid_no_tier_match"
	OutcomeRoleConfigError Outcome = "role_config_error"
	OutcomeFailed          Outcome = "verification_failed"
)

// Message returns the stable user-facing message class for the outcome, so
// downstream presentation renders consistent guidance without re-deriving
// workflow state.
func (o Outcome) Message() string {
	switch o {
	case OutcomeVerified:
		return "your purchase is verified and your access role has been granted"
	case OutcomeInvalidEmail:
		return "that does not look like a valid email address"
	case OutcomeAlreadyLinked:
		return "this email is already linked to a different member"
	case OutcomeNoPaidOrder:
		return "no paid order was found for this email"
	case OutcomePaidNoTierMatch:
		return "a paid order was found but it does not map to an access tier"
	case OutcomeRoleConfigError:
		return "access roles are misconfigured, an admin has been notified"
	default:
		return "verification failed, please try again"
	}
}

// Retryable reports whether re-running the same request can succeed without
// operator intervention.
func (o Outcome) Retryable() bool {
	return o == OutcomeFailed
}
