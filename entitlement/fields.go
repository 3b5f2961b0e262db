// Package entitlement holds the domain types shared by the verification
// workflow, the role reconciler and the audit sweep: purchase line items as
// returned by the commerce gateway, the ordered tier configuration, and the
// per-email link record the store persists.
package entitlement

import (
	"strings"
	"time"
)

// Tier maps a stable product-title substring to a platform role. Tiers are
// configured highest priority first; at most one is active per member.
type Tier struct {
	MatchKey string `json:"match_key" yaml:"match_key" validate:"required"`
	RoleName string `json:"role_name" yaml:"role_name" validate:"required"`
}

// PurchaseLineItem is one paid order line as reported by the commerce
// gateway. PaidAt is nil when the gateway did not report a payment timestamp.
type PurchaseLineItem struct {
	Title            string     `json:"title"`
	IsSubscription   bool       `json:"is_subscription"`
	SubscriptionPlan string     `json:"subscription_plan,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

// EmailRecord is the durable link between a normalized email and the
// community member that claimed it, plus the entitlement state the audit
// sweep re-validates. LastPaidAt nil means the audit must never act.
type EmailRecord struct {
	Email           string     `json:"email"`
	CommunityUserID string     `json:"community_user_id"`
	DisplayTag      string     `json:"display_tag,omitempty"`
	Tier            string     `json:"tier"`
	IsSubscription  bool       `json:"is_subscription"`
	LastPaidAt      *time.Time `json:"last_paid_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastAuditAt     *time.Time `json:"last_audit_at,omitempty"`
	LastAuditReason string     `json:"last_audit_reason,omitempty"`
}

// NormalizeEmail lower-cases and trims an email claim. All store keys and
// lookups go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
