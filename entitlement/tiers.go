package entitlement

import (
	"strings"
	"time"
)

// Resolver maps purchase titles onto the configured tier ladder. The tier
// slice is injected at construction and never mutated, so a Resolver is safe
// for concurrent use.
type Resolver struct {
	tiers []Tier
}

func NewResolver(tiers []Tier) *Resolver {
	return &Resolver{tiers: tiers}
}

// Tiers returns the configured ladder, highest priority first.
func (r *Resolver) Tiers() []Tier {
	return r.tiers
}

// RoleNames returns every configured tier role name in priority order.
func (r *Resolver) RoleNames() []string {
	names := make([]string, 0, len(r.tiers))
	for _, t := range r.tiers {
		names = append(names, t.RoleName)
	}
	return names
}

func matchesTier(title string, tier Tier) bool {
	key := strings.ToLower(strings.TrimSpace(tier.MatchKey))
	if key == "" {
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(title)), key)
}

// Resolve returns the highest-priority tier matched by any title. Matching is
// substring, not equality: commerce product titles vary seasonally, the match
// key is the stable marker. The second return is false when no title matches
// any configured tier.
func (r *Resolver) Resolve(titles []string) (Tier, bool) {
	for _, tier := range r.tiers {
		for _, title := range titles {
			if matchesTier(title, tier) {
				return tier, true
			}
		}
	}
	return Tier{}, false
}

// IsSubscriptionFor reports whether any line item matching the given tier is
// a recurring subscription. Tier-scoped on purpose: an unrelated one-time
// purchase must not mark the granted tier as a subscription.
func (r *Resolver) IsSubscriptionFor(items []PurchaseLineItem, tier Tier) bool {
	for _, item := range items {
		if matchesTier(item.Title, tier) && item.IsSubscription {
			return true
		}
	}
	return false
}

// LastPaidFor returns the most recent payment timestamp among line items
// matching the given tier, or nil when none of them carries one. Scoped to
// the tier so an unrelated purchase cannot feed the audit clock.
func (r *Resolver) LastPaidFor(items []PurchaseLineItem, tier Tier) *time.Time {
	var latest *time.Time
	for _, item := range items {
		if !matchesTier(item.Title, tier) || item.PaidAt == nil {
			continue
		}
		if latest == nil || item.PaidAt.After(*latest) {
			ts := *item.PaidAt
			latest = &ts
		}
	}
	return latest
}

// Titles extracts the title of every line item.
func Titles(items []PurchaseLineItem) []string {
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	return titles
}
