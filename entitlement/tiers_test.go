package entitlement

import (
	"testing"
	"time"
)

func testTiers() []Tier {
	return []Tier{
		{MatchKey: "Elite", RoleName: "Elite Member"},
		{MatchKey: "VIP", RoleName: "VIP"},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testTiers())

	tests := []struct {
		name     string
		titles   []string
		wantRole string
		wantOK   bool
	}{
		{"highest wins", []string{"Elite Trader Mentorship Bundle", "VIP Access Pass"}, "Elite Member", true},
		{"order of titles irrelevant", []string{"VIP Access Pass", "Elite Trader Mentorship Bundle"}, "Elite Member", true},
		{"lower tier alone", []string{"VIP Access Pass"}, "VIP", true},
		{"substring not equality", []string{"2024 Holiday vip access pass"}, "VIP", true},
		{"case and whitespace folded", []string{"  ELITE mentorship  "}, "Elite Member", true},
		{"no match", []string{"Random Sticker Pack"}, "", false},
		{"empty titles", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, ok := r.Resolve(tt.titles)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if tier.RoleName != tt.wantRole {
				t.Errorf("Resolve() role = %q, want %q", tier.RoleName, tt.wantRole)
			}
		})
	}
}

func TestResolver_IsSubscriptionFor(t *testing.T) {
	r := NewResolver(testTiers())
	elite := r.Tiers()[0]

	items := []PurchaseLineItem{
		{Title: "Random Sticker Pack", IsSubscription: true},
		{Title: "Elite Trader Mentorship", IsSubscription: false},
	}
	if r.IsSubscriptionFor(items, elite) {
		t.Error("unrelated subscription must not mark the matched tier as subscribed")
	}

	items = append(items, PurchaseLineItem{Title: "Elite Monthly", IsSubscription: true})
	if !r.IsSubscriptionFor(items, elite) {
		t.Error("subscription line matching the tier should flag it")
	}
}

func TestResolver_LastPaidFor(t *testing.T) {
	r := NewResolver(testTiers())
	elite := r.Tiers()[0]

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	unrelated := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	items := []PurchaseLineItem{
		{Title: "Elite Mentorship", PaidAt: &old},
		{Title: "Elite Mentorship Renewal", PaidAt: &newer},
		{Title: "Random Sticker Pack", PaidAt: &unrelated},
		{Title: "Elite Legacy"},
	}

	got := r.LastPaidFor(items, elite)
	if got == nil || !got.Equal(newer) {
		t.Fatalf("LastPaidFor() = %v, want %v", got, newer)
	}

	if got := r.LastPaidFor([]PurchaseLineItem{{Title: "Elite Legacy"}}, elite); got != nil {
		t.Errorf("LastPaidFor() with no timestamps = %v, want nil", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Trader@Example.COM "); got != "trader@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Tiers: testTiers(), BaseRole: "Members"}
		c.Discord.Token = "token"
		c.Discord.GuildID = "guild"
		c.Commerce.OrdersURL = "https://shop.example.com/orders/search"
		c.Defaults()
		return c
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c := valid()
	c.Tiers = nil
	if err := c.Validate(); err == nil {
		t.Error("empty tier list accepted")
	}

	c = valid()
	c.BaseRole = "VIP"
	if err := c.Validate(); err == nil {
		t.Error("base role colliding with a tier role accepted")
	}

	c = valid()
	c.Tiers = append(c.Tiers, Tier{MatchKey: "Other", RoleName: "VIP"})
	if err := c.Validate(); err == nil {
		t.Error("duplicate tier role accepted")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.Defaults()
	if c.Audit.IntervalHours != 24 || c.Audit.GraceDays != 35 {
		t.Errorf("unexpected audit defaults: %+v", c.Audit)
	}
	if c.AuditInterval() != 24*time.Hour {
		t.Errorf("AuditInterval() = %v", c.AuditInterval())
	}
}
