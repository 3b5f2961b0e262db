package auditor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
	"github.com/downtowncxsh/xplx-access-bot/membership"
	"github.com/downtowncxsh/xplx-access-bot/store"
)

type fakePlatform struct {
	roles    map[string]string
	members  map[string][]string
	fetchErr map[string]error
}

func newFakePlatform(roleNames ...string) *fakePlatform {
	p := &fakePlatform{roles: map[string]string{}, members: map[string][]string{}, fetchErr: map[string]error{}}
	for _, name := range roleNames {
		p.roles[name] = "id:" + name
	}
	return p
}

func (p *fakePlatform) LookupRoleByName(_ context.Context, name string) (*membership.Role, error) {
	id, ok := p.roles[name]
	if !ok {
		return nil, nil
	}
	return &membership.Role{ID: id, Name: name}, nil
}

func (p *fakePlatform) FetchMember(_ context.Context, memberID string) (*membership.Member, error) {
	if err := p.fetchErr[memberID]; err != nil {
		return nil, err
	}
	roleIDs, ok := p.members[memberID]
	if !ok {
		return nil, nil
	}
	return &membership.Member{ID: memberID, RoleIDs: append([]string(nil), roleIDs...)}, nil
}

func (p *fakePlatform) AddRole(_ context.Context, memberID, roleID string) error {
	for _, id := range p.members[memberID] {
		if id == roleID {
			return nil
		}
	}
	p.members[memberID] = append(p.members[memberID], roleID)
	return nil
}

func (p *fakePlatform) RemoveRoles(_ context.Context, memberID string, roleIDs []string) error {
	drop := map[string]bool{}
	for _, id := range roleIDs {
		drop[id] = true
	}
	var kept []string
	for _, id := range p.members[memberID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	p.members[memberID] = kept
	return nil
}

type testEnv struct {
	svc      *Service
	links    *store.Links
	platform *fakePlatform
	clock    *entitlement.MockClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	links, err := store.NewLinks(filepath.Join(t.TempDir(), "links.json"))
	if err != nil {
		t.Fatalf("NewLinks: %v", err)
	}
	journal, err := store.OpenJournal(filepath.Join(t.TempDir(), "journal.db"), logger)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}

	platform := newFakePlatform("Members", "Elite Member", "VIP")
	reconciler := membership.NewReconciler(platform, "Members", []string{"Elite Member", "VIP"}, logger)

	cfg := &entitlement.Config{BaseRole: "Members"}
	cfg.Defaults()

	svc := NewService(links, journal, platform, reconciler, cfg, logger)
	clock := &entitlement.MockClock{Timestamp: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	svc.Clock = clock

	return &testEnv{svc: svc, links: links, platform: platform, clock: clock}
}

func (env *testEnv) seedSubscriber(t *testing.T, email, memberID string, lastPaid *time.Time) {
	t.Helper()
	env.platform.members[memberID] = []string{"id:Members", "id:VIP"}
	err := env.links.Put(entitlement.EmailRecord{
		Email:           email,
		CommunityUserID: memberID,
		Tier:            "VIP",
		IsSubscription:  true,
		LastPaidAt:      lastPaid,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
}

func daysBefore(now time.Time, days int) *time.Time {
	ts := now.AddDate(0, 0, -days)
	return &ts
}

func TestSweep_NullLastPaidNeverDowngraded(t *testing.T) {
	env := newTestEnv(t)
	env.seedSubscriber(t, "a@b.com", "u1", nil)

	stats := env.svc.Sweep(context.Background())
	if stats.Downgraded != 0 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want skip without downgrade", stats)
	}
	rec, _ := env.links.Get("a@b.com")
	if rec.Tier != "VIP" || !rec.IsSubscription {
		t.Errorf("record mutated: %+v", rec)
	}
}

func TestSweep_GraceBoundary(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		lastPaid       *time.Time
		wantDowngraded int
	}{
		{"34 days untouched", daysBefore(now, 34), 0},
		{"35 days downgraded", daysBefore(now, 35), 1},
		{"60 days downgraded", daysBefore(now, 60), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.clock.Timestamp = now
			env.seedSubscriber(t, "a@b.com", "u1", tt.lastPaid)

			stats := env.svc.Sweep(context.Background())
			if stats.Downgraded != tt.wantDowngraded {
				t.Fatalf("downgraded = %d, want %d", stats.Downgraded, tt.wantDowngraded)
			}

			rec, _ := env.links.Get("a@b.com")
			if tt.wantDowngraded == 0 {
				if rec.Tier != "VIP" {
					t.Errorf("record mutated inside grace: %+v", rec)
				}
				return
			}
			if rec.Tier != "Members" || rec.IsSubscription {
				t.Errorf("record after downgrade: %+v", rec)
			}
			if rec.LastAuditAt == nil || rec.LastAuditReason == "" {
				t.Error("audit provenance not stamped")
			}
			for _, id := range env.platform.members["u1"] {
				if id == "id:VIP" {
					t.Error("tier role still held after downgrade")
				}
			}
		})
	}
}

func TestSweep_DryRun(t *testing.T) {
	env := newTestEnv(t)
	env.svc.DryRun = true
	env.seedSubscriber(t, "a@b.com", "u1", daysBefore(env.clock.Timestamp, 90))

	stats := env.svc.Sweep(context.Background())
	if stats.Overdue != 1 || stats.Downgraded != 0 {
		t.Errorf("stats = %+v, want detection without downgrade", stats)
	}
	rec, _ := env.links.Get("a@b.com")
	if rec.Tier != "VIP" || !rec.IsSubscription {
		t.Errorf("dry run mutated the record: %+v", rec)
	}
	held := env.platform.members["u1"]
	if len(held) != 2 {
		t.Errorf("dry run mutated roles: %v", held)
	}
}

func TestSweep_DepartedMemberSkipped(t *testing.T) {
	env := newTestEnv(t)
	if err := env.links.Put(entitlement.EmailRecord{
		Email: "gone@b.com", CommunityUserID: "ghost", Tier: "VIP",
		IsSubscription: true, LastPaidAt: daysBefore(env.clock.Timestamp, 90),
	}); err != nil {
		t.Fatal(err)
	}

	stats := env.svc.Sweep(context.Background())
	if stats.Downgraded != 0 || stats.Skipped != 1 || stats.Faults != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSweep_FaultIsolation(t *testing.T) {
	env := newTestEnv(t)
	overdue := daysBefore(env.clock.Timestamp, 90)
	env.seedSubscriber(t, "bad@b.com", "u-bad", overdue)
	env.seedSubscriber(t, "good@b.com", "u-good", overdue)
	env.platform.fetchErr["u-bad"] = errors.New("platform hiccup")

	stats := env.svc.Sweep(context.Background())
	if stats.Faults != 1 {
		t.Errorf("faults = %d, want 1", stats.Faults)
	}
	if stats.Downgraded != 1 {
		t.Errorf("downgraded = %d, the healthy record must still be processed", stats.Downgraded)
	}
	rec, _ := env.links.Get("good@b.com")
	if rec.Tier != "Members" {
		t.Errorf("healthy record not downgraded: %+v", rec)
	}
}

func TestSweep_OneTimePurchasesIgnored(t *testing.T) {
	env := newTestEnv(t)
	if err := env.links.Put(entitlement.EmailRecord{
		Email: "onetime@b.com", CommunityUserID: "u1", Tier: "Elite Member",
		IsSubscription: false, LastPaidAt: daysBefore(env.clock.Timestamp, 400),
	}); err != nil {
		t.Fatal(err)
	}

	stats := env.svc.Sweep(context.Background())
	if stats.Overdue != 0 || stats.Downgraded != 0 {
		t.Errorf("one-time purchase audited: %+v", stats)
	}
}
