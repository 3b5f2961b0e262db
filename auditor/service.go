// Package auditor re-validates standing subscription grants on a schedule
// and downgrades the ones whose last payment lapsed past the grace period.
package auditor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
	"github.com/downtowncxsh/xplx-access-bot/membership"
	"github.com/downtowncxsh/xplx-access-bot/store"
)

// Stats summarizes one sweep for the end-of-sweep log line and metrics.
type Stats struct {
	Scanned    int
	Skipped    int
	Overdue    int
	Downgraded int
	Faults     int
}

// Service runs the audit sweep. Downgrade is the only mutation it performs;
// upgrades always go through verification.
type Service struct {
	Links      *store.Links
	Journal    *store.Journal
	Platform   membership.Platform
	Reconciler *membership.Reconciler
	BaseRole   string
	GraceDays  int
	DryRun     bool
	Clock      entitlement.Clock
	Logger     *logrus.Logger
}

func NewService(links *store.Links, journal *store.Journal, platform membership.Platform,
	reconciler *membership.Reconciler, cfg *entitlement.Config, logger *logrus.Logger) *Service {
	return &Service{
		Links:      links,
		Journal:    journal,
		Platform:   platform,
		Reconciler: reconciler,
		BaseRole:   cfg.BaseRole,
		GraceDays:  cfg.Audit.GraceDays,
		DryRun:     cfg.Audit.DryRun,
		Clock:      entitlement.SystemClock,
		Logger:     logger,
	}
}

// Run blocks until ctx is done, sweeping once per interval after an initial
// startup delay. The delay keeps the first sweep clear of deployment
// restarts.
func (s *Service) Run(ctx context.Context, startupDelay, interval time.Duration) {
	s.Logger.WithFields(logrus.Fields{
		"interval":      interval.String(),
		"startup_delay": startupDelay.String(),
		"dry_run":       s.DryRun,
	}).Info("audit scheduler started")

	select {
	case <-ctx.Done():
		return
	case <-time.After(startupDelay):
	}
	s.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("audit scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep re-audits every subscription record once. A fault on one record is
// logged and the sweep moves on; only a store read failure aborts.
func (s *Service) Sweep(ctx context.Context) Stats {
	s.Logger.Info("audit sweep started")
	var stats Stats

	records, err := s.Links.All()
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"code": err.Error()}).Error("audit sweep cannot read link store")
		stats.Faults++
		return stats
	}

	for _, rec := range records {
		stats.Scanned++
		if !rec.IsSubscription {
			continue
		}
		if err := s.auditRecord(ctx, rec, &stats); err != nil {
			stats.Faults++
			s.Logger.WithFields(logrus.Fields{
				"email": rec.Email,
				"code":  err.Error(),
			}).Error("audit record fault, continuing sweep")
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"scanned":    stats.Scanned,
		"skipped":    stats.Skipped,
		"overdue":    stats.Overdue,
		"downgraded": stats.Downgraded,
		"faults":     stats.Faults,
	}).Info("audit sweep finished")
	observeSweep(stats)
	return stats
}

func (s *Service) auditRecord(ctx context.Context, rec entitlement.EmailRecord, stats *Stats) error {
	// Missing payment timestamp: never guess. Downgrading a paying member is
	// a worse failure than a missed audit cycle.
	if rec.LastPaidAt == nil {
		stats.Skipped++
		s.Logger.WithFields(logrus.Fields{
			"email": rec.Email,
			"tier":  rec.Tier,
		}).Warn("subscription record has no payment timestamp, skipping")
		return nil
	}

	now := s.Clock.Now()
	daysOverdue := int(now.Sub(*rec.LastPaidAt).Hours() / 24)
	if daysOverdue < s.GraceDays {
		return nil
	}
	stats.Overdue++

	member, err := s.Platform.FetchMember(ctx, rec.CommunityUserID)
	if err != nil {
		return err
	}
	if member == nil {
		stats.Skipped++
		s.Logger.WithFields(logrus.Fields{
			"email":     rec.Email,
			"member_id": rec.CommunityUserID,
		}).Warn("overdue member no longer on platform, skipping")
		return nil
	}

	reason := fmt.Sprintf("subscription lapsed %d days after last payment", daysOverdue)

	if s.DryRun {
		s.Logger.WithFields(logrus.Fields{
			"email":        rec.Email,
			"member_id":    rec.CommunityUserID,
			"tier":         rec.Tier,
			"days_overdue": daysOverdue,
		}).Info("dry run: would downgrade lapsed subscription")
		s.Journal.Record(ctx, store.Event{
			Kind: "audit", Email: rec.Email, CommunityUserID: rec.CommunityUserID,
			Stage: "dry_run_detected", Detail: reason,
		})
		return nil
	}

	if err := s.Reconciler.DowngradeToBase(ctx, rec.CommunityUserID); err != nil {
		return err
	}

	auditedAt := now.UTC()
	rec.Tier = s.BaseRole
	rec.IsSubscription = false
	rec.LastAuditAt = &auditedAt
	rec.LastAuditReason = reason
	if err := s.Links.Put(rec); err != nil {
		return err
	}

	stats.Downgraded++
	s.Logger.WithFields(logrus.Fields{
		"email":        rec.Email,
		"member_id":    rec.CommunityUserID,
		"days_overdue": daysOverdue,
	}).Info("lapsed subscription downgraded to base tier")
	s.Journal.Record(ctx, store.Event{
		Kind: "audit", Email: rec.Email, CommunityUserID: rec.CommunityUserID,
		Stage: "downgraded", Detail: reason,
	})
	return nil
}
