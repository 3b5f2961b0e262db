// Package verifier runs the interactive verification workflow: link an email
// claim to the requesting member, resolve their purchases into a tier, and
// reconcile the platform roles to match.
package verifier

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/apperr"
	"github.com/downtowncxsh/xplx-access-bot/commerce"
	"github.com/downtowncxsh/xplx-access-bot/entitlement"
	"github.com/downtowncxsh/xplx-access-bot/membership"
	"github.com/downtowncxsh/xplx-access-bot/store"
)

// Request is one inbound verification attempt.
type Request struct {
	Email      string
	MemberID   string
	DisplayTag string
}

// Result carries the terminal outcome plus the granted tier role when
// verification succeeded.
type Result struct {
	RequestID string
	Outcome   Outcome
	TierRole  string
	Err       error
}

// Service orchestrates one verification request end to end. Safe for
// concurrent use; all store mutations serialize inside Links.
type Service struct {
	Links      *store.Links
	Journal    *store.Journal
	Gateway    commerce.Gateway
	Reconciler *membership.Reconciler
	Resolver   *entitlement.Resolver
	Logger     *logrus.Logger

	validate *validator.Validate
}

func NewService(links *store.Links, journal *store.Journal, gateway commerce.Gateway,
	reconciler *membership.Reconciler, resolver *entitlement.Resolver, logger *logrus.Logger) *Service {
	return &Service{
		Links:      links,
		Journal:    journal,
		Gateway:    gateway,
		Reconciler: reconciler,
		Resolver:   resolver,
		Logger:     logger,
		validate:   validator.New(),
	}
}

// emit writes one structured log line and one journal row per workflow
// transition. Decisions are made first, then reported here, so the core
// stays testable without a live journal.
func (s *Service) emit(ctx context.Context, requestID string, req Request, stage string, outcome Outcome, detail string) {
	s.Logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"email":      entitlement.NormalizeEmail(req.Email),
		"member_id":  req.MemberID,
		"stage":      stage,
		"outcome":    string(outcome),
		"detail":     detail,
	}).Info("verification transition")
	s.Journal.Record(ctx, store.Event{
		RequestID:       requestID,
		Kind:            "verification",
		Email:           entitlement.NormalizeEmail(req.Email),
		CommunityUserID: req.MemberID,
		Stage:           stage,
		Outcome:         string(outcome),
		Detail:          detail,
	})
}

// Verify runs the workflow to a terminal outcome. It is idempotent: re-running
// for an already-bound email re-resolves and re-reconciles with no side
// effects beyond refreshing the record.
func (s *Service) Verify(ctx context.Context, req Request) Result {
	requestID := uuid.NewString()
	email := entitlement.NormalizeEmail(req.Email)
	s.emit(ctx, requestID, req, "received", "", "")

	if err := s.validate.Var(email, "required,email"); err != nil {
		s.emit(ctx, requestID, req, "terminal", OutcomeInvalidEmail, "")
		return Result{RequestID: requestID, Outcome: OutcomeInvalidEmail, Err: apperr.ErrInvalidEmail}
	}

	existing, err := s.Links.Get(email)
	if err != nil {
		s.emit(ctx, requestID, req, "terminal", OutcomeFailed, "link store read: "+err.Error())
		return Result{RequestID: requestID, Outcome: OutcomeFailed, Err: apperr.Wrap(err, apperr.ErrStore, "")}
	}
	if existing != nil && existing.CommunityUserID != req.MemberID {
		// The existing binding is authoritative. Refuse without touching
		// roles or the record.
		s.emit(ctx, requestID, req, "terminal", OutcomeAlreadyLinked, "bound to "+existing.CommunityUserID)
		return Result{RequestID: requestID, Outcome: OutcomeAlreadyLinked, Err: apperr.ErrBindingConflict}
	}

	items, err := s.Gateway.FetchPaidLineItems(ctx, email)
	if err != nil {
		s.emit(ctx, requestID, req, "terminal", OutcomeFailed, "gateway: "+err.Error())
		return Result{RequestID: requestID, Outcome: OutcomeFailed, Err: apperr.Wrap(err, apperr.ErrGateway, "")}
	}
	s.emit(ctx, requestID, req, "purchases_fetched", "", "")

	if len(items) == 0 {
		s.emit(ctx, requestID, req, "terminal", OutcomeNoPaidOrder, "")
		return Result{RequestID: requestID, Outcome: OutcomeNoPaidOrder}
	}

	tier, ok := s.Resolver.Resolve(entitlement.Titles(items))
	if !ok {
		s.emit(ctx, requestID, req, "terminal", OutcomePaidNoTierMatch, "")
		return Result{RequestID: requestID, Outcome: OutcomePaidNoTierMatch}
	}
	s.emit(ctx, requestID, req, "tier_resolved", "", tier.RoleName)

	if err := s.Reconciler.GrantExclusive(ctx, req.MemberID, tier.RoleName); err != nil {
		if errors.Is(err, apperr.ErrRoleConfig) {
			s.emit(ctx, requestID, req, "terminal", OutcomeRoleConfigError, err.Error())
			return Result{RequestID: requestID, Outcome: OutcomeRoleConfigError, Err: err}
		}
		s.emit(ctx, requestID, req, "terminal", OutcomeFailed, "reconcile: "+err.Error())
		return Result{RequestID: requestID, Outcome: OutcomeFailed, Err: err}
	}
	s.emit(ctx, requestID, req, "role_reconciled", "", tier.RoleName)

	rec := entitlement.EmailRecord{
		Email:           email,
		CommunityUserID: req.MemberID,
		DisplayTag:      req.DisplayTag,
		Tier:            tier.RoleName,
		IsSubscription:  s.Resolver.IsSubscriptionFor(items, tier),
		LastPaidAt:      s.Resolver.LastPaidFor(items, tier),
	}
	if err := s.Links.Put(rec); err != nil {
		// Role is already granted; the record write failing must still be a
		// loud terminal failure so the user retries and the store converges.
		s.emit(ctx, requestID, req, "terminal", OutcomeFailed, "link store write: "+err.Error())
		return Result{RequestID: requestID, Outcome: OutcomeFailed, Err: apperr.Wrap(err, apperr.ErrStore, "")}
	}

	s.emit(ctx, requestID, req, "terminal", OutcomeVerified, tier.RoleName)
	return Result{RequestID: requestID, Outcome: OutcomeVerified, TierRole: tier.RoleName}
}
