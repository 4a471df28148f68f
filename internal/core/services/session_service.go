package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/metrics"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
)

const sessionIDBytes = 32

// sessionService tracks one record per logged-in device.
type sessionService struct {
	BaseService
	sessionRepo portsrepo.SessionRepositoryFacade
	cache       portsrepo.SessionCache
}

// SessionServiceOption configures the session service.
type SessionServiceOption func(*sessionService)

// WithSessionCache enables the liveness cache.
func WithSessionCache(cache portsrepo.SessionCache) SessionServiceOption {
	return func(s *sessionService) {
		s.cache = cache
	}
}

// WithSessionClock overrides the clock used for timestamps.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		s.BaseService = newBaseService(now)
	}
}

// NewSessionService creates a new session tracker.
func NewSessionService(sessionRepo portsrepo.SessionRepositoryFacade, opts ...SessionServiceOption) portssvc.SessionSvcFacade {
	s := &sessionService{
		BaseService: newBaseService(nil),
		sessionRepo: sessionRepo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.SessionSvcFacade = (*sessionService)(nil)

// CreateSession persists a new active session derived from the request.
func (s *sessionService) CreateSession(ctx context.Context, input domain.CreateSessionInput) (*domain.Session, error) {
	if input.AuthAccountID == "" {
		return nil, fmt.Errorf("create session: %w", apperrors.ErrValidation)
	}
	sessionID, err := utils.GenerateSecureRandomString(sessionIDBytes)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate session id", err)
	}

	// Derive the display fields from the request
	rc := input.RequestContext
	ua := utils.ParseUserAgent(rc.UserAgent).WithPlatformVersion(rc.PlatformVersion)
	now := s.Now()
	session := domain.Session{
		SessionID:     sessionID,
		AuthAccountID: input.AuthAccountID,
		AuthMethod:    input.AuthMethod,
		CreatedAt:     now,
		LastActiveAt:  now,
		Browser:       ua.Browser,
		OS:            ua.OS,
		Device:        ua.Device,
		IPAddress:     utils.ClientIP(rc.ForwardedFor, rc.RealIP, rc.RemoteAddress),
	}

	if err := s.sessionRepo.SaveSession(ctx, session); err != nil {
		s.LogError(ctx, err, "Failed to save session", slog.String("auth_account_id", input.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to create session", err)
	}
	s.cacheSet(ctx, session)

	s.LogInfo(ctx, "Session created",
		slog.String("auth_account_id", session.AuthAccountID),
		slog.String("auth_method", string(session.AuthMethod)),
		slog.String("device", session.Device))
	return &session, nil
}

// ListSessions returns active sessions, most recently active first.
func (s *sessionService) ListSessions(ctx context.Context, authAccountID string) ([]domain.Session, error) {
	sessions, err := s.sessionRepo.ListActiveSessionsByAccount(ctx, authAccountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list sessions", slog.String("auth_account_id", authAccountID))
		return nil, apperrors.NewInternalError("failed to list sessions", err)
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return sessions, nil
}

// RevokeSession revokes a session owned by the requesting account.
func (s *sessionService) RevokeSession(ctx context.Context, sessionID string, requestingAccountID string) error {
	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrSessionNotFound
		}
		s.LogError(ctx, err, "Failed to load session for revocation", slog.String("session_id", sessionID))
		return apperrors.NewInternalError("failed to revoke session", err)
	}
	if session.AuthAccountID != requestingAccountID {
		s.GetLogger(ctx).WarnContext(ctx, "Attempt to revoke another account's session",
			slog.String("session_id", sessionID),
			slog.String("requesting_account_id", requestingAccountID))
		return apperrors.ErrSessionForbidden
	}
	if !session.IsActive() {
		// Already revoked: only make sure the cache agrees, which repairs an
		// earlier revocation whose cache write failed.
		return s.ForgetSessions(ctx, sessionID)
	}

	if err := s.sessionRepo.RevokeSession(ctx, sessionID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to revoke session", slog.String("session_id", sessionID))
		return apperrors.NewInternalError("failed to revoke session", err)
	}
	metrics.RecordSessionRevocations("self_service", 1)

	// The row is revoked; the request only succeeds once no cached copy can
	// still report the session as live.
	if err := s.ForgetSessions(ctx, sessionID); err != nil {
		return err
	}
	s.LogInfo(ctx, "Session revoked", slog.String("session_id", sessionID))
	return nil
}

// RevokeAllSessions revokes every active session of the account except one.
func (s *sessionService) RevokeAllSessions(ctx context.Context, authAccountID string, exceptSessionID string) (int, error) {
	revoked, err := s.sessionRepo.RevokeAllByAccount(ctx, authAccountID, exceptSessionID, s.Now())
	if err != nil {
		s.LogError(ctx, err, "Failed to revoke sessions", slog.String("auth_account_id", authAccountID))
		return 0, apperrors.NewInternalError("failed to revoke sessions", err)
	}
	metrics.RecordSessionRevocations("revoke_all", len(revoked))

	if err := s.ForgetSessions(ctx, revoked...); err != nil {
		return len(revoked), err
	}
	return len(revoked), nil
}

// TouchSession updates lastActiveAt. Failures are only logged.
func (s *sessionService) TouchSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessionRepo.TouchSession(ctx, sessionID, s.Now()); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogWarn(ctx, err, "Failed to touch session", slog.String("session_id", sessionID))
	}
}

// IsSessionActive reports whether the session exists and is not revoked.
func (s *sessionService) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.lookup(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.IsActive(), nil
}

// CheckSession validates that the session is live and owned by the account.
func (s *sessionService) CheckSession(ctx context.Context, sessionID string, authAccountID string) error {
	session, err := s.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.IsActive() {
		return apperrors.ErrSessionRevoked
	}
	if session.AuthAccountID != authAccountID {
		return apperrors.ErrSessionMismatch
	}
	return nil
}

// ForgetSessions overwrites cached liveness entries with revoked tombstones.
// It fails when any tombstone could not be written.
func (s *sessionService) ForgetSessions(ctx context.Context, sessionIDs ...string) error {
	if s.cache == nil || len(sessionIDs) == 0 {
		return nil
	}

	revokedAt := s.Now()
	var errs []error
	for _, id := range sessionIDs {
		tombstone := domain.Session{SessionID: id, RevokedAt: &revokedAt}
		if err := s.cache.Set(ctx, tombstone); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.LogError(ctx, err, "Failed to mark sessions revoked in cache",
			slog.Int("count", len(sessionIDs)),
			slog.Int("failed", len(errs)))
		return apperrors.NewInternalError("failed to revoke session", err)
	}
	return nil
}

// lookup resolves a session through the cache. A missing session is
// returned as nil with no error.
func (s *sessionService) lookup(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	// Cache first; a cache failure degrades to a database read
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.LogWarn(ctx, err, "Session cache read failed", slog.String("session_id", sessionID))
		} else if ok {
			return cached, nil
		}
	}

	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		s.LogError(ctx, err, "Failed to load session", slog.String("session_id", sessionID))
		return nil, apperrors.NewInternalError("failed to check session", err)
	}
	// Fill only when nothing is cached yet. A tombstone written while the
	// row was being read must survive this write.
	if session.IsActive() {
		s.cacheAdd(ctx, *session)
	}
	return session, nil
}

func (s *sessionService) cacheAdd(ctx context.Context, session domain.Session) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Add(ctx, session); err != nil {
		s.LogWarn(ctx, err, "Failed to cache session", slog.String("session_id", session.SessionID))
	}
}

func (s *sessionService) cacheSet(ctx context.Context, session domain.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.LogWarn(ctx, err, "Failed to cache session", slog.String("session_id", session.SessionID))
	}
}
