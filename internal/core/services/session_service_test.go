package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock SessionRepository ---
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) FindSessionByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	var session *domain.Session
	if args.Get(0) != nil {
		session = args.Get(0).(*domain.Session)
	}
	return session, args.Error(1)
}

func (m *MockSessionRepository) ListActiveSessionsByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	args := m.Called(ctx, accountID)
	var sessions []domain.Session
	if args.Get(0) != nil {
		sessions = args.Get(0).([]domain.Session)
	}
	return sessions, args.Error(1)
}

func (m *MockSessionRepository) SaveSession(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	args := m.Called(ctx, sessionID, at)
	return args.Error(0)
}

func (m *MockSessionRepository) RevokeAllByAccount(ctx context.Context, accountID string, exceptSessionID string, at time.Time) ([]string, error) {
	args := m.Called(ctx, accountID, exceptSessionID, at)
	var ids []string
	if args.Get(0) != nil {
		ids = args.Get(0).([]string)
	}
	return ids, args.Error(1)
}

func (m *MockSessionRepository) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	args := m.Called(ctx, sessionID, at)
	return args.Error(0)
}

// fakeSessionCache is a map-backed SessionCache.
type fakeSessionCache struct {
	mu         sync.Mutex
	entries    map[string]domain.Session
	failGet    bool
	failWrites bool
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: map[string]domain.Session{}}
}

func (c *fakeSessionCache) Get(_ context.Context, sessionID string) (*domain.Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	s, ok := c.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *fakeSessionCache) Set(_ context.Context, session domain.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("cache down")
	}
	c.entries[session.SessionID] = session
	return nil
}

func (c *fakeSessionCache) Add(_ context.Context, session domain.Session) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return false, errors.New("cache down")
	}
	if _, ok := c.entries[session.SessionID]; ok {
		return false, nil
	}
	c.entries[session.SessionID] = session
	return true, nil
}

func (c *fakeSessionCache) setFailWrites(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrites = fail
}

func (c *fakeSessionCache) has(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[sessionID]
	return ok
}

// revoked reports whether the cache holds a tombstone for the id.
func (c *fakeSessionCache) revoked(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[sessionID]
	return ok && !s.IsActive()
}

type SessionServiceTestSuite struct {
	suite.Suite
	repo    *MockSessionRepository
	cache   *fakeSessionCache
	now     time.Time
	service portssvc.SessionSvcFacade
}

func (suite *SessionServiceTestSuite) SetupTest() {
	suite.repo = new(MockSessionRepository)
	suite.cache = newFakeSessionCache()
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.service = services.NewSessionService(suite.repo,
		services.WithSessionCache(suite.cache),
		services.WithSessionClock(func() time.Time { return suite.now }))
}

func (suite *SessionServiceTestSuite) activeSession(id, owner string) *domain.Session {
	return &domain.Session{
		SessionID:     id,
		AuthAccountID: owner,
		AuthMethod:    domain.ProviderEmail,
		CreatedAt:     suite.now.Add(-time.Hour),
		LastActiveAt:  suite.now.Add(-time.Minute),
	}
}

func (suite *SessionServiceTestSuite) TestCreateSession_ParsesRequest() {
	ctx := context.Background()
	suite.repo.On("SaveSession", ctx, mock.MatchedBy(func(s domain.Session) bool {
		return s.AuthAccountID == "acct-1" && len(s.SessionID) == 64
	})).Return(nil).Once()

	session, err := suite.service.CreateSession(ctx, domain.CreateSessionInput{
		AuthAccountID: "acct-1",
		AuthMethod:    domain.ProviderGoogle,
		RequestContext: domain.RequestContext{
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ForwardedFor:  "203.0.113.7, 10.0.0.1",
			RemoteAddress: "10.0.0.1:5555",
		},
	})
	suite.Require().NoError(err)
	suite.Equal("Chrome 120", session.Browser)
	suite.Equal("Windows 10", session.OS)
	suite.Equal("Desktop", session.Device)
	suite.Equal("203.0.113.7", session.IPAddress)
	suite.Equal(domain.ProviderGoogle, session.AuthMethod)
	suite.Equal(suite.now, session.CreatedAt)
	suite.Equal(suite.now, session.LastActiveAt)
	suite.Nil(session.RevokedAt)
	suite.True(suite.cache.has(session.SessionID))
	suite.repo.AssertExpectations(suite.T())
}

func (suite *SessionServiceTestSuite) TestCreateSession_PlatformVersionHintNamesWindows11() {
	ctx := context.Background()
	suite.repo.On("SaveSession", ctx, mock.Anything).Return(nil).Once()

	session, err := suite.service.CreateSession(ctx, domain.CreateSessionInput{
		AuthAccountID: "acct-1",
		AuthMethod:    domain.ProviderEmail,
		RequestContext: domain.RequestContext{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PlatformVersion: `"15.0.0"`,
		},
	})
	suite.Require().NoError(err)
	suite.Equal("Windows 11", session.OS)
}

func (suite *SessionServiceTestSuite) TestCreateSession_SaveFails() {
	ctx := context.Background()
	suite.repo.On("SaveSession", ctx, mock.Anything).Return(errors.New("db down")).Once()

	session, err := suite.service.CreateSession(ctx, domain.CreateSessionInput{AuthAccountID: "acct-1", AuthMethod: domain.ProviderEmail})
	suite.Nil(session)
	suite.True(apperrors.IsKind(err, apperrors.KindInternal))
}

func (suite *SessionServiceTestSuite) TestListSessions_EmptyIsNotNil() {
	ctx := context.Background()
	suite.repo.On("ListActiveSessionsByAccount", ctx, "acct-1").Return(nil, nil).Once()

	sessions, err := suite.service.ListSessions(ctx, "acct-1")
	suite.Require().NoError(err)
	suite.NotNil(sessions)
	suite.Empty(sessions)
}

func (suite *SessionServiceTestSuite) TestRevokeSession_NotFound() {
	ctx := context.Background()
	suite.repo.On("FindSessionByID", ctx, "missing").Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.RevokeSession(ctx, "missing", "acct-1")
	suite.ErrorIs(err, apperrors.ErrSessionNotFound)
}

func (suite *SessionServiceTestSuite) TestRevokeSession_OtherOwnerForbidden() {
	ctx := context.Background()
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(suite.activeSession("sess-1", "acct-2"), nil).Once()

	err := suite.service.RevokeSession(ctx, "sess-1", "acct-1")
	suite.ErrorIs(err, apperrors.ErrSessionForbidden)
	suite.repo.AssertNotCalled(suite.T(), "RevokeSession", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SessionServiceTestSuite) TestRevokeSession_RevokesAndMarksCache() {
	ctx := context.Background()
	session := suite.activeSession("sess-1", "acct-1")
	suite.Require().NoError(suite.cache.Set(ctx, *session))
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(session, nil).Once()
	suite.repo.On("RevokeSession", ctx, "sess-1", suite.now).Return(nil).Once()

	suite.NoError(suite.service.RevokeSession(ctx, "sess-1", "acct-1"))
	suite.True(suite.cache.revoked("sess-1"))
	suite.ErrorIs(suite.service.CheckSession(ctx, "sess-1", "acct-1"), apperrors.ErrSessionRevoked)
	suite.repo.AssertExpectations(suite.T())
}

// A lookup that read the row before the revoke must not put the live copy
// back into the cache once the revoke has landed.
func (suite *SessionServiceTestSuite) TestRevokeWinsOverConcurrentCacheFill() {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})

	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(suite.activeSession("sess-1", "acct-1"), nil).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).Once()
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(suite.activeSession("sess-1", "acct-1"), nil).Once()
	suite.repo.On("RevokeSession", ctx, "sess-1", suite.now).Return(nil).Once()

	inFlight := make(chan error, 1)
	go func() { inFlight <- suite.service.CheckSession(ctx, "sess-1", "acct-1") }()

	<-entered
	suite.Require().NoError(suite.service.RevokeSession(ctx, "sess-1", "acct-1"))
	close(release)

	// The in-flight check read the row before the revoke.
	suite.NoError(<-inFlight)
	suite.True(suite.cache.revoked("sess-1"))
	suite.ErrorIs(suite.service.CheckSession(ctx, "sess-1", "acct-1"), apperrors.ErrSessionRevoked)
	suite.repo.AssertExpectations(suite.T())
}

func (suite *SessionServiceTestSuite) TestRevokeSession_CacheWriteFailureIsReported() {
	ctx := context.Background()
	session := suite.activeSession("sess-1", "acct-1")
	suite.Require().NoError(suite.cache.Set(ctx, *session))
	revokedAt := suite.now
	revoked := suite.activeSession("sess-1", "acct-1")
	revoked.RevokedAt = &revokedAt

	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(session, nil).Once()
	suite.repo.On("RevokeSession", ctx, "sess-1", suite.now).Return(nil).Once()
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(revoked, nil).Once()

	suite.cache.setFailWrites(true)
	err := suite.service.RevokeSession(ctx, "sess-1", "acct-1")
	suite.True(apperrors.IsKind(err, apperrors.KindInternal))

	// Retrying against the already revoked row repairs the cache.
	suite.cache.setFailWrites(false)
	suite.NoError(suite.service.RevokeSession(ctx, "sess-1", "acct-1"))
	suite.True(suite.cache.revoked("sess-1"))
	suite.ErrorIs(suite.service.CheckSession(ctx, "sess-1", "acct-1"), apperrors.ErrSessionRevoked)
	suite.repo.AssertNumberOfCalls(suite.T(), "RevokeSession", 1)
}

func (suite *SessionServiceTestSuite) TestRevokeSession_AlreadyRevokedIsIdempotent() {
	ctx := context.Background()
	session := suite.activeSession("sess-1", "acct-1")
	revokedAt := suite.now.Add(-time.Minute)
	session.RevokedAt = &revokedAt
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(session, nil).Once()

	suite.NoError(suite.service.RevokeSession(ctx, "sess-1", "acct-1"))
	suite.repo.AssertNotCalled(suite.T(), "RevokeSession", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SessionServiceTestSuite) TestRevokeAllSessions_KeepsCurrent() {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "keep"} {
		suite.Require().NoError(suite.cache.Set(ctx, *suite.activeSession(id, "acct-1")))
	}
	suite.repo.On("RevokeAllByAccount", ctx, "acct-1", "keep", suite.now).Return([]string{"a", "b"}, nil).Once()

	n, err := suite.service.RevokeAllSessions(ctx, "acct-1", "keep")
	suite.Require().NoError(err)
	suite.Equal(2, n)
	suite.True(suite.cache.revoked("a"))
	suite.True(suite.cache.revoked("b"))
	suite.True(suite.cache.has("keep"))
	suite.False(suite.cache.revoked("keep"))
}

func (suite *SessionServiceTestSuite) TestRevokeAllSessions_CacheWriteFailureIsReported() {
	ctx := context.Background()
	suite.Require().NoError(suite.cache.Set(ctx, *suite.activeSession("a", "acct-1")))
	suite.repo.On("RevokeAllByAccount", ctx, "acct-1", "", suite.now).Return([]string{"a"}, nil).Once()

	suite.cache.setFailWrites(true)
	n, err := suite.service.RevokeAllSessions(ctx, "acct-1", "")
	suite.Equal(1, n)
	suite.True(apperrors.IsKind(err, apperrors.KindInternal))
}

func (suite *SessionServiceTestSuite) TestTouchSession_SwallowsErrors() {
	ctx := context.Background()
	suite.repo.On("TouchSession", ctx, "sess-1", suite.now).Return(errors.New("db down")).Once()

	suite.NotPanics(func() { suite.service.TouchSession(ctx, "sess-1") })
	suite.repo.AssertExpectations(suite.T())
}

func (suite *SessionServiceTestSuite) TestTouchSession_EmptyIDIsNoop() {
	suite.service.TouchSession(context.Background(), "")
	suite.repo.AssertNotCalled(suite.T(), "TouchSession", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SessionServiceTestSuite) TestCheckSession() {
	ctx := context.Background()
	revokedAt := suite.now.Add(-time.Minute)
	revoked := suite.activeSession("revoked", "acct-1")
	revoked.RevokedAt = &revokedAt

	suite.repo.On("FindSessionByID", ctx, "live").Return(suite.activeSession("live", "acct-1"), nil).Once()
	suite.repo.On("FindSessionByID", ctx, "revoked").Return(revoked, nil).Once()
	suite.repo.On("FindSessionByID", ctx, "gone").Return(nil, apperrors.ErrNotFound).Once()

	suite.NoError(suite.service.CheckSession(ctx, "live", "acct-1"))
	suite.ErrorIs(suite.service.CheckSession(ctx, "live", "acct-2"), apperrors.ErrSessionMismatch)
	suite.ErrorIs(suite.service.CheckSession(ctx, "revoked", "acct-1"), apperrors.ErrSessionRevoked)
	suite.ErrorIs(suite.service.CheckSession(ctx, "gone", "acct-1"), apperrors.ErrSessionRevoked)

	// "live" was cached by the first lookup, the repository saw it once.
	suite.repo.AssertNumberOfCalls(suite.T(), "FindSessionByID", 3)
	suite.False(suite.cache.has("revoked"))
}

func (suite *SessionServiceTestSuite) TestIsSessionActive_CacheFailureFallsBack() {
	ctx := context.Background()
	suite.cache.failGet = true
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(suite.activeSession("sess-1", "acct-1"), nil).Once()

	active, err := suite.service.IsSessionActive(ctx, "sess-1")
	suite.Require().NoError(err)
	suite.True(active)
}

func (suite *SessionServiceTestSuite) TestIsSessionActive_RepositoryError() {
	ctx := context.Background()
	suite.repo.On("FindSessionByID", ctx, "sess-1").Return(nil, errors.New("db down")).Once()

	active, err := suite.service.IsSessionActive(ctx, "sess-1")
	suite.False(active)
	suite.True(apperrors.IsKind(err, apperrors.KindInternal))
}

func TestSessionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceTestSuite))
}

func TestSessionService_WithoutCache(t *testing.T) {
	repo := new(MockSessionRepository)
	svc := services.NewSessionService(repo)
	ctx := context.Background()
	repo.On("FindSessionByID", ctx, "sess-1").Return(&domain.Session{SessionID: "sess-1", AuthAccountID: "acct-1"}, nil).Twice()

	assert.NoError(t, svc.CheckSession(ctx, "sess-1", "acct-1"))
	assert.NoError(t, svc.CheckSession(ctx, "sess-1", "acct-1"))
	repo.AssertExpectations(t)
}
