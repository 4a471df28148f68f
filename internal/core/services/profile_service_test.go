package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/core/services"
	"github.com/SscSPs/saas_starter_auth/internal/repositories/memory"
	"github.com/stretchr/testify/suite"
)

type ProfileServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	repos    portsrepo.RepositoryProvider
	linking  portssvc.AccountLinkingSvc
	sessions portssvc.SessionSvcFacade
	service  portssvc.ProfileSvcFacade
}

func (suite *ProfileServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return suite.now }
	suite.repos = memory.NewRepositoryProvider()
	suite.linking = services.NewAccountLinkingService(testConfig(), suite.repos.AuthAccountRepo, suite.repos.ProfileRepo,
		services.WithLinkingClock(clock))
	suite.sessions = services.NewSessionService(suite.repos.SessionRepo, services.WithSessionClock(clock))
	suite.service = services.NewProfileService(suite.repos, suite.sessions, services.WithProfileClock(clock))
}

func (suite *ProfileServiceTestSuite) oauthAccount(email string) *domain.LinkResult {
	result, err := suite.linking.ResolveOAuthLogin(suite.ctx, domain.OAuthUserInfo{
		Provider:   domain.ProviderGoogle,
		ProviderID: "g-" + email,
		Email:      email,
		FirstName:  "Ada",
		LastName:   "Lovelace",
	})
	suite.Require().NoError(err)
	return result
}

func (suite *ProfileServiceTestSuite) TestGetAccountWithProfile() {
	created := suite.oauthAccount("ada@example.com")

	account, profile, err := suite.service.GetAccountWithProfile(suite.ctx, created.Account.AuthAccountID)
	suite.Require().NoError(err)
	suite.Equal("ada@example.com", account.Email)
	suite.Equal(created.Profile.Username, profile.Username)

	_, _, err = suite.service.GetAccountWithProfile(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *ProfileServiceTestSuite) TestUpdateProfileAppliesOnlyGivenFields() {
	created := suite.oauthAccount("ada@example.com")
	first := "Augusta"
	bio := "  Analyst  "

	profile, err := suite.service.UpdateProfile(suite.ctx, created.Account.AuthAccountID, domain.ProfileUpdate{
		FirstName:      &first,
		Bio:            &bio,
		SocialAccounts: []domain.SocialAccount{{Provider: "github", URL: "https://github.com/ada"}},
		Preferences:    &domain.Preferences{Theme: "dark"},
	})
	suite.Require().NoError(err)

	suite.Equal("Augusta", profile.FirstName)
	suite.Equal("Lovelace", profile.LastName)
	suite.Require().NotNil(profile.Bio)
	suite.Equal("Analyst", *profile.Bio)
	suite.Equal(domain.Preferences{Theme: "dark", Font: "default"}, profile.Preferences)
	suite.Len(profile.SocialAccounts, 1)
	suite.Equal(created.Profile.Username, profile.Username)

	_, stored, err := suite.service.GetAccountWithProfile(suite.ctx, created.Account.AuthAccountID)
	suite.Require().NoError(err)
	suite.Equal("Augusta", stored.FirstName)
}

func (suite *ProfileServiceTestSuite) TestUpdateProfileValidation() {
	created := suite.oauthAccount("ada@example.com")
	empty := "  "
	future := suite.now.Add(48 * time.Hour).AddDate(10, 0, 0)

	_, err := suite.service.UpdateProfile(suite.ctx, created.Account.AuthAccountID, domain.ProfileUpdate{
		FirstName: &empty,
		DOB:       &future,
	})
	suite.Require().ErrorIs(err, apperrors.ErrInvalidInput)

	var appErr *apperrors.AppError
	suite.Require().ErrorAs(err, &appErr)
	suite.Len(appErr.Fields, 2)
}

func (suite *ProfileServiceTestSuite) TestChangeUsernameIsSingleUse() {
	created := suite.oauthAccount("ada@example.com")
	id := created.Account.AuthAccountID

	profile, err := suite.service.ChangeUsername(suite.ctx, id, "  Countess_Ada ")
	suite.Require().NoError(err)
	suite.Equal("countess_ada", profile.Username)
	suite.True(profile.HasChangedUsername)

	_, err = suite.service.ChangeUsername(suite.ctx, id, "another_name")
	suite.ErrorIs(err, apperrors.ErrUsernameAlreadyChanged)
	suite.True(apperrors.IsKind(err, apperrors.KindConflict))

	// Regardless of payload.
	_, err = suite.service.ChangeUsername(suite.ctx, id, "!")
	suite.ErrorIs(err, apperrors.ErrUsernameAlreadyChanged)

	_, stored, err := suite.service.GetAccountWithProfile(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal("countess_ada", stored.Username)
	suite.True(stored.HasChangedUsername)
}

func (suite *ProfileServiceTestSuite) TestChangeUsernameTakenKeepsAllowance() {
	ada := suite.oauthAccount("ada@example.com")
	bob := suite.oauthAccount("bob@example.com")

	_, err := suite.service.ChangeUsername(suite.ctx, bob.Account.AuthAccountID, ada.Profile.Username)
	suite.ErrorIs(err, apperrors.ErrUsernameTaken)

	profile, err := suite.service.ChangeUsername(suite.ctx, bob.Account.AuthAccountID, "bob_the_builder")
	suite.Require().NoError(err)
	suite.Equal("bob_the_builder", profile.Username)
}

func (suite *ProfileServiceTestSuite) TestChangeUsernameRejectsInvalid() {
	created := suite.oauthAccount("ada@example.com")

	_, err := suite.service.ChangeUsername(suite.ctx, created.Account.AuthAccountID, "a!")
	suite.ErrorIs(err, apperrors.ErrInvalidInput)

	_, err = suite.service.ChangeUsername(suite.ctx, "missing", "valid_name")
	suite.ErrorIs(err, apperrors.ErrProfileNotFound)
}

func (suite *ProfileServiceTestSuite) TestConcurrentUsernameChangesApplyOnce() {
	created := suite.oauthAccount("ada@example.com")
	id := created.Account.AuthAccountID

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := suite.service.ChangeUsername(suite.ctx, id, fmt.Sprintf("name_%d", i)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	suite.Equal(1, successes)
}

func (suite *ProfileServiceTestSuite) TestDeleteOAuthUserWithoutPassword() {
	created := suite.oauthAccount("ada@example.com")
	id := created.Account.AuthAccountID
	session, err := suite.sessions.CreateSession(suite.ctx, domain.CreateSessionInput{AuthAccountID: id, AuthMethod: domain.ProviderGoogle})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.DeleteUser(suite.ctx, id, ""))

	_, err = suite.repos.AuthAccountRepo.FindAccountByID(suite.ctx, id)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.repos.ProfileRepo.FindProfileByAccountID(suite.ctx, id)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	active, err := suite.sessions.IsSessionActive(suite.ctx, session.SessionID)
	suite.Require().NoError(err)
	suite.False(active)

	suite.ErrorIs(suite.service.DeleteUser(suite.ctx, id, ""), apperrors.ErrAccountNotFound)
}

func (suite *ProfileServiceTestSuite) TestDeletePasswordUserRequiresPassword() {
	created, err := suite.linking.RegisterWithPassword(suite.ctx, domain.PasswordSignup{
		FirstName: "Alice",
		Email:     "alice@example.com",
		Password:  "Abc12345!",
	})
	suite.Require().NoError(err)
	id := created.Account.AuthAccountID

	suite.ErrorIs(suite.service.DeleteUser(suite.ctx, id, ""), apperrors.ErrInvalidInput)
	suite.ErrorIs(suite.service.DeleteUser(suite.ctx, id, "Wrong1234"), apperrors.ErrInvalidInput)
	suite.Require().NoError(suite.service.DeleteUser(suite.ctx, id, "Abc12345!"))

	_, err = suite.repos.AuthAccountRepo.FindAccountByEmail(suite.ctx, "alice@example.com")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestProfileServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceTestSuite))
}
