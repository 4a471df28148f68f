package domain

// OAuthUserInfo is what an upstream provider asserted about the user.
type OAuthUserInfo struct {
	Provider      Provider
	ProviderID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

// LinkOutcome records which branch of account resolution was taken.
type LinkOutcome string

const (
	LinkOutcomeCreated LinkOutcome = "created"
	LinkOutcomeLogin   LinkOutcome = "login"
	LinkOutcomeLinked  LinkOutcome = "linked"
)

// LinkResult is returned by account resolution.
type LinkResult struct {
	Account *AuthAccount
	Profile *Profile
	Outcome LinkOutcome
	// VerificationCode is the plaintext code to email when the branch issued
	// one. Only its hash is stored on the account.
	VerificationCode string
}

// PasswordSignup is the input of an email/password signup.
type PasswordSignup struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthResult is what every successful login path hands back to the caller.
type AuthResult struct {
	Tokens  TokenPair
	Session *Session
	Account *AuthAccount
	Profile *Profile
}
