package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	AuthAccountRepo AuthAccountRepositoryFacade
	ProfileRepo     ProfileRepositoryFacade
	SessionRepo     SessionRepositoryFacade
}
