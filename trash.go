package stagehand

// Trash stores content that a destructive operation is about to remove, so
// the user can still recover it by hand afterwards. Implementations keep
// the files outside the repository.
type Trash interface {
	// Deposit writes content under a unique name derived from stem and
	// returns the path of the stored file.
	Deposit(stem string, content []byte) (string, error)
}
