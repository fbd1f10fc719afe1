package core

// ArtifactStore persists opaque binary payloads scoped to a session.
// Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Save stores or replaces an artifact.
	Save(sessionID, artifactID string, data []byte) error

	// Get returns the artifact data or an implementation not-found error.
	Get(sessionID, artifactID string) ([]byte, error)

	// List returns the artifact ids of a session in lexical order.
	List(sessionID string) ([]string, error)

	// Delete removes an artifact, erroring when it does not exist.
	Delete(sessionID, artifactID string) error
}
