package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// TokenRepository defines the interface for bearer token persistence (Redis).
// Tokens are opaque keys associated 1:1 with a user.
type TokenRepository interface {
	// GetOrCreateToken returns the user's existing token key, generating
	// and storing a fresh one if none exists. The boolean reports whether
	// a new token was created. The get-or-create is a check-then-act and
	// is not atomic across concurrent first-time issuers.
	GetOrCreateToken(ctx context.Context, userID uuid.UUID) (string, bool, error)

	// GetUserIDByToken resolves a presented token key to the owning user.
	// Returns models.ErrTokenNotFound if the key is unknown.
	GetUserIDByToken(ctx context.Context, key string) (uuid.UUID, error)

	// DeleteTokenByUserID revokes the user's token, if any.
	// Returns the number of keys deleted.
	DeleteTokenByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
