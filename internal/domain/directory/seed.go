package directory

import (
	"context"
	"errors"

	"frpops/internal/platform/store"
)

// EnsureRootUser creates the protected root account when the users collection
// does not hold it yet. Runs before the initial load, so it writes straight to
// the store rather than through the mirror.
func (m *Manager) EnsureRootUser(ctx context.Context, username, passwordHash string) error {
	normalized := NormalizeUsername(username)
	_, err := m.store.FindOne(ctx, CollectionUsers, "username", normalized)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err = m.store.Insert(ctx, CollectionUsers, store.Document{
		"username": normalized,
		"password": passwordHash,
		"nik":      "",
		"jabatan":  "SUPER ADMIN",
		"lokasi":   "",
		"role":     RoleAdmin,
	})
	return err
}
