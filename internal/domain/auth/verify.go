package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"frpops/internal/domain/directory"
)

var (
	ErrUserNotFound = errors.New("auth: username not found")
	ErrBadPassword  = errors.New("auth: password mismatch")
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Verify scans the directory in store iteration order and resolves the first
// record whose username matches case-insensitively. Uniqueness is best-effort
// in the store, so duplicates resolve to the first match.
func Verify(username, password string, records []directory.UserRecord) (directory.UserRecord, error) {
	normalized := directory.NormalizeUsername(username)
	for _, rec := range records {
		if directory.NormalizeUsername(rec.Username) != normalized {
			continue
		}
		if err := CheckPassword(rec.PasswordHash, password); err != nil {
			return directory.UserRecord{}, ErrBadPassword
		}
		return rec, nil
	}
	return directory.UserRecord{}, ErrUserNotFound
}
