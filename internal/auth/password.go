package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost of 12 keeps hashing time reasonable while staying well
// above the library default.
const bcryptCost = 12

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
