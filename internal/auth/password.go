package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword produces a salted one-way hash of the plaintext password.
// bcrypt generates a fresh salt per call, so hashing the same password twice
// yields different outputs.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// hash. Any error, including a malformed hash, counts as no match.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
