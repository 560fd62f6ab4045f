package auth

import "golang.org/x/crypto/bcrypt"

// HashEmergencyKey hashes the shared emergency key for storage in config
func HashEmergencyKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyEmergencyKey checks a presented key against the configured hash
func VerifyEmergencyKey(key, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
