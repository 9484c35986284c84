package connect

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

func requestID() (string, error) {
	min := big.NewInt(100000000000000000)
	max := big.NewInt(999999999999999999)
	n, err := rand.Int(rand.Reader, new(big.Int).Sub(max, min))
	if err != nil {
		return "", err
	}

	n.Add(n, min)
	return n.String(), nil
}

// Hmac256 signs body with key and returns the hex digest.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// GenerateHash bcrypt-hashes a webhook secret for storage.
func GenerateHash(secret []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash checks a presented secret against its stored bcrypt hash.
func CompareHash(storedHash, presented []byte) bool {
	return bcrypt.CompareHashAndPassword(storedHash, presented) == nil
}

// VerifyHMAC confirms a received signature over message with key.
func VerifyHMAC(key, message []byte, receivedHMAC string) bool {
	expected := Hmac256(message, key)
	return hmac.Equal([]byte(receivedHMAC), []byte(expected))
}
