package connect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHmac256_Deterministic(t *testing.T) {
	key := []byte("signing-key")
	body := []byte(`{"requestId":"123"}`)

	first := Hmac256(body, key)
	second := Hmac256(body, key)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, Hmac256(body, []byte("other-key")))
}

func TestVerifyHMAC(t *testing.T) {
	key := []byte("signing-key")
	message := []byte("settlement body")
	signature := Hmac256(message, key)

	assert.True(t, VerifyHMAC(key, message, signature))
	assert.False(t, VerifyHMAC(key, message, "tampered"))
	assert.False(t, VerifyHMAC([]byte("wrong"), message, signature))
}

func TestWebhookSecretHash(t *testing.T) {
	hash, err := GenerateHash([]byte("hook-secret"))
	require.NoError(t, err)

	assert.True(t, CompareHash([]byte(hash), []byte("hook-secret")))
	assert.False(t, CompareHash([]byte(hash), []byte("wrong-secret")))
}

func TestRequestID_Unique(t *testing.T) {
	a, err := requestID()
	require.NoError(t, err)
	b, err := requestID()
	require.NoError(t, err)

	assert.Len(t, a, 18)
	assert.NotEqual(t, a, b)
}

func TestSettlementPayload_ToDomain(t *testing.T) {
	p := settlementPayload{
		RefID:     "REF123",
		UUID:      "stl_9",
		AccountID: "acct_1",
		Currency:  "USD",
		CreatedAt: "2026-09-01 10:30:00",
	}

	tran, err := p.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "REF123", tran.RefID)
	assert.Equal(t, "acct_1", tran.AccountID)
	assert.Equal(t, 2026, tran.CreatedAt.Year())

	p.CreatedAt = "not-a-time"
	_, err = p.toDomain()
	assert.Error(t, err)
}
