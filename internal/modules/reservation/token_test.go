package reservation

import (
	"testing"
	"time"

	"pcbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testHashKey  = []byte("0123456789abcdef0123456789abcdef")
	testBlockKey = []byte("abcdef0123456789")
)

func TestTokenRoundTripKeepsSignedTimes(t *testing.T) {
	codec := NewTokenCodec(testHashKey, testBlockKey, DefaultWindow)
	created := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	in := &Session{
		ID:          "sess-1",
		ServiceType: domain.ServiceRepair,
		Date:        "2025-03-10",
		Time:        "01:00 PM",
		Contact:     domain.Contact{Handle: "h", Email: "a@b.com"},
		TotalCents:  2000,
		CreatedAt:   created,
		ExpiresAt:   created.Add(DefaultWindow),
	}

	token, err := codec.Encode(in)
	require.NoError(t, err)

	out, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.Equal(t, in.Contact, out.Contact)
}

func TestTokenRejectsTampering(t *testing.T) {
	codec := NewTokenCodec(testHashKey, testBlockKey, DefaultWindow)
	token, err := codec.Encode(&Session{ID: "sess-2", ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	_, err = codec.Decode(token[:len(token)-2] + "xx")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenCodec([]byte("ffffffffffffffffffffffffffffffff"), testBlockKey, DefaultWindow)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Decode("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
