package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPassSignerGenerateAndParse(t *testing.T) {
	signer := NewPassSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	leaveID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "leave-1", leaveID)
	require.Equal(t, "leave-1.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestPassSignerExpired(t *testing.T) {
	signer := NewPassSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	leaveID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "leave-1", leaveID)
	require.Equal(t, "leave-1.pdf", path)
}

func TestPassSignerRejectsTampering(t *testing.T) {
	signer := NewPassSigner("secret", time.Hour)
	token, _, err := signer.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "leave-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)
}

func TestPassSignerRejectsForeignSecret(t *testing.T) {
	signer := NewPassSigner("secret", time.Hour)
	other := NewPassSigner("other", time.Hour)

	token, _, err := other.Generate("leave-1", "leave-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
}
