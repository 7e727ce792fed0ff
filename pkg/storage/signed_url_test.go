package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("fee-report-secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-42", "fees_all_20260301_120000.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-42", jobID)
	require.Equal(t, "fees_all_20260301_120000.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpiredToken(t *testing.T) {
	signer := NewSignedURLSigner("fee-report-secret", time.Millisecond*10)
	token, _, err := signer.Generate("job-42", "arrears_all_20260301_120000.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-42", jobID)
	require.Equal(t, "arrears_all_20260301_120000.pdf", path)
}

func TestSignedURLSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("fee-report-secret", time.Hour)
	token, _, err := signer.Generate("job-42", "payments_all_20260301_120000.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = "job-99"
	tampered := strings.Join(parts, ".")

	_, _, _, err = signer.Parse(tampered, false)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsForeignSecret(t *testing.T) {
	issuer := NewSignedURLSigner("secret-a", time.Hour)
	verifier := NewSignedURLSigner("secret-b", time.Hour)

	token, _, err := issuer.Generate("job-42", "fees_all_20260301_120000.csv")
	require.NoError(t, err)

	_, _, _, err = verifier.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLSignerRequiresInputs(t *testing.T) {
	signer := NewSignedURLSigner("fee-report-secret", time.Hour)
	_, _, err := signer.Generate("", "file.csv")
	require.Error(t, err)
	_, _, err = signer.Generate("job-42", "")
	require.Error(t, err)
}
