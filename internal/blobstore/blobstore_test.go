package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	ctx := context.Background()

	key := KeyFor("user-1", "file-1")
	n, err := svc.Put(ctx, key, bytes.NewReader([]byte("hello audio")))
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello audio")), n)

	r, err := svc.Get(ctx, key)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello audio", string(got))
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	_, err := svc.Get(context.Background(), KeyFor("user-1", "missing"))
	assert.Error(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	ctx := context.Background()
	key := KeyFor("user-1", "file-1")

	_, err := svc.Put(ctx, key, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, key))
	// Deleting again must not error: the blob is already gone.
	assert.NoError(t, svc.Delete(ctx, key))
}

func TestSignAndVerifyUploadSignature(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")

	key := KeyFor("user-1", "file-1")
	url, expiresAt, err := svc.SignForUpload("user-1", key, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "audio/user-1/file-1.enc")

	sig := svc.sign(key, expiresAt)
	assert.NoError(t, svc.VerifyUploadSignature(key, expiresAt.Unix(), sig))
}

func TestSignForUploadRejectsForeignKey(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	_, _, err := svc.SignForUpload("user-1", KeyFor("user-2", "file-1"), time.Minute)
	assert.Error(t, err)
}

func TestVerifyUploadSignatureRejectsTamperedSig(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	key := KeyFor("user-1", "file-1")
	_, expiresAt, err := svc.SignForUpload("user-1", key, time.Minute)
	require.NoError(t, err)

	err = svc.VerifyUploadSignature(key, expiresAt.Unix(), "not-a-real-signature")
	assert.Error(t, err)
}

func TestVerifyUploadSignatureRejectsExpired(t *testing.T) {
	svc := New(t.TempDir(), []byte("signing-key"), "http://localhost:8080")
	key := KeyFor("user-1", "file-1")
	expired := time.Now().Add(-time.Minute)
	sig := svc.sign(key, expired)

	err := svc.VerifyUploadSignature(key, expired.Unix(), sig)
	assert.Error(t, err)
}
