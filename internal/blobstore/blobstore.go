// Package blobstore implements BlobStore (spec §4.B): content storage
// for uploaded audio, keyed by a caller-opaque blob key. The local
// filesystem backend here lays objects out under BlobRoot the way the
// core's other on-disk state (JWT secret, prompt template) is rooted
// under the config's data directory.
package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voicecore/internal/apperr"
)

type Service struct {
	root      string
	signKey   []byte
	urlPrefix string
}

func New(root string, signKey []byte, urlPrefix string) *Service {
	return &Service{root: root, signKey: signKey, urlPrefix: urlPrefix}
}

// KeyFor builds the canonical storage key for one user's uploaded file.
func KeyFor(userID, fileID string) string {
	return fmt.Sprintf("audio/%s/%s.enc", userID, fileID)
}

func (s *Service) pathFor(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes data under key, creating any missing parent directories.
func (s *Service) Put(ctx context.Context, key string, data io.Reader) (int64, error) {
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, apperr.New(apperr.Unavailable, "failed to create blob directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, apperr.New(apperr.Unavailable, "failed to create blob file", err)
	}
	defer f.Close()

	n, err := io.Copy(f, data)
	if err != nil {
		return 0, apperr.New(apperr.Unavailable, "failed to write blob", err)
	}
	return n, nil
}

// Get opens key for reading. Callers must close the returned reader.
func (s *Service) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path := s.pathFor(key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.NotFound, "blob not found", err)
		}
		return nil, apperr.New(apperr.Unavailable, "failed to open blob", err)
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	path := s.pathFor(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperr.New(apperr.Unavailable, "failed to delete blob", err)
	}
	return nil
}

// SignForUpload returns a time-limited, HMAC-signed URL of the form
// {urlPrefix}/presign/upload?key=..&expires=..&sig=.., the same presign
// shape REST front ends use for S3-backed stores; VerifyUploadSignature
// checks its signature and expiry. No route in internal/api serves
// /presign/upload, so this process does not itself accept uploads at
// that URL. key is caller-supplied (spec §6's GET /presign?key=K) and
// must live under the caller's own prefix.
func (s *Service) SignForUpload(userID, key string, ttl time.Duration) (string, time.Time, error) {
	if !strings.HasPrefix(key, fmt.Sprintf("audio/%s/", userID)) {
		return "", time.Time{}, apperr.New(apperr.Forbidden, "key does not belong to caller", nil)
	}

	expiresAt := time.Now().Add(ttl)
	sig := s.sign(key, expiresAt)
	url := fmt.Sprintf("%s/presign/upload?key=%s&expires=%d&sig=%s",
		s.urlPrefix, key, expiresAt.Unix(), sig)
	return url, expiresAt, nil
}

// VerifyUploadSignature checks a presigned URL's signature and
// expiry, returning apperr.Unauthorized on mismatch and
// apperr.Timeout on expiry (callers treat both as "get a new link").
func (s *Service) VerifyUploadSignature(key string, expiresUnix int64, sig string) error {
	if time.Now().Unix() > expiresUnix {
		return apperr.New(apperr.Timeout, "presigned upload link expired", nil)
	}
	expected := s.sign(key, time.Unix(expiresUnix, 0))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return apperr.New(apperr.Unauthorized, "invalid presigned upload signature", nil)
	}
	return nil
}

func (s *Service) sign(key string, expiresAt time.Time) string {
	mac := hmac.New(sha256.New, s.signKey)
	mac.Write([]byte(key))
	mac.Write([]byte(strings.Repeat("|", 1)))
	mac.Write([]byte(strconv.FormatInt(expiresAt.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
