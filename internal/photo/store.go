// Package photo holds user-selected images in memory and hands out scoped display handles for them.
package photo

import (
	"bytes"
	"encoding/base64"
	"io"
	"path"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/types"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes int64 = 5 << 20

// URLPrefix is the path under which live handles are served.
const URLPrefix = "/photos/"

// Handle is a live display URL for a stored photo. It stays valid until released,
// like a browser object URL.
type Handle struct {
	Token string
	RefID string
	URL   string
}

type blob struct {
	data        []byte
	contentType string
}

// Store keeps selected photos and their display handles. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	blobs    map[string]*blob
	handles  map[string]string // token -> blob id
	maxBytes int64
}

// NewStore creates a Store that rejects uploads larger than maxBytes.
// A non-positive maxBytes uses DefaultMaxBytes.
func NewStore(maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{
		blobs:    make(map[string]*blob),
		handles:  make(map[string]string),
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the upload size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Put reads an uploaded image and returns a reference to it. The content is not
// validated; its type is sniffed only so it can be served back correctly.
func (s *Store) Put(filename string, r io.Reader) (*types.PhotoRef, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, &ReadError{Message: "failed to read upload", Cause: err}
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &TooLargeError{Limit: s.maxBytes}
	}

	if filename != "" {
		filename = path.Base(filename)
	}
	contentType := mimetype.Detect(data).String()
	ref := &types.PhotoRef{
		ID:          uuid.New().String(),
		Filename:    filename,
		ContentType: contentType,
	}

	s.mu.Lock()
	s.blobs[ref.ID] = &blob{data: data, contentType: contentType}
	s.mu.Unlock()

	return ref, nil
}

// Discard frees the photo behind ref and every handle still pointing at it.
// A nil or unknown ref is ignored.
func (s *Store) Discard(ref *types.PhotoRef) {
	if ref == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, ref.ID)
	for token, id := range s.handles {
		if id == ref.ID {
			delete(s.handles, token)
		}
	}
}

// Acquire creates a display handle for ref. Release it when the view showing it goes away.
func (s *Store) Acquire(ref *types.PhotoRef) (*Handle, error) {
	if ref == nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[ref.ID]; !ok {
		return nil, ErrNotFound
	}
	token := uuid.New().String()
	s.handles[token] = ref.ID
	return &Handle{Token: token, RefID: ref.ID, URL: URLPrefix + token}, nil
}

// Release revokes a display handle. Releasing nil or twice is harmless.
func (s *Store) Release(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	delete(s.handles, h.Token)
	s.mu.Unlock()
}

// Open returns the bytes and content type behind a live handle token.
func (s *Store) Open(token string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.handles[token]
	if !ok {
		return nil, "", ErrNotFound
	}
	b, ok := s.blobs[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return bytes.Clone(b.data), b.contentType, nil
}

// DataURI returns the photo inlined as a data: URI, for outputs that cannot fetch
// from the server (PDF export).
func (s *Store) DataURI(ref *types.PhotoRef) (string, error) {
	if ref == nil {
		return "", ErrNotFound
	}
	s.mu.RLock()
	b, ok := s.blobs[ref.ID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return EncodeDataURI(b.data, b.contentType), nil
}

// EncodeDataURI builds a base64 data: URI for data.
func EncodeDataURI(data []byte, contentType string) string {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Stats reports how many photos and live handles the store holds.
func (s *Store) Stats() (photos, handles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs), len(s.handles)
}
