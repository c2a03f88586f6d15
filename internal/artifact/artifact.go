// Package artifact materializes backend report files as downloads.
package artifact

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"essayreview/internal/model"
)

// Artifact is one downloadable report file.
type Artifact struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MIMEType  string `json:"mimeType"`
	Content   []byte `json:"-"`
}

// FileName is the download address, {name}.{extension}.
func (a Artifact) FileName() string {
	ext := strings.TrimPrefix(a.Extension, ".")
	if ext == "" {
		return a.Name
	}
	return a.Name + "." + ext
}

// Size returns the content length in bytes.
func (a Artifact) Size() int {
	return len(a.Content)
}

// FromFiles converts backend files into artifacts, in order, one per file.
func FromFiles(files []model.DownloadableFile) []Artifact {
	out := make([]Artifact, len(files))
	for i, f := range files {
		out[i] = Artifact{
			Name:      f.Name,
			Extension: f.Extension,
			MIMEType:  PlaintextMIMEType(f.Extension),
			Content:   f.Data,
		}
	}
	return out
}

// Store holds the current run's artifacts in memory for a limited time,
// keyed by file name. Publishing a new run replaces the previous set.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{cache: cache.New(ttl, ttl/2+time.Second)}
}

// Publish replaces everything in the store with arts.
func (s *Store) Publish(arts []Artifact) {
	s.cache.Flush()
	for _, a := range arts {
		s.cache.Set(a.FileName(), a, cache.DefaultExpiration)
	}
}

// Get looks up an artifact by file name.
func (s *Store) Get(fileName string) (Artifact, bool) {
	if x, found := s.cache.Get(fileName); found {
		return x.(Artifact), true
	}
	return Artifact{}, false
}

// Len returns the number of live artifacts.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
