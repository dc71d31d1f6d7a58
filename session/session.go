// Package session keeps drawing sessions and recognition results in the
// user cache directory between runs.
package session

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/odmlbook/inkvision/hwr"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
)

const (
	cacheVersion     = 1
	cacheFolder      = "inkvision"
	fallbackFolder   = ".inkvision-cache"
	sessionCacheName = "session.cache"
	resultCacheName  = "recognition.cache"
)

// HashInk identifies the recognition input of an ink. Ids are not part of
// it, two inks with the same points in the same strokes hash equal.
func HashInk(in ink.Ink) string {
	hasher := sha256.New()
	var buf [8]byte
	for _, s := range in.Strokes {
		binary.LittleEndian.PutUint32(buf[:4], uint32(len(s.Points)))
		hasher.Write(buf[:4])
		for _, p := range s.Points {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(p.X))
			hasher.Write(buf[:4])
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(p.Y))
			hasher.Write(buf[:4])
			binary.LittleEndian.PutUint64(buf[:], uint64(p.T))
			hasher.Write(buf[:])
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func hashStroke(s ink.Stroke) string {
	return HashInk(ink.Ink{Strokes: []ink.Stroke{s}})
}

// DefaultDir is the cache folder in the user cache dir, or in the home
// directory when there is none.
func DefaultDir() (string, error) {
	cachedir, err := os.UserCacheDir()
	if err == nil {
		dir := path.Join(cachedir, cacheFolder)
		if err = os.MkdirAll(dir, 0700); err == nil {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := path.Join(home, fallbackFolder)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

type sessionFile struct {
	CacheVersion int     `json:"cache_version"`
	Ink          ink.Ink `json:"ink"`
}

type resultFile struct {
	CacheVersion int                   `json:"cache_version"`
	Results      map[string]hwr.Result `json:"results"`
}

// Store reads and writes the cache files of one directory.
type Store struct {
	dir string

	mu      sync.Mutex
	results map[string]hwr.Result
}

// NewStore opens the cache in dir, DefaultDir when empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// readCache decodes a cache file into v. A missing, corrupt or outdated
// file leaves v empty and is not an error.
func (s *Store) readCache(name string, v interface{}, version func() int) (bool, error) {
	cacheFile := path.Join(s.dir, name)
	b, err := os.ReadFile(cacheFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Error.Println("cache corrupt, ignoring: ", cacheFile)
		return false, nil
	}
	if version() != cacheVersion {
		log.Info.Println("wrong cache file version, ignoring: ", cacheFile)
		return false, nil
	}
	log.Trace.Println("cache loaded: ", cacheFile)
	return true, nil
}

func (s *Store) writeCache(name string, v interface{}) error {
	cacheFile := path.Join(s.dir, name)
	log.Trace.Println("writing cache: ", cacheFile)
	b, err := json.MarshalIndent(v, "", "")
	if err != nil {
		return err
	}
	return os.WriteFile(cacheFile, b, 0644)
}

// SaveSession stores the ink as the last session.
func (s *Store) SaveSession(in ink.Ink) error {
	return s.writeCache(sessionCacheName, &sessionFile{CacheVersion: cacheVersion, Ink: in})
}

// LoadSession returns the last saved session, ok is false when there is
// none.
func (s *Store) LoadSession() (in ink.Ink, ok bool, err error) {
	f := &sessionFile{}
	ok, err = s.readCache(sessionCacheName, f, func() int { return f.CacheVersion })
	if !ok || err != nil {
		return ink.Ink{}, false, err
	}
	return f.Ink, true, nil
}

func (s *Store) loadResults() error {
	if s.results != nil {
		return nil
	}
	f := &resultFile{}
	ok, err := s.readCache(resultCacheName, f, func() int { return f.CacheVersion })
	if err != nil {
		return err
	}
	if !ok || f.Results == nil {
		f.Results = map[string]hwr.Result{}
	}
	s.results = f.Results
	return nil
}

// Lookup returns the cached recognition result for an ink hash.
func (s *Store) Lookup(hash string) (hwr.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadResults(); err != nil {
		return hwr.Result{}, false, err
	}
	r, ok := s.results[hash]
	return r, ok, nil
}

// Put caches a recognition result and writes the cache file.
func (s *Store) Put(hash string, r hwr.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadResults(); err != nil {
		return err
	}
	r.Raw = nil
	s.results[hash] = r
	return s.writeCache(resultCacheName, &resultFile{CacheVersion: cacheVersion, Results: s.results})
}

// DiffResult lists the stroke ids that changed between two inks.
type DiffResult struct {
	HasChanges bool     `json:"has_changes"`
	Added      []string `json:"added"`
	Modified   []string `json:"modified"`
	Removed    []string `json:"removed"`
}

// Diff compares cur against prev stroke by stroke.
func Diff(prev, cur ink.Ink) *DiffResult {
	result := &DiffResult{
		Added:    []string{},
		Modified: []string{},
		Removed:  []string{},
	}

	before := make(map[string]string, len(prev.Strokes))
	for _, s := range prev.Strokes {
		before[s.ID.String()] = hashStroke(s)
	}
	now := make(map[string]bool, len(cur.Strokes))
	for _, s := range cur.Strokes {
		id := s.ID.String()
		now[id] = true
		h, exists := before[id]
		switch {
		case !exists:
			result.Added = append(result.Added, id)
		case h != hashStroke(s):
			result.Modified = append(result.Modified, id)
		}
	}
	for id := range before {
		if !now[id] {
			result.Removed = append(result.Removed, id)
		}
	}
	sort.Strings(result.Removed)

	result.HasChanges = len(result.Added)+len(result.Modified)+len(result.Removed) > 0
	return result
}
