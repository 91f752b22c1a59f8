package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"rumbia-backend/internal/core/domain"
)

const (
	filePrefix = "RumbIA"
	fileExt    = ".json"

	// Allocation retries before giving up. Collisions only happen when
	// another process reserved the same id between our scan and reserve.
	maxAllocateAttempts = 100
)

// filePattern matches persisted record names. The digit group is parsed as
// the policy id; names that do not match (extra suffixes, non-digits) are
// ignored during the scan.
var filePattern = regexp.MustCompile(`^RumbIA(\d+)\.json$`)

// PolicyStore persists policy records as JSON files in a flat directory and
// allocates policy ids from the filenames found there.
//
// AllocateID is the only read-then-write against the directory: it holds the
// store mutex and reserves the chosen id with an O_EXCL lock file, so two
// issuances can never be assigned the same id (in or across processes).
type PolicyStore struct {
	dir string
	mu  sync.Mutex
}

// NewPolicyStore creates a policy store over the given directory.
func NewPolicyStore(dir string) *PolicyStore {
	return &PolicyStore{dir: dir}
}

// Dir returns the record directory.
func (s *PolicyStore) Dir() string {
	return s.dir
}

// FileName returns the record filename for a policy id (RumbIA007.json).
func (s *PolicyStore) FileName(id int) string {
	return fmt.Sprintf("%s%03d%s", filePrefix, id, fileExt)
}

func (s *PolicyStore) path(id int) string {
	return filepath.Join(s.dir, s.FileName(id))
}

func (s *PolicyStore) lockPath(id int) string {
	return s.path(id) + ".lock"
}

func (s *PolicyStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// NextID scans the record directory and returns the lowest unused id:
// 1 for an empty directory, max(existing)+1 otherwise.
func (s *PolicyStore) NextID() (int, error) {
	if err := s.ensureDir(); err != nil {
		return 0, err
	}
	return s.scanNextID()
}

func (s *PolicyStore) scanNextID() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	maxID := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := filePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}

	return maxID + 1, nil
}

// AllocateID reserves and returns the next policy id. The caller must end
// the reservation with Release once the record is persisted (or the
// issuance aborted).
func (s *PolicyStore) AllocateID() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return 0, err
	}
	id, err := s.scanNextID()
	if err != nil {
		return 0, err
	}

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		f, err := os.OpenFile(s.lockPath(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			id++
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		f.Close()

		// A record may have appeared under this id after our scan.
		if _, err := os.Stat(s.path(id)); err == nil {
			os.Remove(s.lockPath(id))
			id++
			continue
		}
		return id, nil
	}

	return 0, domain.ErrPolicyIDTaken
}

// Release removes the reservation lock for an id.
func (s *PolicyStore) Release(id int) {
	os.Remove(s.lockPath(id))
}

// Save persists a policy record and returns the file location. The write is
// atomic: a temp file in the same directory is renamed over the target, so
// a concurrent reader never observes a partial record.
func (s *PolicyStore) Save(p *domain.Policy) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}

	data, err := encodeRecord(p)
	if err != nil {
		return "", fmt.Errorf("serialize policy %d: %w", p.IDPoliza, err)
	}

	target := s.path(p.IDPoliza)
	tmp, err := os.CreateTemp(s.dir, s.FileName(p.IDPoliza)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write policy %d: %w", p.IDPoliza, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write policy %d: %w", p.IDPoliza, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write policy %d: %w", p.IDPoliza, err)
	}

	return target, nil
}

// Load reads one policy record by id.
func (s *PolicyStore) Load(id int) (*domain.Policy, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var p domain.Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode policy %d: %w", id, err)
	}
	return &p, nil
}

// LoadAll reads every valid policy record in the directory, ordered by id.
// Unreadable or malformed files are skipped.
func (s *PolicyStore) LoadAll() ([]*domain.Policy, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var policies []*domain.Policy
	for _, entry := range entries {
		m := filePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p, err := s.Load(id)
		if err != nil {
			continue
		}
		policies = append(policies, p)
	}

	sort.Slice(policies, func(i, j int) bool {
		return policies[i].IDPoliza < policies[j].IDPoliza
	})
	return policies, nil
}

// encodeRecord serializes a record with stable keys, 2-space indentation and
// non-ASCII text left unescaped.
func encodeRecord(p *domain.Policy) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
