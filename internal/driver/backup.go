package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"flowlower/internal/classinfo"
	"flowlower/internal/project"
)

// BackupExt is the suffix of registry snapshot files.
const BackupExt = ".msgpack"

// BackupStore keeps msgpack snapshots of unit registries taken before
// lowering, one file per unit name and content digest.
// Safe for concurrent use.
type BackupStore struct {
	mu  sync.Mutex
	dir string
}

// OpenBackupStore creates dir if needed.
func OpenBackupStore(dir string) (*BackupStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("backup directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &BackupStore{dir: dir}, nil
}

func (s *BackupStore) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// PathFor returns the snapshot path for a unit.
func (s *BackupStore) PathFor(name string, digest project.Digest) string {
	return filepath.Join(s.dir, backupFileName(name, digest))
}

func backupFileName(name string, digest project.Digest) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	if safe == "" {
		safe = "unit"
	}
	return safe + "-" + digest.Short() + BackupExt
}

// Put writes the snapshot of reg for u. The file is replaced atomically.
func (s *BackupStore) Put(u *project.Unit, reg *classinfo.Registry) (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.PathFor(u.Name, u.Digest)
	f, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(f.Name())
		}
	}()

	if err := reg.WriteSnapshot(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return "", err
	}
	committed = true
	return p, nil
}

// ReadBackup decodes a snapshot file written by Put.
func ReadBackup(path string) (*classinfo.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reg, err := classinfo.ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// BackupUnitName recovers the unit name from a snapshot file name.
func BackupUnitName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), BackupExt)
	if i := strings.LastIndexByte(base, '-'); i > 0 {
		return base[:i]
	}
	return base
}
