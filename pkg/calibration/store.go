package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
	osx "github.com/chesscast/chesscast/pkg/os"
	"github.com/chesscast/chesscast/pkg/storage"
	gojson "github.com/goccy/go-json"
)

const (
	mappingSuffix = "_mapping.json"
	imageSuffix   = "_calibration.jpg"
	lockSuffix    = ".lock"
)

var ErrBadMapping = errors.New("mapping is not a valid JSON")

// Store keeps calibration files of tokens in one directory.
// A mapping file existence means the token is calibrated.
type Store struct {
	dir    string
	remote storage.Storage
	log    *logger.Logger
}

// NewStore creates the directory if absent.
// The remote storage is optional.
func NewStore(dir string, remote storage.Storage, log *logger.Logger) (*Store, error) {
	if err := osx.CheckCreateDir(dir); err != nil {
		return nil, err
	}
	if remote == nil {
		remote = storage.Noop{}
	}
	return &Store{dir: dir, remote: remote, log: log}, nil
}

func (s *Store) Dir() string                    { return s.dir }
func (s *Store) MappingPath(token string) string { return filepath.Join(s.dir, MappingName(token)) }
func (s *Store) ImagePath(token string) string   { return filepath.Join(s.dir, token+imageSuffix) }
func (s *Store) LockPath(token string) string    { return filepath.Join(s.dir, token+lockSuffix) }

func (s *Store) Has(token string) bool { return osx.Exists(s.MappingPath(token)) }

// ModTime returns the mapping file modification time or zero.
func (s *Store) ModTime(token string) time.Time {
	fi, err := os.Stat(s.MappingPath(token))
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Read returns the mapping file contents.
func (s *Store) Read(token string) (json.RawMessage, error) {
	data, err := osx.ReadFile(s.MappingPath(token))
	if err != nil {
		return nil, err
	}
	if !gojson.Valid(data) {
		return nil, ErrBadMapping
	}
	return data, nil
}

// Publish uploads the local mapping into the remote storage.
func (s *Store) Publish(ctx context.Context, token string) error {
	data, err := s.Read(token)
	if err != nil {
		return err
	}
	return s.remote.Save(ctx, MappingName(token), data)
}

// Restore downloads a missing local mapping from the remote storage,
// restored is false if there is nothing to restore.
func (s *Store) Restore(ctx context.Context, token string) (restored bool, err error) {
	if s.Has(token) {
		return false, nil
	}
	data, err := s.remote.Load(ctx, MappingName(token))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !gojson.Valid(data) {
		return false, fmt.Errorf("remote %w", ErrBadMapping)
	}
	if err = osx.WriteFileAtomic(s.MappingPath(token), data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func MappingName(token string) string { return token + mappingSuffix }

// TokenOf extracts the token from a mapping file path.
func TokenOf(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, mappingSuffix) {
		return "", false
	}
	token := strings.TrimSuffix(name, mappingSuffix)
	return token, token != ""
}
