package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/kessl/xptrack/internal/errors"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// WidgetRect is one overlay widget's placement. The daemon treats the
// contents as opaque UI layout.
type WidgetRect struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Data is one named overlay layout.
type Data struct {
	SelectedMonitorID string       `json:"selectedMonitorId"`
	Widgets           []WidgetRect `json:"widgets"`
}

// Store reads and writes profiles as pretty-printed JSON files under a
// single directory, so they stay easy to inspect and edit by hand.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) (string, error) {
	errFactory := errors.New()

	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errFactory.WithData(ErrInvalidProfileName, name)
	}

	return filepath.Join(s.dir, name+".json"), nil
}

func (s *Store) Read(name string) (Data, error) {
	errFactory := errors.New()

	path, err := s.path(name)
	if err != nil {
		return Data{}, err
	}

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Data{}, errFactory.WithData(ErrProfileNotFound, name)
	}
	if err != nil {
		return Data{}, errFactory.Wrap(ErrProfileAccess, err)
	}

	var data Data
	if err := json.Unmarshal(contents, &data); err != nil {
		return Data{}, errFactory.Wrap(ErrProfileMalformed, err)
	}

	return data, nil
}

func (s *Store) Write(name string, data Data) error {
	errFactory := errors.New()

	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, defaultDirPerm); err != nil {
		return errFactory.Wrap(ErrProfileAccess, err)
	}

	contents, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errFactory.Wrap(ErrProfileMalformed, err)
	}

	if err := os.WriteFile(path, contents, defaultFilePerm); err != nil {
		return errFactory.Wrap(ErrProfileAccess, err)
	}

	return nil
}
