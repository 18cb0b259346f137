package alert

import (
	"bytes"
	"coinpaprika-alert-bot/internal/types"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileBackend stores the registry as a single JSON document:
//
//	{"<user id>": [{"coin": "BTC", "price": 65000}]}
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a backend writing to path on fs.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fs, path: path}
}

// Load reads the document. A missing or empty file is an empty registry.
func (f *FileBackend) Load() (map[string][]types.Watch, error) {
	watches := make(map[string][]types.Watch)

	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return watches, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", f.path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return watches, nil
	}

	if err := json.Unmarshal(data, &watches); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", f.path)
	}
	return watches, nil
}

// Save writes the document to a temporary file next to the target and renames
// it into place, so readers only ever see a complete document.
func (f *FileBackend) Save(watches map[string][]types.Watch) error {
	if watches == nil {
		watches = map[string][]types.Watch{}
	}
	data, err := json.MarshalIndent(watches, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode watches")
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", dir)
	}

	tmp, err := afero.TempFile(f.fs, dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.fs.Remove(tmpName)
		return errors.Wrapf(err, "could not write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		f.fs.Remove(tmpName)
		return errors.Wrapf(err, "could not sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpName)
		return errors.Wrapf(err, "could not close %s", tmpName)
	}

	if err := f.fs.Rename(tmpName, f.path); err != nil {
		f.fs.Remove(tmpName)
		return errors.Wrapf(err, "could not replace %s", f.path)
	}
	return nil
}
