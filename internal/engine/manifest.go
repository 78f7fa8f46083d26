package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const manifestFileName = "MANIFEST.json"

type tableMeta struct {
	ID       uint64 `json:"id"`
	Filename string `json:"filename"`
	MinKey   string `json:"min_key"`
	MaxKey   string `json:"max_key"`
	Entries  uint32 `json:"entries"`
	Blocks   uint32 `json:"blocks"`
	Bytes    uint64 `json:"bytes"`
}

type manifest struct {
	Version int         `json:"version"`
	DBID    string      `json:"db_id"`
	NextID  uint64      `json:"next_id"`
	Tables  []tableMeta `json:"tables"`
}

func newManifest() *manifest {
	return &manifest{
		Version: 1,
		DBID:    uuid.NewString(),
		NextID:  1,
	}
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestFileName)
}

func manifestExists(dir string) (bool, error) {
	info, err := os.Stat(manifestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "stat manifest")
	}
	if info.IsDir() {
		return false, errors.Wrap(ErrCorruptTable, "manifest is a directory")
	}
	return true, nil
}

func loadManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	if m.NextID == 0 {
		m.NextID = 1
	}
	sortTablesByIDDesc(m.Tables)
	return &m, nil
}

func saveManifest(dir string, m *manifest) error {
	path := manifestPath(dir)
	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return errors.Wrap(err, "create manifest")
	}
	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "encode manifest")
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "sync manifest")
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "close manifest")
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "publish manifest")
	}
	return nil
}

func tableFileName(id uint64) string {
	return fmt.Sprintf("%06d.kvt", id)
}

func tablePath(dir, filename string) string {
	return filepath.Join(dir, filename)
}

// Newest table first; that is also the read precedence order.
func sortTablesByIDDesc(tables []tableMeta) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID > tables[j].ID })
}
