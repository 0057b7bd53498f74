package key

import (
	"fmt"
	"path"

	"github.com/BurntSushi/toml"

	"github.com/fairdeck/fairdeck/fs"
)

// KeyFolderName is the name of the subfolder of the base folder where the
// master key file lives.
const KeyFolderName = "key"

const materialFileName = "fairdeck_master"
const privateExtension = ".private"

// Tomler represents any struct that can be (un)marshalled into/from toml
// format.
type Tomler interface {
	TOML() interface{}
	FromTOML(i interface{}) error
	TOMLValue() interface{}
}

// Store abstracts the loading and saving of the master key material.
type Store interface {
	SaveMaterial(m *Material) error
	LoadMaterial() (*Material, error)
}

type fileStore struct {
	baseFolder       string
	materialFilePath string
}

// NewFileStore returns a file based key store rooted at baseFolder. The key
// subfolder is created with owner-only permissions if missing.
func NewFileStore(baseFolder string) (Store, error) {
	folder, err := fs.CreateSecureFolder(path.Join(baseFolder, KeyFolderName))
	if err != nil {
		return nil, fmt.Errorf("key: preparing key folder: %w", err)
	}
	return &fileStore{
		baseFolder:       baseFolder,
		materialFilePath: path.Join(folder, materialFileName+privateExtension),
	}, nil
}

// SaveMaterial writes the master key material to disk with owner-only
// permissions.
func (f *fileStore) SaveMaterial(m *Material) error {
	return f.save(f.materialFilePath, m)
}

// LoadMaterial reads the master key material back from disk.
func (f *fileStore) LoadMaterial() (*Material, error) {
	m := new(Material)
	return m, f.load(f.materialFilePath, m)
}

func (f *fileStore) save(filePath string, t Tomler) error {
	fd, err := fs.CreateSecureFile(filePath)
	if err != nil {
		return fmt.Errorf("key: creating secure file %s: %w", filePath, err)
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(t.TOML())
}

func (f *fileStore) load(filePath string, t Tomler) error {
	tomlValue := t.TOMLValue()
	if _, err := toml.DecodeFile(filePath, tomlValue); err != nil {
		return fmt.Errorf("key: reading %s: %w", filePath, err)
	}
	return t.FromTOML(tomlValue)
}
