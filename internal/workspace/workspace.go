// Package workspace checks and loads the project directory a build runs in.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/manifest"
)

// ManifestFile is the package manifest every workspace must contain.
const ManifestFile = "package.json"

// Workspace is a checked project directory.
type Workspace struct {
	Root     string
	Entry    string // relative to Root
	Manifest *manifest.Package
}

// EntryPath returns the absolute path of the entry file.
func (w *Workspace) EntryPath() string { return filepath.Join(w.Root, w.Entry) }

// Open verifies that root is a directory containing entry and a package.json,
// then reads the manifest.
func Open(root, entry string) (*Workspace, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, apierr.Errorf(apierr.CodeDirectoryNotFound,
			"Unable to find provided directory %s", root).WithDetail("root", root)
	}

	entryPath := filepath.Join(root, entry)
	if info, err := os.Stat(entryPath); err != nil || info.IsDir() {
		return nil, apierr.Errorf(apierr.CodeFileNotFound,
			"No such file %s found in provided directory", entry).WithDetail("entry", entry)
	}

	pkg, err := manifest.Read(filepath.Join(root, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apierr.New(apierr.CodeManifestNotFound,
				"No package.json found in provided directory").WithDetail("root", root)
		}
		return nil, apierr.Wrap(apierr.CodeManifestNotFound, err, "Unable to read package.json")
	}
	return &Workspace{Root: root, Entry: entry, Manifest: pkg}, nil
}
