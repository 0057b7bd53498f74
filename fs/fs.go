// Package fs holds some utilities for manipulating the file system, mostly
// around creating files and folders that hold key material and archives with
// restrictive permissions.
package fs

import (
	"os"
	"os/user"
	"path"
)

const defaultDirectoryPermission = 0o700

// HomeFolder returns the home folder of the current user.
func HomeFolder() string {
	u, err := user.Current()
	if err != nil {
		panic(err)
	}
	return u.HomeDir
}

// CreateSecureFolder creates the folder with owner-only permissions if it
// does not exist yet and returns its path. An existing folder with laxer
// permissions is tightened rather than rejected.
func CreateSecureFolder(folder string) (string, error) {
	exists, err := Exists(folder)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := os.MkdirAll(folder, defaultDirectoryPermission); err != nil {
			return "", err
		}
		return folder, nil
	}
	info, err := os.Lstat(folder)
	if err != nil {
		return "", err
	}
	if info.Mode().Perm() != defaultDirectoryPermission {
		if err := os.Chmod(folder, defaultDirectoryPermission); err != nil {
			return "", err
		}
	}
	return folder, nil
}

// Exists returns whether the given file or directory exists.
func Exists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, err
}

// CreateSecureFile creates a file with read/write permission for the owner
// only and returns the open file handle.
func CreateSecureFile(file string) (*os.File, error) {
	fd, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	if err := fd.Close(); err != nil {
		return nil, err
	}
	if err := os.Chmod(file, 0o600); err != nil {
		return nil, err
	}
	return os.OpenFile(file, os.O_RDWR, 0o600)
}

// Files returns the list of file paths included in the given folder.
func Files(folderPath string) ([]string, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, path.Join(folderPath, e.Name()))
		}
	}
	return files, nil
}

// FileExists returns true if the given path is a file inside the given
// folder. filePath must be the full path of the file and folder the directory
// where it lies.
func FileExists(folder, filePath string) bool {
	list, err := Files(folder)
	if err != nil {
		return false
	}
	for _, l := range list {
		if l == filePath {
			return true
		}
	}
	return false
}
