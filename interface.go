package logging

import "os"

// DirectoryChecker is the filesystem collaborator the transport resolver uses
// to validate file destinations before a transport is accepted. Production
// code uses the real filesystem via osDirectoryChecker; tests substitute
// implementations that simulate missing or unwritable directories.
type DirectoryChecker interface {
	// Exists reports whether dir exists and is a directory.
	Exists(dir string) bool
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Writable returns an error when dir does not accept new files.
	Writable(dir string) error
}

// osDirectoryChecker implements DirectoryChecker against the real filesystem.
type osDirectoryChecker struct{}

func (osDirectoryChecker) Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func (osDirectoryChecker) MkdirAll(dir string) error {
	return os.MkdirAll(dir, os.ModePerm)
}

// Writable probes dir by creating and removing a scratch file. A plain
// permission-bit check would miss read-only mounts and ACLs.
func (osDirectoryChecker) Writable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
