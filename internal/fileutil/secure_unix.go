//go:build !windows

// Package fileutil creates the directories and files emailsearch writes: the
// home directory, the rotating log, and CSV exports.
//
// Permission bits are applied as given. On Windows, owner-only modes
// (perm&0077 == 0) also get a DACL that grants access to the current user
// alone.
package fileutil

import "os"

// SecureMkdirAll is os.MkdirAll on Unix.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureChmod is os.Chmod on Unix.
func SecureChmod(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}
