// Package testutil provides test helpers for emailsearch tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - fs_helpers.go: filesystem operations (ReadFile, MustExist, ListDir)
//   - builders.go: search result builders
package testutil
