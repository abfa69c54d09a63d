package pathx

import (
	"path/filepath"

	"farmer/app/pkg/assert"
)

// FromCwd resolves path against the working directory.
// An empty path stays empty so optional assets can be skipped by the caller.
func FromCwd(path string) string {
	if path == "" {
		return ""
	}

	connectedPath, err := filepath.Abs(filepath.FromSlash(path))
	assert.NoError(
		err, "not finding a path should never happen",
		assert.AssertData{"path": path},
	)

	return connectedPath
}
