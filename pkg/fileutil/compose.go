package fileutil

import "path/filepath"

// ComposeFileNames lists the well-known compose file names, in the order
// the docker CLI itself resolves them.
var ComposeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yml",
	"docker-compose.yaml",
}

// FindComposeFile looks for a compose file in the given directory.
// Returns the full path of the first match, or empty string if the
// directory contains no compose file.
func FindComposeFile(dir string) string {
	for _, name := range ComposeFileNames {
		path := filepath.Join(dir, name)
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// HasComposeFile reports whether the directory contains a compose file.
func HasComposeFile(dir string) bool {
	return FindComposeFile(dir) != ""
}
