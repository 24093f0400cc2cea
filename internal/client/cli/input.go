package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// maxAvatarFile caps what `avatar <file>` reads into memory.
const maxAvatarFile = 10 << 20

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// stdinIsTerminal reports whether the prompt should be shown. Piped input
// runs without it.
func stdinIsTerminal() bool {
	return isTerminal(int(os.Stdin.Fd()))
}

// readAvatarFile loads an image file for upload.
func readAvatarFile(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > maxAvatarFile {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", path, fi.Size(), maxAvatarFile)
	}
	return os.ReadFile(path)
}
