package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFile is the workspace ignore file honored by the list tool.
const IgnoreFile = ".gitignore"

// LoadIgnorePatterns reads the workspace ignore file at root and returns its
// patterns. Comments, blank lines, and negations are skipped; a missing file
// yields no patterns. Only the simple name/prefix subset of the gitignore
// syntax is supported, which is enough for node_modules/ and build output.
func LoadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimSuffix(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns
}
