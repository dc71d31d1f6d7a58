package shell

import (
	"path/filepath"
	"strings"
)

// createFsEntryCompleter completes local file names with one of exts, or any
// file when exts is empty.
func createFsEntryCompleter(exts ...string) func([]string) []string {
	return func(args []string) []string {
		prefix := ""
		if len(args) > 0 {
			prefix = args[len(args)-1]
		}
		matches, err := filepath.Glob(prefix + "*")
		if err != nil {
			return nil
		}
		var out []string
		for _, m := range matches {
			if len(exts) == 0 || hasExt(m, exts) {
				out = append(out, m)
			}
		}
		return out
	}
}

func hasExt(name string, exts []string) bool {
	e := strings.ToLower(filepath.Ext(name))
	for _, x := range exts {
		if e == x {
			return true
		}
	}
	return false
}
