package commit

import (
	"sort"
	"strings"
)

// Locales returns the locale codes of the translation files under poDir
// touched by files, e.g. po/pt_BR.po yields pt_BR.
func Locales(files []string, poDir string) []string {
	prefix := strings.Trim(poDir, "/") + "/"
	seen := make(map[string]bool)
	var locales []string
	for _, f := range files {
		if !strings.HasPrefix(f, prefix) || !strings.HasSuffix(f, ".po") {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(f, prefix), ".po")
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		locales = append(locales, code)
	}
	sort.Strings(locales)
	return locales
}
