package stage

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ignoredModules are standard modules left out of the dependency report.
var ignoredModules = []string{"os", "sys", "json", "datetime", "typing"}

// ExtractDependencies scans import and from-import lines and returns the sorted,
// de-duplicated top-level module names, minus ignoredModules.
func ExtractDependencies(code string) []string {
	var found []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "from "):
			fields := strings.Fields(strings.TrimPrefix(line, "from "))
			if len(fields) == 0 {
				continue
			}
			if mod := topLevel(fields[0]); mod != "" {
				found = append(found, mod)
			}
		case strings.HasPrefix(line, "import "):
			for _, part := range strings.Split(strings.TrimPrefix(line, "import "), ",") {
				name, _, _ := strings.Cut(strings.TrimSpace(part), " as ")
				if mod := topLevel(strings.TrimSpace(name)); mod != "" {
					found = append(found, mod)
				}
			}
		}
	}

	deps := lo.Without(lo.Uniq(found), ignoredModules...)
	sort.Strings(deps)
	return deps
}

// topLevel returns the first dotted segment of an absolute module path.
func topLevel(path string) string {
	if strings.HasPrefix(path, ".") {
		return ""
	}
	mod, _, _ := strings.Cut(path, ".")
	mod = strings.TrimRight(mod, ";")
	if mod == "" || strings.ContainsAny(mod, "()*") {
		return ""
	}
	return mod
}
