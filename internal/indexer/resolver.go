package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/SeleniaProject/qmlls/internal/registry"
)

// ModuleResolver resolves an import module name to the file paths of its
// members by consulting build directories for a qmldir listing (or, absent
// one, every recognized file directly inside the matching directory).
// Grounded on the module's file watcher glob for "qmldir".
type ModuleResolver struct {
	Registry *registry.Registry
	FileURL  string // the importing file, used to pick build dirs
}

func (r *ModuleResolver) ResolveModule(name string) ([]string, error) {
	segment := strings.ReplaceAll(name, ".", string(filepath.Separator))

	var out []string

	for _, buildDir := range r.Registry.BuildPathsForFile(r.FileURL) {
		dir := filepath.Join(buildDir, segment)

		if qmldirFiles, ok := readQmldir(dir); ok {
			out = append(out, qmldirFiles...)
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}

			if recognizedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}

	return out, nil
}

// readQmldir parses dir/qmldir, a whitespace-separated module listing file
// whose lines are either "ComponentName [singleton] version file.qml" or a
// directive keyword (module, depends, ...) this resolver does not need.
func readQmldir(dir string) ([]string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "qmldir"))
	if err != nil {
		return nil, false
	}

	var out []string

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		last := fields[len(fields)-1]
		if strings.HasSuffix(last, ".qml") || strings.HasSuffix(last, ".js") {
			out = append(out, filepath.Join(dir, last))
		}
	}

	return out, true
}
