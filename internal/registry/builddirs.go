package registry

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// BuildDirsEnvVar is the environment variable consulted as a fallback
// source of build directories. Its value is a list of paths separated by
// the OS path-list separator (":" on Unix, ";" on Windows).
const BuildDirsEnvVar = "QMLLS_BUILD_DIRS"

// SettingsFileName is the per-directory settings file searched upward from
// a source file toward its containing root.
const SettingsFileName = ".qmlls.ini"

// BuildPathsForFile resolves the build directories that should be searched
// for compiled type information when analyzing fileURL, following a fixed
// fallback order:
//
//  1. explicit directories registered for the longest-prefix-matching root
//  2. the empty-root default, if no root matched
//  3. the QMLLS_BUILD_DIRS environment variable
//  4. the buildDir key of a .qmlls.ini file searched upward from the file,
//     falling back to a user-scope settings file
//  5. a heuristic search of parent directories for a child named build*,
//     preferring the most recently modified match
//
// Finally, one level of dependency subdirectories (named _deps, matching
// the CMake FetchContent convention) is appended for each resolved dir.
func (r *Registry) BuildPathsForFile(fileURL string) []string {
	var dirs []string

	if root, ok := r.matchingRoot(fileURL); ok {
		if explicit, ok := r.explicitBuildDirs(root); ok && len(explicit) > 0 {
			dirs = explicit
		}
	}

	if len(dirs) == 0 {
		if def, ok := r.explicitBuildDirs(""); ok && len(def) > 0 {
			dirs = def
		}
	}

	if len(dirs) == 0 {
		if env := os.Getenv(BuildDirsEnvVar); env != "" {
			dirs = filepath.SplitList(env)
		}
	}

	filePath, ok := r.UrlToPath(fileURL, Force)
	if !ok {
		return augmentWithDependencySubdirs(dirs)
	}

	if len(dirs) == 0 {
		if fromSettings := buildDirFromSettings(filePath); len(fromSettings) > 0 {
			dirs = fromSettings
		}
	}

	if len(dirs) == 0 {
		if heuristic, ok := heuristicBuildDir(filePath); ok {
			dirs = []string{heuristic}
		}
	}

	return augmentWithDependencySubdirs(dirs)
}

// buildDirFromSettings searches upward from the directory containing
// filePath for a .qmlls.ini file with a buildDir key, then falls back to a
// user-scope settings file.
func buildDirFromSettings(filePath string) []string {
	dir := filepath.Dir(filePath)

	for {
		candidate := filepath.Join(dir, SettingsFileName)
		if dirs, ok := readBuildDirKey(candidate); ok {
			return dirs
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil {
		userSettings := filepath.Join(home, ".config", "qmlls", "qmlls.ini")
		if dirs, ok := readBuildDirKey(userSettings); ok {
			return dirs
		}
	}

	return nil
}

func readBuildDirKey(path string) ([]string, bool) {
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, false
	}

	val := cfg.Section("").Key("buildDir").String()
	if val == "" {
		return nil, false
	}

	return filepath.SplitList(val), true
}

// heuristicBuildDir searches filePath's ancestor directories for a direct
// child whose name matches "build*", returning the most recently modified
// one found at the first ancestor level where any match exists.
func heuristicBuildDir(filePath string) (string, bool) {
	dir := filepath.Dir(filePath)

	for {
		entries, err := os.ReadDir(dir)
		if err == nil {
			var best string

			var bestTime int64 = -1

			for _, e := range entries {
				if !e.IsDir() || !strings.HasPrefix(e.Name(), "build") {
					continue
				}

				info, err := e.Info()
				if err != nil {
					continue
				}

				if t := info.ModTime().Unix(); t > bestTime {
					bestTime = t
					best = filepath.Join(dir, e.Name())
				}
			}

			if best != "" {
				return best, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return "", false
}

// augmentWithDependencySubdirs appends, for each resolved build dir, its
// immediate "_deps" child if one exists — mirroring a one-level dependency
// subdirectory convention found in CMake-based build trees.
func augmentWithDependencySubdirs(dirs []string) []string {
	out := append([]string(nil), dirs...)

	for _, d := range dirs {
		depsDir := filepath.Join(d, "_deps")
		if info, err := os.Stat(depsDir); err == nil && info.IsDir() {
			out = append(out, depsDir)
		}
	}

	return out
}
