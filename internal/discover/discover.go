// Package discover finds tree fixture files under a directory.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/funvibe/typer/internal/config"
)

var fixtureExts = map[string]struct{}{
	".yaml": {},
	".yml":  {},
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"testdata":     {},
	"vendor":       {},
}

// Fixtures returns the fixture files under root, sorted, as paths joined
// with root. The options file and anything matched by root's .gitignore
// are skipped. A root that names a file is returned as is.
func Fixtures(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	gi := loadGitignore(root)

	var results []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || name == config.OptionsFileName {
			return nil
		}
		if _, ok := fixtureExts[filepath.Ext(name)]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

// OptionsFile returns the options file that applies to path: the
// typer.yaml in path itself when it is a directory, else the one next to it.
// ok is false when there is none.
func OptionsFile(path string) (string, bool) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	candidate := filepath.Join(dir, config.OptionsFileName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
