package gather

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExtensions is the allow-list of source extensions reported in the
// project structure.
var DefaultExtensions = []string{
	"js", "jsx", "ts", "tsx", "py", "java", "cs", "cpp", "c", "h",
	"go", "rs", "php", "rb", "swift", "kt",
}

// DefaultExcludeDirs are dependency-manager and build directories that are
// never walked.
var DefaultExcludeDirs = []string{
	".git",
	"node_modules",
	"bower_components",
	"vendor",
	"__pycache__",
	".venv",
	"venv",
	"site-packages",
	"dist",
	"build",
	"target",
	".next",
	".gradle",
	"Pods",
	".idea",
	".vscode",
}

// ProjectOptions controls ProjectFiles.
type ProjectOptions struct {
	Extensions  []string
	ExcludeDirs []string
	MaxFiles    int
}

// extensionPattern builds a doublestar pattern such as **/*.{go,py}.
func extensionPattern(exts []string) string {
	clean := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			clean = append(clean, e)
		}
	}
	if len(clean) == 1 {
		return "**/*." + clean[0]
	}
	return "**/*.{" + strings.Join(clean, ",") + "}"
}

// ProjectFiles lists project files under root as slash separated relative
// paths, honouring .gitignore, until opts.MaxFiles is reached.
func ProjectFiles(ctx context.Context, root string, opts ProjectOptions) ([]string, error) {
	if opts.MaxFiles <= 0 {
		return []string{}, nil
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	excluded := opts.ExcludeDirs
	if excluded == nil {
		excluded = DefaultExcludeDirs
	}
	pattern := extensionPattern(exts)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid extension pattern %q", pattern)
	}

	skip := make(map[string]bool, len(excluded))
	for _, d := range excluded {
		skip[d] = true
	}

	var gitignore *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gitignore = gi
	}

	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skip[d.Name()] || (gitignore != nil && gitignore.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if gitignore != nil && gitignore.MatchesPath(rel) {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}

		files = append(files, rel)
		if len(files) >= opts.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
