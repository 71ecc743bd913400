// Package vcs reads recent changes from a git working tree.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/helmcode/error-translator/pkg/textdiff"
)

const (
	DefaultMaxBytes = 16 * 1024
	DefaultMaxFiles = 20
	contextLines    = 3
)

var ErrNotRepository = errors.New("not a git repository")

type Repository struct {
	repo     *git.Repository
	root     string
	maxBytes int
	maxFiles int
}

// Open finds the repository containing path.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &Repository{
		repo:     repo,
		root:     wt.Filesystem.Root(),
		maxBytes: DefaultMaxBytes,
		maxFiles: DefaultMaxFiles,
	}, nil
}

// Root is the working tree root.
func (r *Repository) Root() string {
	return r.root
}

// RecentChanges returns a diff of uncommitted changes against HEAD, or a
// summary of the HEAD commit when the tree is clean. A repository without
// commits yields "".
func (r *Repository) RecentChanges(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("read HEAD commit: %w", err)
	}

	diff, err := r.worktreeDiff(ctx, commit)
	if err != nil {
		return "", err
	}
	if diff == "" {
		diff = commitSummary(commit)
	}
	return truncate(diff, r.maxBytes), nil
}

func (r *Repository) worktreeDiff(ctx context.Context, commit *object.Commit) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("read HEAD tree: %w", err)
	}

	var paths []string
	for path, s := range status {
		if s.Worktree == git.Untracked {
			continue
		}
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	if len(paths) > r.maxFiles {
		paths = paths[:r.maxFiles]
	}

	var sb strings.Builder
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		oldText := ""
		if f, err := tree.File(path); err == nil {
			if oldText, err = f.Contents(); err != nil {
				continue
			}
		}
		newText := ""
		if data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path))); err == nil {
			newText = string(data)
		}
		if isBinary(oldText) || isBinary(newText) {
			fmt.Fprintf(&sb, "Binary file %s changed\n", path)
			continue
		}
		hunks := textdiff.Lines(oldText, newText, contextLines)
		if hunks == "" {
			continue
		}
		fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n%s", path, path, hunks)
		if sb.Len() > r.maxBytes {
			break
		}
	}
	return sb.String(), nil
}

func commitSummary(c *object.Commit) string {
	var sb strings.Builder
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	fmt.Fprintf(&sb, "commit %s\n%s\n", c.Hash.String()[:12], subject)
	if stats, err := c.Stats(); err == nil {
		for _, s := range stats {
			fmt.Fprintf(&sb, " %s | +%d -%d\n", s.Name, s.Addition, s.Deletion)
		}
	}
	return sb.String()
}

func isBinary(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], '\n')
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "\n... (truncated)\n"
}
