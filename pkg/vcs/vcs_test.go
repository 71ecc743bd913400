package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestRecentChanges_EmptyRepository(t *testing.T) {
	dir, _ := initRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	diff, err := r.RecentChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", diff)
}

func TestRecentChanges_WorktreeDiff(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "app.py", "import os\nprint(os.name)\n", "initial")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os\nprint(os.nme)\n"), 0644))

	r, err := Open(dir)
	require.NoError(t, err)
	diff, err := r.RecentChanges(context.Background())
	require.NoError(t, err)

	assert.Contains(t, diff, "--- a/app.py")
	assert.Contains(t, diff, "-print(os.name)")
	assert.Contains(t, diff, "+print(os.nme)")
}

func TestRecentChanges_CleanTreeSummarizesHead(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "main.go", "package main\n", "add main\n\nlonger body")

	r, err := Open(filepath.Join(dir))
	require.NoError(t, err)
	diff, err := r.RecentChanges(context.Background())
	require.NoError(t, err)

	assert.Contains(t, diff, "add main")
	assert.NotContains(t, diff, "longer body")
	assert.Contains(t, diff, "main.go")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a\n... (truncated)\n", truncate("a\nbbbbbbbb", 5))
}
