package gather

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/helmcode/error-translator/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChanges struct {
	diff string
	err  error
}

func (s stubChanges) RecentChanges(context.Context) (string, error) {
	return s.diff, s.err
}

type panickyChanges struct{}

func (panickyChanges) RecentChanges(context.Context) (string, error) {
	panic("boom")
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func numberedDoc(n int) *document.Document {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return document.New("/work/app.js", strings.Join(lines, "\n")+"\n")
}

func TestGather_NoEditor(t *testing.T) {
	g := New(Config{Root: t.TempDir()})
	ec := g.Gather(context.Background(), "TypeError: Cannot read property 'map' of undefined")

	assert.Nil(t, ec.FilePath)
	assert.Nil(t, ec.LineNumber)
	assert.Nil(t, ec.SurroundingCode)
	assert.Equal(t, "javascript", ec.Language)
	assert.NotNil(t, ec.ProjectStructure)
	assert.Empty(t, ec.ProjectStructure)
	require.NotNil(t, ec.RecentChanges)
	assert.Equal(t, "", *ec.RecentChanges)
	assert.Nil(t, ec.Dependencies)
	assert.Nil(t, ec.UserContext)
}

func TestGather_SurroundingCodeWindow(t *testing.T) {
	doc := numberedDoc(100)
	require.NoError(t, doc.SetCursor(document.Position{Line: 49}))

	g := New(Config{Root: t.TempDir(), MaxContextLines: 10}, WithEditor(doc))
	ec := g.Gather(context.Background(), "boom")

	require.NotNil(t, ec.SurroundingCode)
	lines := strings.Split(*ec.SurroundingCode, "\n")
	assert.Len(t, lines, 11)
	assert.Equal(t, "line 45", lines[0])
	assert.Equal(t, "line 55", lines[10])
	assert.Equal(t, 50, *ec.LineNumber)
	assert.Equal(t, "/work/app.js", *ec.FilePath)
	assert.Equal(t, "javascript", ec.Language)
}

func TestGather_SurroundingCodeClipped(t *testing.T) {
	doc := numberedDoc(4)
	require.NoError(t, doc.SetCursor(document.Position{Line: 0}))

	ec := New(Config{Root: t.TempDir()}, WithEditor(doc)).Gather(context.Background(), "boom")
	assert.Equal(t, "line 1\nline 2\nline 3\nline 4", *ec.SurroundingCode)
}

func TestGather_EmptyDocumentIsNotAbsent(t *testing.T) {
	doc := document.New("/work/empty.py", "")
	ec := New(Config{Root: t.TempDir()}, WithEditor(doc)).Gather(context.Background(), "boom")

	require.NotNil(t, ec.SurroundingCode)
	assert.Equal(t, "", *ec.SurroundingCode)
	assert.Equal(t, "python", ec.Language)
}

func TestGather_RecentChanges(t *testing.T) {
	root := t.TempDir()

	ec := New(Config{Root: root}, WithChangeSource(stubChanges{diff: "@@ -1 +1 @@"})).Gather(context.Background(), "x")
	assert.Equal(t, "@@ -1 +1 @@", *ec.RecentChanges)

	ec = New(Config{Root: root}, WithChangeSource(stubChanges{err: errors.New("no repo")})).Gather(context.Background(), "x")
	assert.Equal(t, "", *ec.RecentChanges)
}

func TestGather_FailureInOneStepKeepsOthers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print(1)\n")
	writeFile(t, root, "requirements.txt", "requests==2.31\n")

	ec := New(Config{Root: root}, WithChangeSource(panickyChanges{})).Gather(context.Background(), "KeyError: 'x'")

	assert.Equal(t, []string{"main.py"}, ec.ProjectStructure)
	assert.Equal(t, map[string][]string{EcosystemPython: {"requests"}}, ec.Dependencies)
	assert.Equal(t, "python", ec.Language)
}

func TestGather_UserContext(t *testing.T) {
	ec := New(Config{Root: t.TempDir()}, WithUserContext("happens after login")).Gather(context.Background(), "x")
	require.NotNil(t, ec.UserContext)
	assert.Equal(t, "happens after login", *ec.UserContext)
	assert.Equal(t, "unknown", ec.Language)
}

func TestLanguageFromErrorText(t *testing.T) {
	assert.Equal(t, "python", LanguageFromErrorText("ModuleNotFoundError: No module named 'x'"))
	assert.Equal(t, "javascript", LanguageFromErrorText("TypeError: Cannot read property 'map' of undefined"))
	assert.Equal(t, "go", LanguageFromErrorText("panic: runtime error"))
	assert.Equal(t, "csharp", LanguageFromErrorText("error CS1002: ; expected"))
	assert.Equal(t, "", LanguageFromErrorText("something odd"))
}
