package actions

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/helmcode/error-translator/pkg/applier"
	"github.com/helmcode/error-translator/pkg/document"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClipboard struct {
	copied []string
}

func (m *memClipboard) Copy(text string) error {
	m.copied = append(m.copied, text)
	return nil
}

func TestDispatch_ApplySavesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\nprint(os.nme)\n"), 0644))
	doc, err := document.Open(path)
	require.NoError(t, err)

	d := NewDispatcher(WithDocument(doc, true))
	out := d.Dispatch(Action{Kind: KindApply, Solution: &model.Solution{
		Title:      "fix typo",
		Code:       model.Ptr("print(os.name)"),
		LineNumber: model.Ptr(2),
	}})
	require.NoError(t, out.Err)
	assert.Equal(t, applier.StrategyLine, out.Applied.Strategy)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "import os\nprint(os.name)\n", string(data))
}

func TestDispatch_ApplyRejectsExplanationOnly(t *testing.T) {
	doc := document.New("", "x\n")
	d := NewDispatcher(WithDocument(doc, false))

	out := d.Dispatch(Action{Kind: KindApply, Solution: &model.Solution{Title: "background reading"}})
	assert.ErrorIs(t, out.Err, errs.ApplyFailed)
	assert.Equal(t, "x\n", doc.Text())
}

func TestDispatch_ApplyWithoutDocument(t *testing.T) {
	out := NewDispatcher().Dispatch(Action{Kind: KindApply, Solution: &model.Solution{Title: "t", Code: model.Ptr("x")}})
	assert.ErrorIs(t, out.Err, errs.ApplyFailed)
}

func TestDispatch_Copy(t *testing.T) {
	clip := &memClipboard{}
	d := NewDispatcher(WithClipboard(clip))

	require.NoError(t, d.Dispatch(Action{Kind: KindCopy, Solution: &model.Solution{Title: "t", Code: model.Ptr("let x = 1;")}}).Err)
	require.NoError(t, d.Dispatch(Action{Kind: KindCopy, Solution: &model.Solution{Title: "t", Description: "restart the server"}}).Err)
	assert.Equal(t, []string{"let x = 1;", "restart the server"}, clip.copied)
}

func TestDispatch_Unknown(t *testing.T) {
	out := NewDispatcher().Dispatch(Action{Kind: "delete"})
	assert.Error(t, out.Err)
}

func TestServe(t *testing.T) {
	clip := &memClipboard{}
	d := NewDispatcher(WithClipboard(clip))

	in := make(chan Action, 2)
	in <- Action{Kind: KindCopy, Solution: &model.Solution{Code: model.Ptr("a")}}
	in <- Action{Kind: KindCopy, Solution: &model.Solution{Code: model.Ptr("b")}}
	close(in)

	var outcomes []Outcome
	d.Serve(context.Background(), in, func(o Outcome) { outcomes = append(outcomes, o) })
	assert.Len(t, outcomes, 2)
	assert.Equal(t, []string{"a", "b"}, clip.copied)
}

func TestOSC52_WritesSequence(t *testing.T) {
	var buf bytes.Buffer
	c := &OSC52{w: &buf}
	require.NoError(t, c.Copy("hello"))
	assert.Contains(t, buf.String(), "\x1b]52;")
	assert.Contains(t, buf.String(), base64.StdEncoding.EncodeToString([]byte("hello")))
}
