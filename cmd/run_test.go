package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"testing"

	"github.com/helmcode/error-translator/pkg/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunInPTY_MirrorsAndCaptures(t *testing.T) {
	devnull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer devnull.Close()

	capture := newCapture()
	var matches []matcher.Match
	var out bytes.Buffer
	c := exec.Command("sh", "-c", "echo building; echo 'TypeError: boom'; exit 3")

	err = runInPTY(c, devnull, nil, &out, func(b []byte) {
		matches = append(matches, capture.Push(string(b))...)
	}, zap.NewNop())
	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		t.Skipf("pseudo-terminal unavailable: %v", err)
	}
	matches = append(matches, capture.Flush()...)

	assert.Equal(t, 3, exit.ExitCode())
	assert.Contains(t, out.String(), "building")
	require.Len(t, matches, 1)
	assert.Contains(t, anchorLine(matches[0]), "TypeError: boom")
}

type chanWriter chan string

func (c chanWriter) Write(p []byte) (int, error) {
	c <- string(p)
	return len(p), nil
}

func TestStdinRelay(t *testing.T) {
	pr, pw := io.Pipe()
	r := newStdinRelay(pr)

	forwarded := make(chanWriter, 1)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		r.forward(forwarded, done)
		close(finished)
	}()

	_, err := pw.Write([]byte("to the command"))
	require.NoError(t, err)
	assert.Equal(t, "to the command", <-forwarded)
	close(done)
	<-finished

	go func() {
		_, _ = pw.Write([]byte("y\n"))
		pw.Close()
	}()
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "y\n", string(rest))
}
