// Package gather builds the ErrorContext sent with a translation request
// from whatever workspace signals are available.
package gather

import (
	"context"
	"fmt"
	"strings"

	"github.com/helmcode/error-translator/pkg/document"
	"github.com/helmcode/error-translator/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxContextLines = 50
	DefaultMaxProjectFiles = 100
)

// Editor is the active editor as seen by the gatherer.
type Editor interface {
	FilePath() string
	LanguageID() string
	LineCount() int
	Line(i int) (string, bool)
	Selection() document.Range
}

// ChangeSource reports recent version control changes.
type ChangeSource interface {
	RecentChanges(ctx context.Context) (string, error)
}

type Config struct {
	// Root is the project root used for the structure walk and manifests.
	Root            string
	MaxContextLines int
	MaxProjectFiles int
	Extensions      []string
	ExcludeDirs     []string
}

type Gatherer struct {
	cfg         Config
	editor      Editor
	changes     ChangeSource
	userContext string
	logger      *zap.Logger
}

type Option func(*Gatherer)

// WithEditor sets the active editor. Without one, file path, line number and
// surrounding code are left out of the context.
func WithEditor(e Editor) Option {
	return func(g *Gatherer) { g.editor = e }
}

func WithChangeSource(c ChangeSource) Option {
	return func(g *Gatherer) { g.changes = c }
}

// WithUserContext attaches a free-form note from the user.
func WithUserContext(note string) Option {
	return func(g *Gatherer) { g.userContext = note }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gatherer) { g.logger = l }
}

func New(cfg Config, opts ...Option) *Gatherer {
	if cfg.MaxContextLines <= 0 {
		cfg.MaxContextLines = DefaultMaxContextLines
	}
	if cfg.MaxProjectFiles <= 0 {
		cfg.MaxProjectFiles = DefaultMaxProjectFiles
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	g := &Gatherer{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather never fails: every optional signal degrades to absent (or empty)
// on its own without affecting the others.
func (g *Gatherer) Gather(ctx context.Context, errorText string) *model.ErrorContext {
	ec := &model.ErrorContext{
		ErrorText: errorText,
		Language:  g.language(errorText),
	}
	if g.userContext != "" {
		ec.UserContext = model.Ptr(g.userContext)
	}

	var eg errgroup.Group
	eg.Go(g.isolate("surrounding_code", func() {
		if g.editor == nil {
			return
		}
		ec.FilePath = model.Ptr(g.editor.FilePath())
		line := g.editor.Selection().Start.Line
		ec.LineNumber = model.Ptr(line + 1)
		ec.SurroundingCode = model.Ptr(g.surroundingCode(line))
	}))
	eg.Go(g.isolate("project_structure", func() {
		ec.ProjectStructure = []string{}
		files, err := ProjectFiles(ctx, g.cfg.Root, ProjectOptions{
			Extensions:  g.cfg.Extensions,
			ExcludeDirs: g.cfg.ExcludeDirs,
			MaxFiles:    g.cfg.MaxProjectFiles,
		})
		if err != nil {
			g.logger.Debug("project structure unavailable", zap.Error(err))
			return
		}
		if files != nil {
			ec.ProjectStructure = files
		}
	}))
	eg.Go(g.isolate("recent_changes", func() {
		ec.RecentChanges = model.Ptr("")
		if g.changes == nil {
			return
		}
		diff, err := g.changes.RecentChanges(ctx)
		if err != nil {
			g.logger.Debug("recent changes unavailable", zap.Error(err))
			return
		}
		ec.RecentChanges = model.Ptr(diff)
	}))
	eg.Go(g.isolate("dependencies", func() {
		ec.Dependencies = Dependencies(g.cfg.Root)
	}))
	_ = eg.Wait()

	g.logger.Debug("context gathered",
		zap.Bool("has_editor", g.editor != nil),
		zap.Int("project_files", len(ec.ProjectStructure)),
		zap.Int("ecosystems", len(ec.Dependencies)),
	)
	return ec
}

// isolate turns a gather step into an errgroup func that cannot take the
// other steps down with it.
func (g *Gatherer) isolate(name string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Warn("context gather step panicked", zap.String("step", name), zap.String("panic", fmt.Sprint(r)))
			}
		}()
		fn()
		return nil
	}
}

// surroundingCode returns maxContextLines/2 lines on each side of line,
// clipped to the document.
func (g *Gatherer) surroundingCode(line int) string {
	n := g.editor.LineCount()
	if n == 0 {
		return ""
	}
	line = min(max(line, 0), n-1)
	half := g.cfg.MaxContextLines / 2
	start := max(0, line-half)
	end := min(n-1, line+half)

	lines := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		l, _ := g.editor.Line(i)
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n")
}

func (g *Gatherer) language(errorText string) string {
	if g.editor != nil {
		if id := g.editor.LanguageID(); id != "" {
			return id
		}
		if id := LanguageForPath(g.editor.FilePath()); id != "" {
			return id
		}
	}
	if id := LanguageFromErrorText(errorText); id != "" {
		return id
	}
	return "unknown"
}
