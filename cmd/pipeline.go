package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/helmcode/error-translator/pkg/actions"
	"github.com/helmcode/error-translator/pkg/applier"
	"github.com/helmcode/error-translator/pkg/client"
	"github.com/helmcode/error-translator/pkg/document"
	"github.com/helmcode/error-translator/pkg/formatter"
	"github.com/helmcode/error-translator/pkg/gather"
	"github.com/helmcode/error-translator/pkg/model"
	"github.com/helmcode/error-translator/pkg/orchestrator"
	"github.com/helmcode/error-translator/pkg/progress"
	"github.com/helmcode/error-translator/pkg/vcs"
	"go.uber.org/zap"
)

type pipelineOptions struct {
	// target is the source file solutions are applied to.
	target string
	// line is the 1-based cursor line in target; 0 keeps the start.
	line          int
	note          string
	format        string
	interactive   bool
	save          bool
	preview       bool
	progressStyle string
	// image is a screenshot uploaded in place of the error text.
	image string
	// promptIn replaces stdin for the solution prompts when stdin carries
	// the watched output.
	promptIn io.ReadCloser
}

// runPipeline translates text once, presenting the result and dispatching
// the user's actions. Failures are reported on stderr and returned.
func runPipeline(ctx context.Context, rt *runtime, text string, opts pipelineOptions) (*orchestrator.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, orchestrator.ErrEmptyErrorText
	}
	var doc *document.Document
	if opts.target != "" {
		d, err := document.Open(opts.target)
		if err != nil {
			return nil, err
		}
		d.SetLanguageID(gather.LanguageForPath(opts.target))
		if opts.line > 0 {
			if err := d.SetCursor(document.Position{Line: opts.line - 1}); err != nil {
				return nil, fmt.Errorf("--line %d: %w", opts.line, err)
			}
		}
		doc = d
	}

	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	if doc != nil {
		root = filepath.Dir(doc.FilePath())
	}

	gopts := []gather.Option{gather.WithLogger(rt.logger.Named("gather"))}
	if doc != nil {
		gopts = append(gopts, gather.WithEditor(doc))
	}
	if repo, err := vcs.Open(root); err == nil {
		root = repo.Root()
		gopts = append(gopts, gather.WithChangeSource(repo))
	} else {
		rt.logger.Debug("no git repository", zap.String("path", root), zap.Error(err))
	}
	if opts.note != "" {
		gopts = append(gopts, gather.WithUserContext(opts.note))
	}
	var gatherer orchestrator.Gatherer = gather.New(gather.Config{
		Root:            root,
		MaxContextLines: rt.cfg.Context.MaxLines,
		MaxProjectFiles: rt.cfg.Context.MaxProjectFiles,
		Extensions:      rt.cfg.Context.Extensions,
		ExcludeDirs:     rt.cfg.Context.ExcludeDirs,
	}, gopts...)

	c := client.New(rt.cfg.Service,
		client.WithLogger(rt.logger.Named("client")),
		client.WithUserAgent("error-translator/"+Version),
	)
	var translator orchestrator.Translator = c
	if opts.image != "" {
		// The service reads the error from the image; local context is not sent.
		gatherer = imageContext{note: opts.note}
		translator = c.ForImage(opts.image)
	}

	actionCh := make(chan actions.Action)
	presenter := &formatter.Presenter{Out: os.Stdout, Format: opts.format}
	if opts.interactive {
		presenter.Chooser = &formatter.PromptChooser{Stdin: opts.promptIn}
		presenter.Actions = actionCh
	}

	// Results are printed only after the progress reporter has released the
	// terminal.
	reporterDone := make(chan struct{})
	o := orchestrator.New(gatherer, translator, orchestrator.PresenterFunc(
		func(ctx context.Context, resp *model.TranslationResponse) error {
			<-reporterDone
			if opts.preview && doc != nil {
				printPreview(resp, doc)
			}
			return presenter.Present(ctx, resp)
		}),
		orchestrator.WithLogger(rt.logger.Named("orchestrator")),
	)

	reporter := progress.NewReporter(os.Stderr, opts.progressStyle, isTerminal(os.Stderr))
	sub := o.Subscribe()
	go func() {
		progress.Follow(reporter, sub)
		close(reporterDone)
	}()

	dispatcher := actions.NewDispatcher(
		actions.WithDocument(doc, opts.save),
		actions.WithClipboard(actions.NewOSC52(nil)),
		actions.WithLogger(rt.logger.Named("actions")),
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Serve(ctx, actionCh, reportOutcome)
	}()

	res, err := o.Translate(ctx, text)
	close(actionCh)
	wg.Wait()
	if res == nil {
		return nil, err
	}
	<-reporterDone

	switch res.State {
	case orchestrator.Failed:
		printError(userMessage(err))
		return res, err
	case orchestrator.Cancelled:
		printWarning("Translation cancelled")
		return res, nil
	}
	if res.DeliveryErr != nil && !errors.Is(res.DeliveryErr, context.Canceled) {
		printError(fmt.Sprintf("Could not display results: %v", res.DeliveryErr))
	}
	return res, nil
}

func printPreview(resp *model.TranslationResponse, doc *document.Document) {
	for _, sol := range resp.SortedSolutions() {
		if !sol.HasCode() {
			continue
		}
		diff, err := applier.Preview(&sol, doc, doc.Selection())
		if err != nil {
			printWarning(fmt.Sprintf("Preview of %q: %s", sol.Title, userMessage(err)))
			return
		}
		fmt.Fprintf(os.Stdout, "\n--- %s\n+++ %s (%s)\n%s", doc.FilePath(), doc.FilePath(), sol.Title, diff)
		return
	}
}

func reportOutcome(out actions.Outcome) {
	if out.Err != nil {
		printError(userMessage(out.Err))
		return
	}
	switch out.Action.Kind {
	case actions.KindApply:
		printSuccess(fmt.Sprintf("Applied %q (%s)", out.Action.Solution.Title, out.Applied.Strategy))
	case actions.KindCopy:
		printSuccess("Copied to clipboard")
	}
}

// imageContext is the gatherer for image uploads. Only the note travels with
// the image.
type imageContext struct {
	note string
}

func (g imageContext) Gather(_ context.Context, errorText string) *model.ErrorContext {
	ec := &model.ErrorContext{ErrorText: errorText, Language: "unknown", ProjectStructure: []string{}}
	if g.note != "" {
		ec.UserContext = model.Ptr(g.note)
	}
	return ec
}
