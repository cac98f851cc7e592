// Package editor runs template-preserving edits on CV PDFs: locate text,
// replace it in place, ask a chat model for better wording and undo.
package editor

import (
	"context"
	"strings"
	"time"

	ledger "cv-editor/internal/errors"
	"cv-editor/internal/logger"
	"cv-editor/internal/pdf"
	"cv-editor/internal/suggest"
	"cv-editor/internal/types"
)

// Result is what an edit hands back to the caller.
type Result struct {
	PDF        []byte          `json:"-"`
	Applied    int             `json:"applied"`
	Fits       []pdf.FitResult `json:"fits"`
	Warnings   []string        `json:"warnings"`
	Suggestion string          `json:"suggestion,omitempty"`
	DocumentID string          `json:"document_id"`
}

func newResult(docID string, br *pdf.BatchResult) *Result {
	return &Result{
		PDF:        br.PDF,
		Applied:    br.Applied,
		Fits:       br.Results,
		Warnings:   br.WarningStrings(),
		DocumentID: docID,
	}
}

// Editor ties the PDF operations to the optional history, failure ledger and
// suggester. Any of those may be nil.
type Editor struct {
	opts      pdf.Options
	history   *HistoryManager
	failures  *ledger.ErrorManager
	suggester suggest.Suggester
}

// Option configures an Editor.
type Option func(*Editor)

// WithHistory stores the previous bytes before every applied edit.
func WithHistory(h *HistoryManager) Option {
	return func(e *Editor) { e.history = h }
}

// WithErrorManager records hard failures per document.
func WithErrorManager(em *ledger.ErrorManager) Option {
	return func(e *Editor) { e.failures = em }
}

// WithSuggester enables SuggestAndReplace.
func WithSuggester(s suggest.Suggester) Option {
	return func(e *Editor) { e.suggester = s }
}

// New creates an Editor with the given replacement options.
func New(opts pdf.Options, options ...Option) *Editor {
	e := &Editor{opts: opts}
	for _, o := range options {
		o(e)
	}
	return e
}

// Locate finds the runs containing searchText.
func (e *Editor) Locate(docID string, pdfBytes []byte, searchText string) ([]pdf.TextRun, error) {
	docID = resolveID(docID, pdfBytes)
	runs, err := pdf.Locate(pdfBytes, searchText)
	if err != nil {
		e.recordFailure(docID, searchText, ledger.StageLocate, err)
		return nil, err
	}
	return runs, nil
}

// Replace replaces one located run. A nil policy uses the editor's default.
func (e *Editor) Replace(ctx context.Context, docID string, pdfBytes []byte, run pdf.TextRun, newText string, policy *pdf.FitPolicy) (*Result, error) {
	docID = resolveID(docID, pdfBytes)
	opts := e.opts
	if policy != nil {
		opts.Policy = *policy
	}

	br, err := pdf.ReplaceRun(ctx, pdfBytes, run, newText, opts)
	if err != nil {
		e.recordFailure(docID, run.Text, stageFor(err), err)
		return nil, err
	}
	return e.commit(docID, pdfBytes, run.Text, br)
}

// FindAndReplace replaces the first occurrence of find in every run containing it.
func (e *Editor) FindAndReplace(ctx context.Context, docID string, pdfBytes []byte, find, replace string) (*Result, error) {
	docID = resolveID(docID, pdfBytes)
	br, err := pdf.FindAndReplace(ctx, pdfBytes, find, replace, e.opts)
	if err != nil {
		stage := stageFor(err)
		if pdf.IsParseError(err) || pdf.HasCode(err, pdf.ErrInvalidInput) {
			stage = ledger.StageLocate
		}
		e.recordFailure(docID, find, stage, err)
		return nil, err
	}
	return e.commit(docID, pdfBytes, find, br)
}

// SuggestAndReplace asks the suggester for new wording of find, then replaces
// it. Nothing is sent to the model when find is not in the document.
func (e *Editor) SuggestAndReplace(ctx context.Context, docID string, pdfBytes []byte, find string) (*Result, error) {
	docID = resolveID(docID, pdfBytes)
	if e.suggester == nil {
		return nil, types.NewAppError(types.ErrConfig, "no suggester configured", nil)
	}

	runs, err := e.Locate(docID, pdfBytes, find)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return &Result{
			PDF:        pdfBytes,
			Fits:       []pdf.FitResult{},
			Warnings:   []string{pdf.WarnNotFound},
			DocumentID: docID,
		}, nil
	}

	start := time.Now()
	suggestion, err := e.suggester.Suggest(ctx, find)
	if err != nil {
		e.recordFailure(docID, find, ledger.StageSuggest, err)
		return nil, err
	}
	suggestion = singleLine(suggestion)
	logger.Info("applying suggestion",
		logger.String("documentID", docID),
		logger.Int("runs", len(runs)),
		logger.Duration("suggestTime", time.Since(start)))

	res, err := e.FindAndReplace(ctx, docID, pdfBytes, find, suggestion)
	if err != nil {
		return nil, err
	}
	res.Suggestion = suggestion
	return res, nil
}

// Undo returns the version saved before the latest applied edit.
func (e *Editor) Undo(docID string) ([]byte, error) {
	if e.history == nil {
		return nil, types.NewAppError(types.ErrConfig, "version history is disabled", nil)
	}
	return e.history.Undo(docID)
}

// commit stores the previous version and clears the ledger once an edit applied.
func (e *Editor) commit(docID string, previous []byte, input string, br *pdf.BatchResult) (*Result, error) {
	res := newResult(docID, br)
	if br.Applied == 0 {
		return res, nil
	}

	if e.history != nil {
		if _, err := e.history.SaveVersion(docID, previous); err != nil {
			logger.Warn("failed to save previous version", logger.Err(err), logger.String("documentID", docID))
			res.Warnings = append(res.Warnings, "Undo unavailable: previous version was not saved")
		}
	}

	if e.failures != nil {
		if err := e.failures.RemoveError(docID); err != nil {
			logger.Warn("failed to clear failure record", logger.Err(err))
		}
		for _, w := range br.Warnings {
			if w.Message == pdf.WarnNoSample {
				e.recordFailure(docID, input, ledger.StageRender, pdf.NewPDFErrorWithPage(pdf.ErrRenderFailed, w.Message, w.Page, nil))
				break
			}
		}
	}
	return res, nil
}

func (e *Editor) recordFailure(docID, input string, stage ledger.ErrorStage, err error) {
	if e.failures == nil {
		return
	}
	if recErr := e.failures.RecordError(docID, input, stage, err.Error()); recErr != nil {
		logger.Warn("failed to record failure", logger.Err(recErr), logger.String("stage", string(stage)))
	}
}

func stageFor(err error) ledger.ErrorStage {
	switch {
	case pdf.HasCode(err, pdf.ErrGenerateFailed):
		return ledger.StageSave
	case pdf.IsRenderError(err):
		return ledger.StageRender
	case types.HasCode(err, types.ErrSuggest):
		return ledger.StageSuggest
	}
	return ledger.StageReplace
}

func resolveID(docID string, pdfBytes []byte) string {
	if docID != "" {
		return docID
	}
	return DocumentID(pdfBytes)
}

// singleLine collapses the suggestion onto one line; runs are single lines.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
