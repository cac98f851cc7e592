// cvedit edits text inside CV PDFs while keeping the original layout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"cv-editor/internal/config"
	"cv-editor/internal/editor"
	ledger "cv-editor/internal/errors"
	"cv-editor/internal/logger"
	"cv-editor/internal/pdf"
	"cv-editor/internal/suggest"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch command := os.Args[1]; command {
	case "locate":
		err = runLocate(os.Args[2:])
	case "replace":
		err = runReplace(ctx, os.Args[2:])
	case "suggest":
		err = runSuggest(ctx, os.Args[2:])
	case "sections":
		err = runSections(os.Args[2:])
	case "undo":
		err = runUndo(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	usage := `cvedit - template-preserving CV PDF editor

Usage:
  cvedit <command> [flags]

Commands:
  locate     List the text runs containing -find
  replace    Replace -find with -replace and write -out
  suggest    Ask the chat model to reword -find, then replace it
  sections   Print the detected CV sections (or one with -section)
  undo       Restore -pdf, an edited output, to its content before the last edit

Common flags:
  -pdf <file>       input PDF
  -config <file>    config file (default ~/.config/cv-editor/cv-editor-config.json)

Examples:
  cvedit locate -pdf cv.pdf -find Vietnam
  cvedit replace -pdf cv.pdf -find Vietnam -replace ThanhHoa -out cv-new.pdf
  cvedit suggest -pdf cv.pdf -find "Managed 5 engineers" -section experience -out cv-new.pdf
  cvedit sections -pdf cv.pdf -section skills
  cvedit undo -pdf cv-new.pdf

History is kept per output file: undo takes the file an edit wrote, that is
-out, or <input>-edited.pdf when -out is omitted.
`
	fmt.Print(usage)
}

// app holds what every command loads from the config file.
type app struct {
	cfg  *config.ConfigManager
	opts pdf.Options
}

func newFlagSet(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	pdfPath := fs.String("pdf", "", "input PDF")
	configPath := fs.String("config", "", "config file")
	return fs, pdfPath, configPath
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFilePath = cfg.GetConfig().LogFile
	logCfg.Level = cfg.GetLogLevel()
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	raster, err := pdf.NewRasterizer(cfg.GetRasterizer(), cfg.GetPdftoppmPath())
	if err != nil {
		return nil, err
	}
	c := cfg.GetConfig()
	opts := pdf.DefaultOptions()
	opts.Rasterizer = raster
	opts.Policy = pdf.FitPolicy{
		AllowScaling:    c.AllowScaling,
		AllowWrapping:   c.AllowWrapping,
		AllowTruncation: c.AllowTruncation,
	}
	logger.Info("cvedit started", logger.String("rasterizer", raster.Name()))
	return &app{cfg: cfg, opts: opts}, nil
}

func (a *app) newEditor(options ...editor.Option) *editor.Editor {
	options = append(options, editor.WithHistory(
		editor.NewHistoryManager(a.cfg.GetHistoryDir(), a.cfg.GetHistoryMaxVersions())))
	if em, err := ledger.NewErrorManager(a.cfg.GetConfig().ErrorsDir); err == nil {
		options = append(options, editor.WithErrorManager(em))
	} else {
		logger.Warn("failure ledger disabled", logger.Err(err))
	}
	return editor.New(a.opts, options...)
}

func readPDF(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("-pdf is required")
	}
	return os.ReadFile(path)
}

// documentID keys history and failures by the file's absolute path. Edits
// use the path they write, so undo finds the version under the edited file.
func documentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return editor.DocumentID([]byte(abs))
}

func defaultOut(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "-edited" + ext
}

func runLocate(args []string) error {
	fs, pdfPath, configPath := newFlagSet("locate")
	find := fs.String("find", "", "text to search for")
	asJSON := fs.Bool("json", false, "print runs as JSON")
	fs.Parse(args)

	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}
	data, err := readPDF(*pdfPath)
	if err != nil {
		return err
	}

	runs, err := a.newEditor().Locate(documentID(*pdfPath), data, *find)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println(pdf.WarnNotFound)
		return nil
	}
	for _, run := range runs {
		fmt.Printf("page %d  x=%.2f y=%.2f w=%.2f h=%.2f  %s %.2fpt  %q\n",
			run.PageIndex+1, run.X, run.Y, run.Width, run.Height, run.FontFamily, run.FontSize, run.Text)
	}
	return nil
}

func runReplace(ctx context.Context, args []string) error {
	fs, pdfPath, configPath := newFlagSet("replace")
	find := fs.String("find", "", "text to replace")
	replace := fs.String("replace", "", "replacement text")
	out := fs.String("out", "", "output PDF (default <input>-edited.pdf)")
	wrap := fs.Bool("wrap", false, "allow wrapping onto extra lines")
	fs.Parse(args)

	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}
	if *wrap {
		a.opts.Policy.AllowWrapping = true
	}
	data, err := readPDF(*pdfPath)
	if err != nil {
		return err
	}

	target := outputPath(*pdfPath, *out)
	start := time.Now()
	res, err := a.newEditor().FindAndReplace(ctx, documentID(target), data, *find, *replace)
	if err != nil {
		return err
	}
	return writeResult(res, target, time.Since(start))
}

func runSuggest(ctx context.Context, args []string) error {
	fs, pdfPath, configPath := newFlagSet("suggest")
	find := fs.String("find", "", "text to improve")
	sectionName := fs.String("section", "freetext", "freetext, summary, experience, project or skills")
	out := fs.String("out", "", "output PDF (default <input>-edited.pdf)")
	dryRun := fs.Bool("dry-run", false, "print the suggestion without editing")
	fs.Parse(args)

	section, err := suggest.ParseSection(*sectionName)
	if err != nil {
		return err
	}
	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}
	data, err := readPDF(*pdfPath)
	if err != nil {
		return err
	}

	chat, err := suggest.NewOpenAISuggester(ctx, suggest.Config{
		APIKey:  a.cfg.GetAPIKey(),
		BaseURL: a.cfg.GetBaseURL(),
		Model:   a.cfg.GetModel(),
		Timeout: 60 * time.Second,
	}, section)
	if err != nil {
		return err
	}
	cache := suggest.NewCache(a.cfg.GetConfig().SuggestCachePath)
	if err := cache.Load(); err != nil {
		logger.Warn("suggestion cache not loaded", logger.Err(err))
	}
	cached := suggest.NewCachedSuggester(chat, section, cache)
	cached.Persist = true

	if *dryRun {
		suggestion, err := cached.Suggest(ctx, *find)
		if err != nil {
			return err
		}
		fmt.Println(suggestion)
		return nil
	}

	target := outputPath(*pdfPath, *out)
	start := time.Now()
	res, err := a.newEditor(editor.WithSuggester(cached)).SuggestAndReplace(ctx, documentID(target), data, *find)
	if err != nil {
		return err
	}
	if res.Suggestion != "" {
		fmt.Printf("Suggestion: %s\n", res.Suggestion)
	}
	return writeResult(res, target, time.Since(start))
}

func runSections(args []string) error {
	fs, pdfPath, configPath := newFlagSet("sections")
	section := fs.String("section", "", "print only this section")
	fs.Parse(args)

	if _, err := loadApp(*configPath); err != nil {
		return err
	}
	data, err := readPDF(*pdfPath)
	if err != nil {
		return err
	}

	scanned, err := pdf.IsScanned(data)
	if err != nil {
		return err
	}
	if scanned {
		fmt.Println("The PDF has almost no text layer; it looks scanned and cannot be edited in place.")
		return nil
	}
	text, err := pdf.ExtractAllText(data)
	if err != nil {
		return err
	}
	sections := pdf.DetectCVSections(text)
	if *section != "" {
		fmt.Println(sections.Section(*section))
		return nil
	}
	return printJSON(sections)
}

func runUndo(args []string) error {
	fs, pdfPath, configPath := newFlagSet("undo")
	out := fs.String("out", "", "where to write the restored PDF (default: overwrite -pdf)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "undo -pdf <edited file>: -pdf is the file a replace or suggest wrote")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if *pdfPath == "" {
		return fmt.Errorf("-pdf is required")
	}
	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}
	data, err := a.newEditor().Undo(documentID(*pdfPath))
	if err != nil {
		return err
	}
	target := *out
	if target == "" {
		target = *pdfPath
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Restored %s\n", target)
	return nil
}

// outputPath is -out, or <input>-edited.pdf when it is empty.
func outputPath(in, out string) string {
	if out == "" {
		return defaultOut(in)
	}
	return out
}

func writeResult(res *editor.Result, out string, elapsed time.Duration) error {
	for _, w := range res.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	if res.Applied == 0 {
		fmt.Println("No changes written.")
		return nil
	}
	if err := os.WriteFile(out, res.PDF, 0644); err != nil {
		return err
	}
	logger.Info("edited PDF written",
		logger.String("path", out),
		logger.Int("applied", res.Applied),
		logger.Duration("elapsed", elapsed))
	fmt.Printf("Replaced %d run(s), wrote %s\n", res.Applied, out)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
