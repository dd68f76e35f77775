// signpair prepares paired training images of SignWriting signs.
//
// Usage:
//
//	signpair manifest    [flags]           Pair layout directories with illustrations
//	signpair materialize [flags]           Write the A/B training pairs of every dataset
//	signpair render      [flags] [fsw]     Render an FSW string or a sign image
//	signpair match       [flags]           Recover pairs by visual similarity
//	signpair blank       [flags]           Write the blank conditioning image
//	signpair layout      [file]            Print the FSW of a layout description
//	signpair resolve     [flags] gloss...  Print the lexicon ids of glosses
//
// Every command accepts -config to read a YAML configuration and -v for
// debug logging. Flags override the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/signpair/signpair"
	"github.com/signpair/signpair/config"
	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/gloss"
	"github.com/signpair/signpair/render"
	"github.com/signpair/signpair/utils"
)

const HelpBanner = `
┌─┐┬┌─┐┌┐┌┌─┐┌─┐┬┬─┐
└─┐││ ┬│││├─┘├─┤│├┬┘
└─┘┴└─┘┘└┘┴  ┴ ┴┴┴└─

SignWriting training pair builder.
    Version: %s

Commands:
    manifest      pair layout directories with illustrations
    materialize   write the A/B training pairs of every dataset
    render        render an FSW string or a sign image
    match         recover pairs by visual similarity
    blank         write the blank conditioning image
    layout        print the FSW of a layout description
    resolve       print the lexicon ids of glosses

Run 'signpair <command> -h' for the flags of a command.
`

// Version indicates the current build version.
var Version string

var commands = map[string]func(args []string) error{
	"manifest":    runManifest,
	"materialize": runMaterialize,
	"render":      runRender,
	"match":       runMatch,
	"blank":       runBlank,
	"layout":      runLayout,
	"resolve":     runResolve,
}

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "--help", "help":
		usage()
		return
	case "version":
		fmt.Println(Version)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		usage()
		fatal(fmt.Errorf("unknown command %q", name))
	}

	now := time.Now()
	if err := cmd(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fatal(err)
	}
	if name == "manifest" || name == "materialize" || name == "match" {
		fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, HelpBanner, Version)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n",
		utils.DecorateText("✘ signpair:", utils.ErrorMessage),
		utils.DecorateText(err.Error(), utils.DefaultMessage),
	)
	os.Exit(1)
}

func success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n",
		utils.DecorateText("✔", utils.SuccessMessage),
		fmt.Sprintf(format, args...),
	)
}

// options are the flags shared by every command.
type options struct {
	config  string
	verbose bool
}

// binder registers the command specific flags on top of cfg.
type binder func(fs *flag.FlagSet, cfg *config.Config)

func newFlagSet(name string, cfg *config.Config, opts *options, bind binder) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&opts.config, "config", opts.config, "YAML configuration file")
	fs.BoolVar(&opts.verbose, "v", opts.verbose, "Verbose logging")
	if bind != nil {
		bind(fs, cfg)
	}
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: signpair %s [flags]\n\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parse resolves the configuration of a command: defaults, then the
// configuration file, then the flags. It returns the positional arguments.
func parse(name string, args []string, bind binder) (*config.Config, []string, error) {
	var opts options

	cfg := config.Default()
	fs := newFlagSet(name, cfg, &opts, bind)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if opts.config != "" {
		loaded, err := config.Load(opts.config)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		// Parse again so that the flags win over the file.
		fs = newFlagSet(name, cfg, &opts, bind)
		fs.SetOutput(io.Discard)
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
	}

	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func bindSize(fs *flag.FlagSet, cfg *config.Config) {
	fs.IntVar(&cfg.Size, "size", cfg.Size, "Side length of the output images")
	fs.StringVar(&cfg.Background, "bg", cfg.Background, "Background color as #rrggbb")
}

func bindFonts(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Render.LineFont, "line-font", cfg.Render.LineFont, "SignWriting line font (path or URL)")
	fs.StringVar(&cfg.Render.FillFont, "fill-font", cfg.Render.FillFont, "SignWriting fill font (path or URL)")
	fs.Float64Var(&cfg.Render.FontSize, "font-size", cfg.Render.FontSize, "Font size in points")
}

func bindLexicon(fs *flag.FlagSet, cfg *config.Config) {
	fs.Func("lexicon", fmt.Sprintf("Comma separated lexicon tables, later ones win (default %q)", strings.Join(cfg.Lexicon, ",")), func(s string) error {
		cfg.Lexicon = strings.Split(s, ",")
		return nil
	})
}

// newCompositor loads the fonts and returns the configured compositor.
func newCompositor(cfg *config.Config) (*signpair.Compositor, error) {
	font, err := render.LoadFont(cfg.Render.LineFont, cfg.Render.FillFont, cfg.Render.FontSize)
	if err != nil {
		return nil, fmt.Errorf("loading fonts: %w", err)
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return nil, err
	}
	c := signpair.NewCompositor(cfg.Size, font)
	c.Background = bg
	return c, nil
}

// datasetPath resolves a path relative to the dataset directory.
func datasetPath(cfg *config.Config, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.Dataset, path)
}

func runManifest(args []string) error {
	cfg, _, err := parse("manifest", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, "Dataset directory")
		fs.StringVar(&cfg.Glosses, "glosses", cfg.Glosses, "Directory of layout directories named after glosses")
		fs.StringVar(&cfg.Illustrations, "illustrations", cfg.Illustrations, "Directory of illustrations named by lexicon id")
		fs.StringVar(&cfg.Signs, "signs", cfg.Signs, "Directory of pre-rendered sign images")
		fs.StringVar(&cfg.Manifest, "out", cfg.Manifest, "Manifest file")
		bindLexicon(fs, cfg)
	})
	if err != nil {
		return err
	}

	lex, err := gloss.LoadLexicon(cfg.Lexicon...)
	if err != nil {
		return err
	}
	log.WithField("keys", lex.Len()).Info("lexicon loaded")

	b := &signpair.ManifestBuilder{
		Root:          cfg.Dataset,
		Glosses:       cfg.Glosses,
		Illustrations: cfg.Illustrations,
		Signs:         cfg.Signs,
		Resolver:      gloss.NewResolver(lex),
	}
	entries, err := b.Build()
	if err != nil {
		return err
	}

	out := datasetPath(cfg, cfg.Manifest)
	if err := signpair.WriteManifest(out, entries); err != nil {
		return err
	}
	success("%d entries written to %s", len(entries), utils.DecorateText(out, utils.SuccessMessage))
	return nil
}

func runMaterialize(args []string) error {
	cfg, _, err := parse("materialize", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&cfg.Datasets, "datasets", cfg.Datasets, "Directory of datasets holding a manifest each")
		fs.StringVar(&cfg.Train, "train", cfg.Train, "Output directory of the training pairs")
		fs.IntVar(&cfg.Workers, "conc", cfg.Workers, "Number of entries to process concurrently (0: one per CPU)")
		bindSize(fs, cfg)
		bindFonts(fs, cfg)
	})
	if err != nil {
		return err
	}

	c, err := newCompositor(cfg)
	if err != nil {
		return err
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ SIGNPAIR", utils.StatusMessage),
		utils.DecorateText("is materializing the training pairs...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, 200*time.Millisecond, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &signpair.Materializer{
		Compositor: c,
		TrainDir:   cfg.Train,
		Workers:    cfg.Workers,
		Progress:   spinner.Step,
	}

	spinner.Start()
	stats, err := m.Run(ctx, cfg.Datasets)
	spinner.Stop()
	if err != nil {
		return err
	}

	success("%d entries: %d illustrations and %d signs written, %d skipped, %d failed",
		stats.Entries, stats.WrittenA, stats.WrittenB, stats.Skipped, stats.Failed)
	return nil
}

func runRender(args []string) error {
	var fswStr, file, out string
	cfg, rest, err := parse("render", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&fswStr, "fsw", "", "FSW string to render")
		fs.StringVar(&file, "file", "", "Pre-rendered sign image to compose instead")
		fs.StringVar(&out, "out", "test.png", "Destination image")
		bindSize(fs, cfg)
		bindFonts(fs, cfg)
	})
	if err != nil {
		return err
	}
	if fswStr == "" && len(rest) > 0 {
		fswStr = rest[0]
	}

	var img *image.NRGBA
	switch {
	case file != "":
		bg, err := cfg.BackgroundColor()
		if err != nil {
			return err
		}
		c := signpair.NewCompositor(cfg.Size, nil)
		c.Background = bg
		img, err = c.FromFile(file)
		if err != nil {
			return err
		}
	case fswStr != "":
		c, err := newCompositor(cfg)
		if err != nil {
			return err
		}
		img, err = c.FromFSW(fswStr)
		if err != nil {
			return err
		}
	default:
		return errors.New("nothing to render: pass -fsw or -file")
	}

	if err := imaging.Save(img, out); err != nil {
		return err
	}
	success("the sign has been saved as %s", utils.DecorateText(out, utils.SuccessMessage))
	return nil
}

func runMatch(args []string) error {
	var out string
	cfg, _, err := parse("match", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&cfg.Glosses, "glosses", cfg.Glosses, "Directory of layout directories")
		fs.StringVar(&cfg.Gold, "gold", cfg.Gold, "Directory of sign images to match")
		fs.StringVar(&out, "out", ".", "Directory receiving the match previews")
		fs.BoolVar(&cfg.Render.Symbols, "symbols", cfg.Render.Symbols, "Render layouts from their per-symbol bitmaps")
		fs.Float64Var(&cfg.Matcher.Threshold, "threshold", cfg.Matcher.Threshold, "Minimum score of an accepted match")
		fs.Float64Var(&cfg.Matcher.ReviewMin, "review-min", cfg.Matcher.ReviewMin, "Lower bound of the review band")
		fs.Float64Var(&cfg.Matcher.ReviewMax, "review-max", cfg.Matcher.ReviewMax, "Upper bound of the review band")
		bindFonts(fs, cfg)
	})
	if err != nil {
		return err
	}

	m := signpair.NewMatcher(nil)
	m.Symbols = cfg.Render.Symbols
	m.Threshold = cfg.Matcher.Threshold
	m.ReviewMin = cfg.Matcher.ReviewMin
	m.ReviewMax = cfg.Matcher.ReviewMax
	m.OutDir = out
	if !m.Symbols {
		font, err := render.LoadFont(cfg.Render.LineFont, cfg.Render.FillFont, cfg.Render.FontSize)
		if err != nil {
			return fmt.Errorf("loading fonts: %w", err)
		}
		m.Renderer = font
	}

	cands, err := m.LoadCandidates(cfg.Glosses)
	if err != nil {
		return err
	}
	refs, err := signpair.LoadReferences(cfg.Gold)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"candidates": len(cands),
		"references": len(refs),
	}).Info("scoring")

	matches, err := m.Match(refs, cands)
	if err != nil {
		return err
	}
	for _, match := range matches {
		fmt.Printf("%s\t%s\t%.3f\t%s\n", match.Stem, match.FSW, match.Score, match.Dir)
	}
	success("%d of %d references matched", len(matches), len(refs))
	return nil
}

func runBlank(args []string) error {
	var out string
	cfg, _, err := parse("blank", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&out, "out", "white_image.png", "Destination image")
		bindSize(fs, cfg)
	})
	if err != nil {
		return err
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}
	if err := imaging.Save(signpair.Blank(cfg.Size, bg), out); err != nil {
		return err
	}
	success("the blank image has been saved as %s", utils.DecorateText(out, utils.SuccessMessage))
	return nil
}

func runLayout(args []string) error {
	_, rest, err := parse("layout", args, nil)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if len(rest) > 0 && rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s, err := fsw.LayoutToFSW(string(text))
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

func runResolve(args []string) error {
	cfg, rest, err := parse("resolve", args, bindLexicon)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New("no gloss given")
	}

	lex, err := gloss.LoadLexicon(cfg.Lexicon...)
	if err != nil {
		return err
	}
	r := gloss.NewResolver(lex)
	for _, name := range rest {
		var ids []string
		for id := range r.IDs(name) {
			ids = append(ids, strconv.Itoa(id))
		}
		fmt.Printf("%s\t%s\n", name, strings.Join(ids, " "))
	}
	return nil
}
