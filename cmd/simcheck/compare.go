package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panbanda/simcheck/internal/fileproc"
	"github.com/panbanda/simcheck/internal/output"
	"github.com/panbanda/simcheck/internal/progress"
	"github.com/panbanda/simcheck/pkg/config"
	"github.com/panbanda/simcheck/pkg/engine"
	"github.com/panbanda/simcheck/pkg/source"
	"github.com/panbanda/simcheck/pkg/stats"
	"github.com/panbanda/simcheck/pkg/submission"
)

var compareCmd = &cobra.Command{
	Use:   "compare <submission...>",
	Short: "Compare submissions for near-duplicate source code",
	Long: `compare discovers the source files under each submission directory,
runs every configured pass's winnowing/names/misspellings comparator
across the resulting corpus, and reports the top-N most similar pairs
per pass with their matching spans.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringP("format", "f", "", "Output format: text, json, markdown (overrides config)")
	compareCmd.Flags().StringP("output", "o", "", "Write output to file")
	compareCmd.Flags().Int("k", 0, "k-gram length (overrides config)")
	compareCmd.Flags().Int("t", 0, "noise threshold (overrides config)")
	compareCmd.Flags().Int("n", 0, "number of top pairs per pass (overrides config)")
	compareCmd.Flags().StringSlice("passes", nil, "Passes to run (overrides config)")
	compareCmd.Flags().StringSlice("archive", nil, "Archive submission directories")
	compareCmd.Flags().StringSlice("ignore", nil, "Distro/starter-code directories to subtract")
	compareCmd.Flags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := resolveCompareConfig(cmd)
	if err != nil {
		return err
	}

	fileStore := submission.NewFileStore()
	subStore := submission.NewSubmissionStore()
	src := source.NewFilesystem()

	var regular []submission.Submission
	for _, dir := range args {
		sub, err := loadSubmission(fileStore, subStore, src, dir, false)
		if err != nil {
			return fmt.Errorf("load submission %s: %w", dir, err)
		}
		regular = append(regular, sub)
	}

	archiveDirs, _ := cmd.Flags().GetStringSlice("archive")
	for _, dir := range archiveDirs {
		sub, err := loadSubmission(fileStore, subStore, src, dir, true)
		if err != nil {
			return fmt.Errorf("load archive %s: %w", dir, err)
		}
		regular = append(regular, sub)
	}

	ignoreDirs, _ := cmd.Flags().GetStringSlice("ignore")
	var distro []*submission.FileBacked
	for _, dir := range ignoreDirs {
		sub, err := loadSubmission(fileStore, subStore, src, dir, false)
		if err != nil {
			return fmt.Errorf("load distro %s: %w", dir, err)
		}
		distro = append(distro, sub)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	tracker := progress.NewBarTracker("Comparing submissions...", len(regular))
	ctx := progress.WithTracker(cmd.Context(), tracker)

	passResults, err := engine.Run(ctx, cfg, engine.Corpus{Submissions: regular, Distro: distro})
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), getOutputFile(cmd), cfg.Output.Color && !noColor)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(renderReport(passResults))
}

// resolveCompareConfig loads the layered configuration (file, then
// flags) the way omen's own subcommands merge persistent config with
// per-invocation flag overrides.
func resolveCompareConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		result, err := config.LoadConfig(config.WithPath(cfgFile))
		if err != nil {
			return nil, err
		}
		cfg = result.Config
	} else {
		var err error
		cfg, err = config.LoadOrDefault()
		if err != nil {
			return nil, err
		}
	}

	if k, _ := cmd.Flags().GetInt("k"); k > 0 {
		cfg.Winnowing.K = k
	}
	if t, _ := cmd.Flags().GetInt("t"); t > 0 {
		cfg.Winnowing.T = t
	}
	if n, _ := cmd.Flags().GetInt("n"); n > 0 {
		cfg.TopN = n
	}
	if passes, _ := cmd.Flags().GetStringSlice("passes"); len(passes) > 0 {
		cfg.Passes = passes
	}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.Output.Format = format
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadSubmission discovers every file under dir (skipping dotfiles,
// VCS directories, and common dependency directories) and builds a
// FileBacked submission from them. File discovery and path globbing
// are named, not specified, by spec.md §1: this is the minimal
// ambient implementation needed to drive the engine end to end.
func loadSubmission(fileStore *submission.FileStore, subStore *submission.SubmissionStore, src source.ContentSource, dir string, archive bool) (*submission.FileBacked, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return submission.NewSubmission(fileStore, subStore, submission.Config{
			Path:          dir,
			RelativePaths: []string{filepath.Base(dir)},
			Source:        singleFileSource{path: dir},
			IsArchive:     archive,
		}), nil
	}

	var candidates []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && isSkippedDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	relPaths, largeFiles, undecodable := validateFiles(dir, candidates)
	sort.Strings(relPaths)

	return submission.NewSubmission(fileStore, subStore, submission.Config{
		Path:             dir,
		RelativePaths:    relPaths,
		Source:           dirSource{root: dir, base: src},
		IsArchive:        archive,
		LargeFiles:       largeFiles,
		UndecodableFiles: undecodable,
	}), nil
}

// maxSubmissionFileSize bounds how large a single source file may be
// before it is excluded as a "large file" (spec.md §3's Submission
// large_files) rather than fed through the lexer and winnowing index.
const maxSubmissionFileSize = 2 << 20 // 2 MiB

// validateFiles adapts internal/fileproc's parallel per-file worker
// pool (the same one the teacher uses to fan out file-level work
// across cores) to this package's own concern: stat every candidate
// path concurrently, bucketing it into the kept relative-path list,
// spec.md §3's large_files, or its undecodable_files, instead of the
// teacher's AST-parsing callback.
func validateFiles(dir string, candidates []string) (relPaths, largeFiles, undecodable []string) {
	type verdict struct {
		rel  string
		kind int // 0 = ok, 1 = large, 2 = undecodable
	}
	results, errs := fileproc.ForEachFile(context.Background(), candidates, func(path string) (verdict, error) {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return verdict{}, err
		}
		rel = filepath.ToSlash(rel)
		info, statErr := os.Stat(path)
		if statErr != nil {
			return verdict{rel: rel, kind: 2}, nil
		}
		if info.Size() > maxSubmissionFileSize {
			return verdict{rel: rel, kind: 1}, nil
		}
		return verdict{rel: rel, kind: 0}, nil
	})
	for _, v := range results {
		switch v.kind {
		case 1:
			largeFiles = append(largeFiles, v.rel)
		case 2:
			undecodable = append(undecodable, v.rel)
		default:
			relPaths = append(relPaths, v.rel)
		}
	}
	if errs != nil {
		for _, e := range errs.Errors {
			if rel, relErr := filepath.Rel(dir, e.Path); relErr == nil {
				undecodable = append(undecodable, filepath.ToSlash(rel))
			}
		}
	}
	return relPaths, largeFiles, undecodable
}

func isSkippedDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "__pycache__", ".venv", ".idea", ".vscode":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// dirSource resolves submission-relative paths against root before
// delegating to base, since submission.Config.RelativePaths are
// relative to the submission directory, not the process's cwd.
type dirSource struct {
	root string
	base source.ContentSource
}

func (s dirSource) Read(path string) ([]byte, error) {
	return s.base.Read(filepath.Join(s.root, path))
}

// singleFileSource serves exactly one path regardless of the relative
// path requested, for the rare case a "submission" is passed as a
// single file rather than a directory.
type singleFileSource struct {
	path string
}

func (s singleFileSource) Read(string) ([]byte, error) {
	return os.ReadFile(s.path)
}

func getOutputFile(cmd *cobra.Command) string {
	out, _ := cmd.Flags().GetString("output")
	return out
}

// renderReport turns engine.PassResults into the output package's
// Renderable shell (SPEC_FULL.md §2's "Output / renderer shell"): a
// table of scored pairs per pass, matching the teacher's own
// table-per-section Report pattern in internal/output/formatter.go.
func renderReport(passResults []engine.PassResults) *output.Report {
	report := &output.Report{Title: "simcheck similarity report"}
	for _, pr := range passResults {
		headers := []string{"Submission A", "Submission B", "Score", "Groups"}
		var rows [][]string
		scores := make([]float64, 0, len(pr.Results))
		for _, r := range pr.Results {
			rows = append(rows, []string{
				r.SubA.Identity(),
				r.SubB.Identity(),
				fmt.Sprintf("%.2f", r.Score),
				fmt.Sprintf("%d", len(r.Groups)),
			})
			scores = append(scores, r.Score)
		}
		title := fmt.Sprintf("%s (%d pairs)", pr.PassName, len(pr.Results))
		report.Sections = append(report.Sections, output.NewTable(title, headers, rows, scoreFooter(scores), pr))
	}
	return report
}

// scoreFooter summarizes a pass's score distribution with its median
// and 90th-percentile score, so a reader can judge at a glance whether
// the top pair is an outlier or representative of a broad cluster of
// similar submissions.
func scoreFooter(scores []float64) []string {
	if len(scores) == 0 {
		return nil
	}
	sorted := append([]float64{}, scores...)
	sort.Float64s(sorted)
	return []string{
		"", "",
		fmt.Sprintf("p50=%.2f", stats.Percentile(sorted, 50)),
		fmt.Sprintf("p90=%.2f", stats.Percentile(sorted, 90)),
	}
}
