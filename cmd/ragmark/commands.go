package main

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/internal/grader"
	"github.com/ragmark/ragmark/internal/history"
)

const version = "0.1.0-dev"

var (
	flagOverride  string
	flagOutput    string
	flagVerbose   bool
	flagNoHistory bool
	flagLimit     int
)

var rootCmd = &cobra.Command{
	Use:           "ragmark",
	Short:         "Automated grader for student RAG service submissions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var gradeCmd = &cobra.Command{
	Use:   "grade <repository-url>",
	Short: "Clone, run, and grade a single submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrade,
}

var batchCmd = &cobra.Command{
	Use:   "batch <url-file>",
	Short: "Grade every repository URL listed in a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var historyCmd = &cobra.Command{
	Use:   "history <repository-url>",
	Short: "Show recorded grading runs for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ragmark version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ragmark %s\n", version)
	},
}

func init() {
	gradeCmd.Flags().StringVarP(&flagOverride, "config", "c", "", "YAML override file")
	gradeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "directory for generated reports")
	gradeCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	gradeCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip recording the run")
	batchCmd.Flags().StringVarP(&flagOverride, "config", "c", "", "YAML override file")
	batchCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "directory for generated reports")
	batchCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	batchCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip recording the runs")
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "max entries to show")

	rootCmd.AddCommand(gradeCmd, batchCmd, historyCmd, versionCmd)
}

// setup loads the base config, the optional override file, and the history
// store, and assembles a Grader from them.
func setup() (*grader.Grader, *config.Override, *history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	applyReportDir(cfg)

	var override *config.Override
	if flagOverride != "" {
		override, err = config.LoadOverrideFile(flagOverride)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load override %s: %w", flagOverride, err)
		}
	}

	opts := []grader.Option{grader.WithVerbose(flagVerbose)}
	var store *history.Store
	if !flagNoHistory {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open history store: %w", err)
		}
		opts = append(opts, grader.WithHistory(store))
	}

	return grader.New(cfg, opts...), override, store, nil
}

func runGrade(cmd *cobra.Command, args []string) error {
	g, override, store, err := setup()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	outcome, err := g.GradeSubmission(cmd.Context(), args[0], override)
	if err != nil {
		return err
	}
	printOutcome(args[0], outcome)
	if !outcome.Success {
		return fmt.Errorf("grading failed: %s", outcome.Reason)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	urls, err := readURLFile(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no repository URLs found in %s", args[0])
	}

	g, override, store, err := setup()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	failed := 0
	var outcomes []*grader.Outcome
	for _, url := range urls {
		outcome, err := g.GradeSubmission(cmd.Context(), url, override)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", url, err)
			failed++
			continue
		}
		printOutcome(url, outcome)
		outcomes = append(outcomes, outcome)
		if !outcome.Success {
			failed++
		}
	}

	fmt.Printf("\nbatch complete: %d graded, %d failed\n", len(urls), failed)
	printBatchSummary(outcomes)
	if failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", failed, len(urls))
	}
	return nil
}

// applyReportDir points report output at the --output directory when set.
func applyReportDir(cfg *config.Config) {
	if flagOutput != "" {
		cfg.ReportsDir = flagOutput
	}
}

// batchSummary aggregates per-run results into a grade distribution and a
// mean total score.
func batchSummary(outcomes []*grader.Outcome) (dist map[string]int, average float64) {
	dist = make(map[string]int)
	for _, o := range outcomes {
		dist[o.Scores.Grade]++
		average += o.Scores.TotalScore
	}
	if len(outcomes) > 0 {
		average /= float64(len(outcomes))
	}
	return dist, average
}

func printBatchSummary(outcomes []*grader.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	dist, average := batchSummary(outcomes)

	grades := []string{"A", "B", "C", "D", "F"}
	for grade := range dist {
		if !slices.Contains(grades, grade) {
			grades = append(grades, grade)
		}
	}
	sort.Strings(grades[5:])

	fmt.Println("grade distribution:")
	for _, grade := range grades {
		if dist[grade] > 0 {
			fmt.Printf("  %s: %d\n", grade, dist[grade])
		}
	}
	fmt.Printf("average score: %.2f\n", average)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	url := args[0]
	entries, err := store.Recent(url, flagLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no grading history for %s\n", url)
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %6.2f  %s  %6.1fs  %s\n", e.CreatedAt, e.TotalScore, e.Grade, e.DurationSeconds, e.GradingID)
	}

	mean, stddev, count, err := store.Stats(url)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d runs, mean %.2f, stddev %.2f\n", count, mean, stddev)
	return nil
}

// readURLFile parses one repository URL per line, skipping blanks and
// #-comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func printOutcome(url string, outcome *grader.Outcome) {
	status := "PASS"
	if !outcome.Success {
		status = "FAIL"
	}
	fmt.Printf("%s  %s  %6.2f/%.0f  grade %s  [%s]\n",
		status, url, outcome.Scores.TotalScore, outcome.Scores.MaxScore, outcome.Scores.Grade, outcome.GradingID)
	if outcome.Reports.JSON != "" {
		fmt.Printf("      report: %s\n", outcome.Reports.JSON)
	}
	if outcome.Reports.HTML != "" {
		fmt.Printf("      html:   %s\n", outcome.Reports.HTML)
	}
}
