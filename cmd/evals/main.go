// Command evals inspects the tool selection suites and can score the keyword
// baseline against them.
//
// Usage:
//
//	go run ./cmd/evals --suite all --baseline
//
// To score an LLM, implement evals.ToolSelector in your harness and call
// EvaluateToolSelection, EvaluateConfusionPairs and EvaluateArguments.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/evals"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/tools"
)

type options struct {
	dir      string
	suite    string
	verbose  bool
	baseline bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "evals",
		Short:        "Inspect PagerDuty MCP tool selection suites",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory with suite JSON files (default: built-in suites)")
	cmd.Flags().StringVar(&opts.suite, "suite", "all", "Suite: tool_selection, confusion_pairs, arguments, or all")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show every test case")
	cmd.Flags().BoolVar(&opts.baseline, "baseline", false, "Score the keyword baseline selector")
	return cmd
}

func run(w io.Writer, opts *options) error {
	var fsys fs.FS = evals.Embedded()
	if opts.dir != "" {
		fsys = os.DirFS(opts.dir)
	}

	suites, err := evals.LoadAll(fsys)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "PagerDuty MCP Server - Evaluation Framework")
	fmt.Fprintln(w, "===========================================")

	var selector evals.ToolSelector
	if opts.baseline {
		selector = evals.NewKeywordSelector(tools.AllTools)
	}

	switch opts.suite {
	case "tool_selection":
		printToolSelection(w, suites.ToolSelection, selector, opts.verbose)
	case "confusion_pairs":
		printConfusionPairs(w, suites.ConfusionPairs, selector, opts.verbose)
	case "arguments":
		printArguments(w, suites.Arguments, selector, opts.verbose)
	case "all":
		printToolSelection(w, suites.ToolSelection, selector, opts.verbose)
		printConfusionPairs(w, suites.ConfusionPairs, selector, opts.verbose)
		printArguments(w, suites.Arguments, selector, opts.verbose)
		return printCoverage(w, suites)
	default:
		return fmt.Errorf("unknown suite: %s", opts.suite)
	}
	return nil
}

func printToolSelection(w io.Writer, suite *evals.ToolSelectionSuite, selector evals.ToolSelector, verbose bool) {
	fmt.Fprintf(w, "\nTool Selection Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Fprintf(w, "Total Tests: %d\n", len(suite.Tests))

	byTool := map[string]int{}
	for _, test := range suite.Tests {
		byTool[test.ExpectedTool]++
	}
	printCounts(w, "Tests by Tool", byTool)

	if verbose {
		for _, test := range suite.Tests {
			fmt.Fprintf(w, "  [%s] %s\n    -> %s\n", test.ID, test.Input, test.ExpectedTool)
			if len(test.NotTools) > 0 {
				fmt.Fprintf(w, "    not %v\n", test.NotTools)
			}
		}
	}

	if selector != nil {
		metrics, _ := evals.EvaluateToolSelection(suite, selector)
		fmt.Fprint(w, evals.FormatMetrics(metrics, "Baseline: Tool Selection"))
	}
}

func printConfusionPairs(w io.Writer, suite *evals.ConfusionPairSuite, selector evals.ToolSelector, verbose bool) {
	fmt.Fprintf(w, "\nConfusion Pairs Suite: %s (v%s)\n", suite.Name, suite.Version)
	for _, pair := range suite.Pairs {
		fmt.Fprintf(w, "  %s: %v\n    Rule: %s\n    Tests: %d\n", pair.ID, pair.Tools, pair.Disambiguation, len(pair.Tests))
		if verbose {
			for _, test := range pair.Tests {
				fmt.Fprintf(w, "      %q -> %s (%s)\n", test.Input, test.Expected, test.Reason)
			}
		}
	}

	if selector != nil {
		metrics, _ := evals.EvaluateConfusionPairs(suite, selector)
		fmt.Fprint(w, evals.FormatMetrics(metrics, "Baseline: Confusion Pairs"))
	}
}

func printArguments(w io.Writer, suite *evals.ArgumentSuite, selector evals.ToolSelector, verbose bool) {
	fmt.Fprintf(w, "\nArgument Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Fprintf(w, "Total Tests: %d\n", len(suite.Tests))

	fmt.Fprintln(w, "Rules:")
	fmt.Fprintf(w, "  IDs: %s\n", suite.Rules.IDFormat)
	fmt.Fprintf(w, "  Arrays: %s\n", suite.Rules.ArrayHandling)
	fmt.Fprintf(w, "  User context: %s\n", suite.Rules.UserContextDefault)
	fmt.Fprintf(w, "  Limit: %s\n", suite.Rules.LimitHandling)

	if verbose {
		for _, test := range suite.Tests {
			fmt.Fprintf(w, "  [%s] %s\n    Tool: %s\n    Expected: %v\n", test.ID, test.Input, test.Tool, test.ExpectedArgs)
			if len(test.ForbiddenArgs) > 0 {
				fmt.Fprintf(w, "    Forbidden: %v\n", test.ForbiddenArgs)
			}
		}
	}

	if selector != nil {
		metrics, _ := evals.EvaluateArguments(suite, selector)
		fmt.Fprint(w, evals.FormatMetrics(metrics, "Baseline: Arguments"))
	}
}

// printCoverage fails when a suite names a tool the server does not register
func printCoverage(w io.Writer, suites *evals.Suites) error {
	cov := suites.CheckCoverage(tools.AllTools)

	fmt.Fprintf(w, "\nTotal Evaluation Tests: %d\n", suites.TotalTests())
	fmt.Fprintf(w, "Tool Coverage: %d/%d tools\n", len(cov.Covered), len(tools.AllTools))
	for _, name := range cov.Uncovered {
		fmt.Fprintf(w, "  no cases: %s\n", name)
	}
	if len(cov.Unknown) > 0 {
		return fmt.Errorf("suites reference unknown tools: %v", cov.Unknown)
	}
	return nil
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-35s: %d\n", k, counts[k])
	}
}
