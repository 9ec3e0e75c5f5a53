package evals

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ToolSelector picks a tool and its arguments for a request. An LLM
// harness or the KeywordSelector baseline can implement it.
type ToolSelector interface {
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

// Result is the outcome of one evaluated case
type Result struct {
	ID           string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// EvalMetrics aggregates the results of one suite
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64
	ByCategory    map[string]*CategoryMetrics
	ByTool        map[string]*ToolMetrics
	FailedDetails []string
}

// CategoryMetrics counts results per category
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

// ToolMetrics counts how often a tool was expected and selected
type ToolMetrics struct {
	ExpectedCount  int
	SelectedCount  int
	CorrectCount   int
	FalsePositives int // selected in place of another tool
	FalseNegatives int // expected but another tool was selected
}

func newMetrics() *EvalMetrics {
	return &EvalMetrics{
		ByCategory: make(map[string]*CategoryMetrics),
		ByTool:     make(map[string]*ToolMetrics),
	}
}

func (m *EvalMetrics) tool(name string) *ToolMetrics {
	if m.ByTool[name] == nil {
		m.ByTool[name] = &ToolMetrics{}
	}
	return m.ByTool[name]
}

func (m *EvalMetrics) category(name string) *CategoryMetrics {
	if m.ByCategory[name] == nil {
		m.ByCategory[name] = &CategoryMetrics{}
	}
	return m.ByCategory[name]
}

// record folds one result into the metrics under category
func (m *EvalMetrics) record(category string, r Result) {
	m.TotalTests++
	cat := m.category(category)
	cat.Total++

	m.tool(r.ExpectedTool).ExpectedCount++
	m.tool(r.ActualTool).SelectedCount++
	if r.ActualTool == r.ExpectedTool {
		m.tool(r.ExpectedTool).CorrectCount++
	} else {
		m.tool(r.ExpectedTool).FalseNegatives++
		m.tool(r.ActualTool).FalsePositives++
	}

	if r.Passed {
		m.PassedTests++
		cat.Passed++
		return
	}
	m.FailedTests++
	cat.Failed++
	m.FailedDetails = append(m.FailedDetails,
		fmt.Sprintf("[%s] %s: %s", r.ID, r.Input, strings.Join(r.Errors, "; ")))
}

func (m *EvalMetrics) finish() *EvalMetrics {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
	return m
}

// run asks the selector and checks the chosen tool
func run(selector ToolSelector, id, input, expected string) (Result, map[string]any) {
	r := Result{ID: id, Input: input, ExpectedTool: expected, Passed: true}

	tool, args, err := selector.SelectTool(input)
	r.ActualTool = tool
	if err != nil {
		r.fail("selector error: %v", err)
		return r, nil
	}
	if tool != expected {
		r.fail("wrong tool: expected %s, got %s", expected, tool)
	}
	return r, args
}

func (r *Result) fail(format string, a ...any) {
	r.Passed = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, a...))
}

// checkArgs compares the expected argument values with actual
func (r *Result) checkArgs(expected, actual map[string]any) {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := expected[key]
		got, ok := actual[key]
		switch {
		case !ok:
			r.fail("missing arg %s (expected %v)", key, want)
		case !compareValues(want, got):
			r.fail("wrong arg %s: expected %v, got %v", key, want, got)
		}
	}
}

// EvaluateToolSelection runs the tool selection suite
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []Result) {
	metrics := newMetrics()
	var results []Result

	for _, test := range suite.Tests {
		r, args := run(selector, test.ID, test.Input, test.ExpectedTool)
		for _, forbidden := range test.NotTools {
			if r.ActualTool == forbidden {
				r.fail("selected forbidden tool: %s", forbidden)
			}
		}
		if r.ActualTool == test.ExpectedTool {
			r.checkArgs(test.ExpectedArgs, args)
		}

		metrics.record(test.Category, r)
		results = append(results, r)
	}
	return metrics.finish(), results
}

// EvaluateConfusionPairs runs the disambiguation suite. Each pair is its
// own category.
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) (*EvalMetrics, []Result) {
	metrics := newMetrics()
	var results []Result

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			r, _ := run(selector, pair.ID, test.Input, test.Expected)
			if !r.Passed && test.Reason != "" {
				r.Errors = append(r.Errors, "rule: "+test.Reason)
			}
			metrics.record(pair.ID, r)
			results = append(results, r)
		}
	}
	return metrics.finish(), results
}

// EvaluateArguments runs the argument suite. Each tool is its own category.
func EvaluateArguments(suite *ArgumentSuite, selector ToolSelector) (*EvalMetrics, []Result) {
	metrics := newMetrics()
	var results []Result

	for _, test := range suite.Tests {
		r, args := run(selector, test.ID, test.Input, test.Tool)
		if r.ActualTool == test.Tool {
			for _, name := range test.RequiredArgs {
				if _, ok := args[name]; !ok {
					r.fail("missing required arg %s", name)
				}
			}
			r.checkArgs(test.ExpectedArgs, args)
			for _, name := range test.ForbiddenArgs {
				if _, ok := args[name]; ok {
					r.fail("forbidden arg %s", name)
				}
			}
		}

		metrics.record(test.Tool, r)
		results = append(results, r)
	}
	return metrics.finish(), results
}

// compareValues compares a value decoded from a suite with one produced by a
// selector. JSON numbers decode to float64 and arrays to []any, so both
// sides are normalized before comparing.
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	if f, ok := asFloat(ev); ok {
		g, ok := asFloat(av)
		return ok && f == g
	}

	if ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice {
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func asFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

// FormatMetrics renders metrics as a short text report
func FormatMetrics(metrics *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", metrics.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", metrics.PassedTests, metrics.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", metrics.FailedTests)

	if len(metrics.ByCategory) > 0 {
		cats := make([]string, 0, len(metrics.ByCategory))
		for cat := range metrics.ByCategory {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		b.WriteString("\nBy Category:\n")
		for _, cat := range cats {
			m := metrics.ByCategory[cat]
			if m.Total > 0 {
				fmt.Fprintf(&b, "  %-30s: %d/%d (%.0f%%)\n", cat, m.Passed, m.Total, float64(m.Passed)/float64(m.Total)*100)
			}
		}
	}

	const maxShown = 10
	details := metrics.FailedDetails
	switch {
	case len(details) == 0:
	case len(details) <= maxShown:
		b.WriteString("\nFailed Tests:\n")
	default:
		fmt.Fprintf(&b, "\nFailed Tests (showing first %d of %d):\n", maxShown, len(details))
		details = details[:maxShown]
	}
	for _, detail := range details {
		fmt.Fprintf(&b, "  - %s\n", detail)
	}

	return b.String()
}
