// Package evals checks how well a tool selector (an LLM or a baseline)
// maps natural language requests onto the PagerDuty MCP tools and their
// arguments.
package evals

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/tools"
)

// Suite file names, relative to the suite directory
const (
	ToolSelectionFile  = "tool_selection.json"
	ConfusionPairsFile = "confusion_pairs.json"
	ArgumentsFile      = "argument_correctness.json"
)

//go:embed suites/*.json
var embedded embed.FS

// Embedded returns the suites shipped with the server
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "suites")
	if err != nil {
		panic(err)
	}
	return sub
}

// ToolSelectionTest is one request with the tool it should resolve to
type ToolSelectionTest struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Input        string         `json:"input"`
	ExpectedTool string         `json:"expected_tool"`
	ExpectedArgs map[string]any `json:"expected_args,omitempty"`
	NotTools     []string       `json:"not_tools,omitempty"`
}

// ToolSelectionSuite contains all tool selection tests
type ToolSelectionSuite struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Tests       []ToolSelectionTest `json:"tests"`
}

type ConfusionPairTest struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Reason   string `json:"reason"`
}

// ConfusionPair groups tools whose descriptions overlap, with the rule
// that tells them apart
type ConfusionPair struct {
	ID             string              `json:"id"`
	Tools          []string            `json:"tools"`
	Disambiguation string              `json:"disambiguation"`
	Tests          []ConfusionPairTest `json:"tests"`
}

// ConfusionPairSuite contains all confusion pair tests
type ConfusionPairSuite struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Pairs       []ConfusionPair `json:"pairs"`
}

// ArgumentTest checks the arguments extracted for a request
type ArgumentTest struct {
	ID            string         `json:"id"`
	Tool          string         `json:"tool"`
	Input         string         `json:"input"`
	RequiredArgs  []string       `json:"required_args,omitempty"`
	ExpectedArgs  map[string]any `json:"expected_args,omitempty"`
	ForbiddenArgs []string       `json:"forbidden_args,omitempty"`
	ArgNotes      string         `json:"arg_notes,omitempty"`
}

// ArgumentRules documents how arguments are expected to be shaped
type ArgumentRules struct {
	IDFormat           string `json:"id_format"`
	ArrayHandling      string `json:"array_handling"`
	UserContextDefault string `json:"user_context_default"`
	LimitHandling      string `json:"limit_handling"`
}

// ArgumentSuite contains all argument tests and the rules they follow
type ArgumentSuite struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Tests       []ArgumentTest `json:"tests"`
	Rules       ArgumentRules  `json:"validation_rules"`
}

// Suites bundles the three suites
type Suites struct {
	ToolSelection  *ToolSelectionSuite
	ConfusionPairs *ConfusionPairSuite
	Arguments      *ArgumentSuite
}

func load[T any](fsys fs.FS, name string) (*T, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var suite T
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &suite, nil
}

// LoadToolSelectionSuite reads tool_selection.json from fsys
func LoadToolSelectionSuite(fsys fs.FS) (*ToolSelectionSuite, error) {
	return load[ToolSelectionSuite](fsys, ToolSelectionFile)
}

func LoadConfusionPairSuite(fsys fs.FS) (*ConfusionPairSuite, error) {
	return load[ConfusionPairSuite](fsys, ConfusionPairsFile)
}

func LoadArgumentSuite(fsys fs.FS) (*ArgumentSuite, error) {
	return load[ArgumentSuite](fsys, ArgumentsFile)
}

// LoadAll loads every suite from fsys
func LoadAll(fsys fs.FS) (*Suites, error) {
	toolSelection, err := LoadToolSelectionSuite(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading tool selection: %w", err)
	}
	confusionPairs, err := LoadConfusionPairSuite(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading confusion pairs: %w", err)
	}
	arguments, err := LoadArgumentSuite(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading arguments: %w", err)
	}
	return &Suites{ToolSelection: toolSelection, ConfusionPairs: confusionPairs, Arguments: arguments}, nil
}

// TotalTests counts the cases across all suites
func (s *Suites) TotalTests() int {
	total := len(s.ToolSelection.Tests) + len(s.Arguments.Tests)
	for _, pair := range s.ConfusionPairs.Pairs {
		total += len(pair.Tests)
	}
	return total
}

// Coverage compares the tools named by the suites with the registered tools
type Coverage struct {
	Covered   []string // registered tools with at least one case
	Uncovered []string // registered tools no case mentions
	Unknown   []string // names used by a case that match no registered tool
}

// CheckCoverage reports suite coverage of specs
func (s *Suites) CheckCoverage(specs []tools.ToolSpec) Coverage {
	seen := map[string]bool{}
	mark := func(names ...string) {
		for _, n := range names {
			if n != "" {
				seen[n] = true
			}
		}
	}
	for _, test := range s.ToolSelection.Tests {
		mark(test.ExpectedTool)
		mark(test.NotTools...)
	}
	for _, pair := range s.ConfusionPairs.Pairs {
		mark(pair.Tools...)
		for _, test := range pair.Tests {
			mark(test.Expected)
		}
	}
	for _, test := range s.Arguments.Tests {
		mark(test.Tool)
	}

	var cov Coverage
	registered := map[string]bool{}
	for _, spec := range specs {
		registered[spec.Name] = true
		if seen[spec.Name] {
			cov.Covered = append(cov.Covered, spec.Name)
		} else {
			cov.Uncovered = append(cov.Uncovered, spec.Name)
		}
	}
	for name := range seen {
		if !registered[name] {
			cov.Unknown = append(cov.Unknown, name)
		}
	}
	sort.Strings(cov.Unknown)
	return cov
}
