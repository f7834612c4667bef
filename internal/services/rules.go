package services

import (
	"context"
	"regexp"
	"strings"
)

// FeedbackCandidate is a single analysis finding before it is persisted as a
// pending Feedback row.
type FeedbackCandidate struct {
	LineNumber int    `json:"line"`
	Severity   string `json:"severity"` // critical, warning, suggestion
	Category   string `json:"category"`
	Message    string `json:"message"`
}

// lineRule is one pattern check applied per source line. Rules are evaluated
// in a fixed order so the rule-based strategy is fully deterministic.
type lineRule struct {
	match    func(line, trimmed string) bool
	severity string
	category string
	message  string
}

var (
	emptyCatchRegex   = regexp.MustCompile(`catch\s*\([^)]*\)\s*\{\s*\}`)
	stringEqRegex     = regexp.MustCompile(`(==|!=)\s*"`)
	magicNumberRegex  = regexp.MustCompile(`(^|[^\w.])\d{3,}([^\w.]|$)`)
	upperDefRegex     = regexp.MustCompile(`^def\s+\w*[A-Z]`)
	lowerClassRegex   = regexp.MustCompile(`\bclass\s+[a-z]`)
	trailingWSRegex   = regexp.MustCompile(`[ \t]+$`)
	pyCompareNilRegex = regexp.MustCompile(`[=!]=\s*None\b`)
)

var pythonRules = []lineRule{
	{
		match:    func(_, trimmed string) bool { return strings.Contains(trimmed, "eval(") },
		severity: "critical", category: "security",
		message: "Avoid eval() - it executes arbitrary code and is a common injection vector",
	},
	{
		match:    func(_, trimmed string) bool { return trimmed == "except:" || strings.HasPrefix(trimmed, "except:") },
		severity: "warning", category: "best_practice",
		message: "Avoid bare except - catch specific exception types",
	},
	{
		match:    func(_, trimmed string) bool { return strings.Contains(trimmed, "import *") },
		severity: "warning", category: "best_practice",
		message: "Avoid 'import *' - it pollutes the namespace",
	},
	{
		match:    func(line, _ string) bool { return pyCompareNilRegex.MatchString(line) },
		severity: "warning", category: "style",
		message: "Use 'is None' / 'is not None' instead of equality comparison",
	},
	{
		match: func(_, trimmed string) bool {
			return strings.Contains(trimmed, "open(") && !strings.Contains(trimmed, "with ")
		},
		severity: "warning", category: "best_practice",
		message: "Open files inside a 'with' statement so they are always closed",
	},
	{
		match: func(line, _ string) bool {
			return strings.Contains(line, "print(") && !strings.Contains(line, "f\"") && !strings.Contains(line, "f'") && !strings.Contains(line, "%")
		},
		severity: "suggestion", category: "style",
		message: "Consider using f-strings for better readability",
	},
	{
		match:    func(_, trimmed string) bool { return upperDefRegex.MatchString(trimmed) },
		severity: "suggestion", category: "style",
		message: "Function names should be snake_case",
	},
}

var javaRules = []lineRule{
	{
		match:    func(line, _ string) bool { return emptyCatchRegex.MatchString(line) },
		severity: "critical", category: "logic",
		message: "Empty catch block silently swallows exceptions",
	},
	{
		match:    func(line, _ string) bool { return stringEqRegex.MatchString(line) },
		severity: "warning", category: "logic",
		message: "Compare strings with equals(), not == or !=",
	},
	{
		match: func(line, _ string) bool {
			return strings.Contains(line, "public static void main") && !strings.Contains(line, "String[] args") && !strings.Contains(line, "String... args")
		},
		severity: "warning", category: "logic",
		message: "Main method should declare a String[] args parameter",
	},
	{
		match: func(line, _ string) bool {
			return (strings.Contains(line, "new FileInputStream") || strings.Contains(line, "new FileReader") || strings.Contains(line, "new Scanner(")) && !strings.Contains(line, "try")
		},
		severity: "warning", category: "best_practice",
		message: "Wrap resource creation in try-with-resources so it is always closed",
	},
	{
		match:    func(line, _ string) bool { return strings.Contains(line, "System.out.println") },
		severity: "suggestion", category: "best_practice",
		message: "Consider using a proper logging framework instead of System.out.println",
	},
	{
		match:    func(line, _ string) bool { return lowerClassRegex.MatchString(line) },
		severity: "suggestion", category: "style",
		message: "Class names should start with an uppercase letter",
	},
}

var cppRules = []lineRule{
	{
		match:    func(_, trimmed string) bool { return strings.Contains(trimmed, "gets(") },
		severity: "critical", category: "security",
		message: "gets() cannot bound its input and is always a buffer overflow risk - use fgets()",
	},
	{
		match:    func(_, trimmed string) bool { return strings.Contains(trimmed, "using namespace std") },
		severity: "warning", category: "best_practice",
		message: "Avoid 'using namespace std' at file scope",
	},
	{
		match:    func(_, trimmed string) bool { return strings.HasPrefix(trimmed, "goto ") },
		severity: "warning", category: "style",
		message: "Avoid goto - restructure the control flow",
	},
	{
		match:    func(_, trimmed string) bool { return strings.Contains(trimmed, "malloc(") },
		severity: "warning", category: "best_practice",
		message: "Prefer new/delete or smart pointers over malloc, and ensure a matching free",
	},
	{
		match: func(line, _ string) bool {
			return strings.Contains(line, "cout") && strings.Contains(line, "endl")
		},
		severity: "suggestion", category: "performance",
		message: "Consider using '\\n' instead of endl to avoid flushing on every line",
	},
}

// generalRules apply to every language, after the language-specific pass.
var generalRules = []lineRule{
	{
		match:    func(line, _ string) bool { return len(line) > 120 },
		severity: "suggestion", category: "style",
		message: "Line exceeds 120 characters - consider breaking it up",
	},
	{
		match: func(line, trimmed string) bool {
			return trimmed != "" && trailingWSRegex.MatchString(line)
		},
		severity: "suggestion", category: "style",
		message: "Trailing whitespace",
	},
	{
		match: func(_, trimmed string) bool {
			return strings.Contains(trimmed, "TODO") || strings.Contains(trimmed, "FIXME")
		},
		severity: "suggestion", category: "best_practice",
		message: "Unresolved TODO/FIXME marker",
	},
	{
		match: func(line, trimmed string) bool {
			if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
				return false
			}
			return magicNumberRegex.MatchString(line)
		},
		severity: "suggestion", category: "style",
		message: "Magic number - consider naming it as a constant",
	},
}

var rulesByLanguage = map[string][]lineRule{
	"python": pythonRules,
	"java":   javaRules,
	"cpp":    cppRules,
}

// RuleStrategy is the deterministic local analysis strategy. Identical input
// always produces an identical candidate list; it never returns an error.
type RuleStrategy struct{}

func NewRuleStrategy() *RuleStrategy { return &RuleStrategy{} }

func (s *RuleStrategy) Name() string { return "rules" }

// Analyze applies the ordered per-language checks followed by the general
// checks to every source line.
func (s *RuleStrategy) Analyze(_ context.Context, src *NormalizedSource) ([]FeedbackCandidate, error) {
	langRules := rulesByLanguage[src.Language]
	var candidates []FeedbackCandidate

	for i, line := range src.Lines {
		trimmed := strings.TrimSpace(line)
		for _, rule := range langRules {
			if rule.match(line, trimmed) {
				candidates = append(candidates, FeedbackCandidate{
					LineNumber: i + 1,
					Severity:   rule.severity,
					Category:   rule.category,
					Message:    rule.message,
				})
			}
		}
		for _, rule := range generalRules {
			if rule.match(line, trimmed) {
				candidates = append(candidates, FeedbackCandidate{
					LineNumber: i + 1,
					Severity:   rule.severity,
					Category:   rule.category,
					Message:    rule.message,
				})
			}
		}
	}

	if len(candidates) == 0 {
		candidates = append(candidates, FeedbackCandidate{
			LineNumber: 1,
			Severity:   "suggestion",
			Category:   "best_practice",
			Message:    "Code looks good! Consider adding comments for complex logic.",
		})
	}

	return candidates, nil
}
