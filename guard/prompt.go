// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPromptLength caps natural-language input to prevent DoS through
// pathologically large prompts.
const MaxPromptLength = 2000

// promptDangerSpecs is the fixed catalog of prompt-injection and
// command-injection indicators. Any hit is a hard violation.
var promptDangerSpecs = []RuleSpec{
	// Shell and process invocation.
	{Name: "rm_flags", Pattern: `\brm\s+-`, Reason: "rm with flags"},
	{Name: "rm_path", Pattern: `\brm\s+/`, Reason: "rm with path"},
	{Name: "rm_dotfile", Pattern: `\brm\s+\.`, Reason: "rm with dotfile"},
	{Name: "mv_system", Pattern: `\bmv\s+.*\s+/etc`, Reason: "mv to system directory"},
	{Name: "cp_system", Pattern: `\bcp\s+.*\s+/etc`, Reason: "cp to system directory"},
	{Name: "ls_flags", Pattern: `\bls\s+/-`, Reason: "ls with flags"},
	{Name: "ls_etc", Pattern: `\bls\s+/etc`, Reason: "ls system directory"},
	{Name: "curl", Pattern: `\bcurl\s+`, Reason: "curl command"},
	{Name: "wget", Pattern: `\bwget\s+`, Reason: "wget command"},
	{Name: "netcat", Pattern: `\bnc\s+`, Reason: "netcat command"},
	{Name: "bash_flags", Pattern: `\bbash\s+-`, Reason: "bash with flags"},
	{Name: "sh_flags", Pattern: `\bsh\s+-`, Reason: "shell with flags"},
	{Name: "python_script", Pattern: `\bpython\s+.*\.py`, Reason: "python script invocation"},
	{Name: "node_script", Pattern: `\bnode\s+.*\.js`, Reason: "node script invocation"},
	{Name: "git", Pattern: `\bgit\s+`, Reason: "git command"},
	{Name: "sudo", Pattern: `\bsudo\s+`, Reason: "sudo command"},
	{Name: "su", Pattern: `\bsu\s+`, Reason: "su command"},

	// Path traversal and sensitive file access.
	{Name: "path_traversal", Pattern: `\.\./`, Reason: "path traversal"},
	{Name: "etc_passwd", Pattern: `/etc/passwd`, Reason: "access to /etc/passwd"},
	{Name: "etc_shadow", Pattern: `/etc/shadow`, Reason: "access to /etc/shadow"},
	{Name: "proc_fs", Pattern: `/proc/`, Reason: "access to /proc"},
	{Name: "sys_fs", Pattern: `/sys/`, Reason: "access to /sys"},
	{Name: "env_file", Pattern: `\.env(\s|$)`, Reason: "access to .env file"},
	{Name: "ssh_key", Pattern: `id_rsa`, Reason: "access to SSH private key"},
	{Name: "ssh_dir", Pattern: `\.ssh/`, Reason: "access to .ssh directory"},
	{Name: "redirect_overwrite", Pattern: `>\s*/`, Reason: "redirect to file"},
	{Name: "redirect_append", Pattern: `>>\s*/`, Reason: "append to file"},

	// Code-execution primitives.
	{Name: "eval_call", Pattern: `eval\s*\(`, Reason: "eval call"},
	{Name: "exec_call", Pattern: `exec\s*\(`, Reason: "exec call"},
	{Name: "system_call", Pattern: `system\s*\(`, Reason: "system call"},
	{Name: "dunder_import", Pattern: `__import__\s*\(`, Reason: "import call"},
	{Name: "subprocess", Pattern: `subprocess\s*\(`, Reason: "subprocess call"},
	{Name: "os_system", Pattern: `os\.system`, Reason: "os.system call"},
	{Name: "popen", Pattern: `popen`, Reason: "popen call"},

	// Prompt-override phrasing.
	{Name: "ignore_instructions", Pattern: `ignore\s+(all\s+)?previous\s+instructions`, Reason: "instruction override"},
	{Name: "disregard_instructions", Pattern: `disregard\s+(all\s+)?previous\s+instructions`, Reason: "instruction override"},
	{Name: "forget_instructions", Pattern: `forget\s+(all\s+)?previous\s+instructions`, Reason: "instruction override"},
	{Name: "override_instructions", Pattern: `override\s+(all\s+)?previous\s+instructions`, Reason: "instruction override"},
	{Name: "new_context", Pattern: `new\s+context\s*:`, Reason: "context switch"},
	{Name: "change_context", Pattern: `change\s+context\s*:`, Reason: "context switch"},
	{Name: "instead_of_above", Pattern: `instead\s+of\s+the\s+above`, Reason: "instruction override"},
}

// suspiciousIndicator is a soft signal that is only flagged when it
// appears in a sentence with no data-query vocabulary at all.
type suspiciousIndicator struct {
	word   string
	reason string
}

var suspiciousIndicators = []suspiciousIndicator{
	{"also", "multiple instructions"},
	{"then", "command chaining"},
	{"after that", "command chaining"},
	{"next,", "command chaining"},
	{"finally", "command chaining"},
	{"additionally", "command chaining"},
	{"besides", "command chaining"},
	{"create file", "file operation"},
	{"write to", "file operation"},
	{"save to", "file operation"},
	{"download", "external resource"},
	{"upload", "external resource"},
	{"fetch", "external resource"},
	{"install", "package installation"},
	{"import", "code import"},
	{"require", "package require"},
	{"exec", "code execution"},
	{"eval", "code evaluation"},
	{"system", "system command"},
}

// sentenceDataWords is the vocabulary that legitimizes a suspicious
// indicator within the same sentence.
var sentenceDataWords = []string{
	"select", "show", "get", "find", "list", "count", "total",
	"users", "orders", "table", "dataset", "data", "query",
}

// topicDataWords is the vocabulary at least one of which must appear
// somewhere in the prompt for it to count as data-related.
var topicDataWords = []string{
	"select", "show", "get", "find", "list", "count", "total",
	"users", "orders", "table", "tables", "dataset", "data",
	"query", "sql", "row", "column", "revenue", "sales",
	"how many", "how much", "top", "bottom", "average", "sum",
}

var sentenceSplitRegex = regexp.MustCompile(`[.!?]+`)

// PromptValidator screens natural-language input before it reaches the
// SQL generator. It is stateless apart from its immutable rule table.
type PromptValidator struct {
	patterns *PatternSet
}

// NewPromptValidator builds a validator with the built-in catalogs.
func NewPromptValidator() *PromptValidator {
	return &PromptValidator{patterns: MustPatternSet(promptDangerSpecs)}
}

// Validate screens one prompt and returns every violation found. All
// checks accumulate; nothing short-circuits.
func (v *PromptValidator) Validate(prompt string) Result {
	var violations []string

	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		violations = append(violations, fmt.Sprintf("prompt too long (max %d characters)", MaxPromptLength))
	}

	for _, match := range v.patterns.FindAll(prompt) {
		violations = append(violations,
			fmt.Sprintf("potentially dangerous pattern detected: %q (%s)", match.Text, match.Rule.Reason))
	}

	lower := strings.ToLower(prompt)
	for _, ind := range suspiciousIndicators {
		if strings.Contains(lower, ind.word) && inSuspiciousContext(prompt, ind.word) {
			violations = append(violations,
				fmt.Sprintf("suspicious instruction detected: %s (%s)", ind.word, ind.reason))
		}
	}

	if !isQueryRelated(lower) {
		violations = append(violations,
			"prompt does not appear to be data-related; please ask questions about your data")
	}

	return resultFrom(violations)
}

// Sanitize strips control characters and collapses whitespace. It does
// not attempt to neutralize dangerous content; Validate does the gating.
func (v *PromptValidator) Sanitize(prompt string) string {
	var b strings.Builder
	b.Grow(len(prompt))
	for _, r := range prompt {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// inSuspiciousContext reports whether the indicator appears in a
// sentence that contains none of the data-query vocabulary. "then show
// the total" is fine; "then delete the logs" is not.
func inSuspiciousContext(prompt, indicator string) bool {
	for _, sentence := range sentenceSplitRegex.Split(prompt, -1) {
		lowerSentence := strings.ToLower(sentence)
		if !strings.Contains(lowerSentence, indicator) {
			continue
		}
		legitimate := false
		for _, word := range sentenceDataWords {
			if strings.Contains(lowerSentence, word) {
				legitimate = true
				break
			}
		}
		if !legitimate {
			return true
		}
	}
	return false
}

// isQueryRelated reports whether the lowercased prompt contains at
// least one data-query term.
func isQueryRelated(lower string) bool {
	for _, word := range topicDataWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
