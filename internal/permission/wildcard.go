package permission

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchCommand finds the rule for a shell command, most specific first: "git commit *",
// then "git *", then "git", then "*". It reports false when no rule applies.
func MatchCommand(cmd Command, rules map[string]Action) (Action, bool) {
	var candidates []string
	if cmd.Subcommand != "" {
		candidates = append(candidates, cmd.Name+" "+cmd.Subcommand+" *")
	}
	candidates = append(candidates, cmd.Name+" *", cmd.Name, "*")

	for _, key := range candidates {
		if action, ok := rules[key]; ok {
			return action, true
		}
	}
	return "", false
}

// CommandPattern is the pattern an "always" approval of cmd records. For
// "git commit -m msg" it is "git commit *"; for "ls -la" it is "ls *".
func CommandPattern(cmd Command) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}

// CommandPatterns returns the distinct patterns of commands, skipping cd.
func CommandPatterns(commands []Command) []string {
	seen := make(map[string]bool)
	var patterns []string
	for _, cmd := range commands {
		if cmd.Name == "cd" {
			continue
		}
		p := CommandPattern(cmd)
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// MatchTool finds the rule for a tool name. An exact name wins; otherwise the longest
// matching glob does.
func MatchTool(name string, rules map[string]Action) (Action, bool) {
	if action, ok := rules[name]; ok {
		return action, true
	}

	globs := make([]string, 0, len(rules))
	for pattern := range rules {
		if strings.ContainsAny(pattern, "*?[{") {
			globs = append(globs, pattern)
		}
	}
	sort.Slice(globs, func(i, j int) bool {
		if len(globs[i]) != len(globs[j]) {
			return len(globs[i]) > len(globs[j])
		}
		return globs[i] < globs[j]
	})
	for _, pattern := range globs {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return rules[pattern], true
		}
	}
	return "", false
}
