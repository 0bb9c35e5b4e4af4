package history

import "github.com/strands-agents/sdk-go/pkg/types"

// ValidBoundary reports whether cutting msgs at b (dropping msgs[:b]) keeps every
// tool use together with its result. A boundary at 0 or len(msgs) is always valid.
func ValidBoundary(msgs []types.Message, b int) bool {
	if b <= 0 || b >= len(msgs) {
		return true
	}

	removedUses := make(map[string]struct{})
	removedResults := make(map[string]struct{})
	for _, m := range msgs[:b] {
		for _, tu := range m.ToolUses() {
			removedUses[tu.ToolUseID] = struct{}{}
		}
		for _, tr := range m.ToolResults() {
			removedResults[tr.ToolUseID] = struct{}{}
		}
	}

	for _, m := range msgs[b:] {
		for _, tr := range m.ToolResults() {
			if _, ok := removedUses[tr.ToolUseID]; ok {
				return false
			}
		}
		for _, tu := range m.ToolUses() {
			if _, ok := removedResults[tu.ToolUseID]; ok {
				return false
			}
		}
	}

	// A kept history never opens with a tool result.
	return !msgs[b].HasToolResult()
}

// Orphans returns tool-use IDs whose result is missing and tool-result IDs whose use is
// missing or appears later.
func Orphans(msgs []types.Message) (uses, results []string) {
	seenUses := make(map[string]struct{})
	answered := make(map[string]struct{})
	for _, m := range msgs {
		for _, tr := range m.ToolResults() {
			if _, ok := seenUses[tr.ToolUseID]; !ok {
				results = append(results, tr.ToolUseID)
				continue
			}
			answered[tr.ToolUseID] = struct{}{}
		}
		for _, tu := range m.ToolUses() {
			seenUses[tu.ToolUseID] = struct{}{}
		}
	}

	// The trailing message may hold uses whose results have not been produced yet.
	var pending map[string]struct{}
	if n := len(msgs); n > 0 && msgs[n-1].HasToolUse() {
		pending = make(map[string]struct{})
		for _, tu := range msgs[n-1].ToolUses() {
			pending[tu.ToolUseID] = struct{}{}
		}
	}
	for _, m := range msgs {
		for _, tu := range m.ToolUses() {
			if _, ok := answered[tu.ToolUseID]; ok {
				continue
			}
			if _, ok := pending[tu.ToolUseID]; ok {
				continue
			}
			uses = append(uses, tu.ToolUseID)
		}
	}
	return uses, results
}
