package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/strands-agents/sdk-go/pkg/types"
)

const (
	defaultReadLimit = 2000
	maxLineLength    = 2000
	fuzzyThreshold   = 0.7
)

const fileReadDescription = `Reads a text file.

Usage:
- path may be absolute or relative to the working directory
- By default, reads up to 2000 lines from the beginning
- offset (1-based line) and limit paginate long files
- Output lines are prefixed with their line numbers`

var fileReadSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "The file to read"},
		"offset": {"type": "integer", "description": "Line number to start reading from"},
		"limit": {"type": "integer", "description": "Number of lines to read (default: 2000)"}
	},
	"required": ["path"]
}`)

// FileReadInput represents the input for the file_read tool.
type FileReadInput struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

const fileWriteDescription = `Writes a file, creating parent directories as needed.
Returns a diff against the previous content.`

var fileWriteSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "The file to write"},
		"content": {"type": "string", "description": "The full new content"}
	},
	"required": ["path", "content"]
}`)

// FileWriteInput represents the input for the file_write tool.
type FileWriteInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

const editorDescription = `Edits a text file in place.

Commands:
- str_replace: replace old_str with new_str. old_str must be unique unless replace_all is set.
  When no exact match exists, the most similar block of the same line count is replaced
  if it is at least 70% similar.
- insert: insert new_str after line insert_line (0 inserts at the top)`

var editorSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "enum": ["str_replace", "insert"], "description": "The edit to perform"},
		"path": {"type": "string", "description": "The file to edit"},
		"old_str": {"type": "string", "description": "Text to replace (str_replace)"},
		"new_str": {"type": "string", "description": "Replacement or inserted text"},
		"insert_line": {"type": "integer", "description": "Line after which to insert (insert)"},
		"replace_all": {"type": "boolean", "description": "Replace every occurrence (str_replace)"}
	},
	"required": ["command", "path", "new_str"]
}`)

// EditorInput represents the input for the editor tool.
type EditorInput struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	OldStr     string `json:"old_str,omitempty"`
	NewStr     string `json:"new_str"`
	InsertLine int    `json:"insert_line,omitempty"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// NewFileReadTool creates the file_read tool.
func NewFileReadTool(workDir string) Tool {
	return NewTypedTool("file_read", fileReadDescription, fileReadSchema, func(ctx context.Context, in FileReadInput) (*types.ToolResultBlock, error) {
		return readFile(resolvePath(workDir, in.Path), in.Offset, in.Limit)
	})
}

// NewFileWriteTool creates the file_write tool.
func NewFileWriteTool(workDir string) Tool {
	return NewTypedTool("file_write", fileWriteDescription, fileWriteSchema, func(ctx context.Context, in FileWriteInput) (*types.ToolResultBlock, error) {
		path := resolvePath(workDir, in.Path)
		before, _ := os.ReadFile(path)

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(in.Content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}

		d := computeDiff(path, string(before), in.Content, workDir)
		return Success(fmt.Sprintf("Wrote %d bytes to %s\n%s", len(in.Content), in.Path, d.summary())), nil
	})
}

// NewEditorTool creates the editor tool.
func NewEditorTool(workDir string) Tool {
	return NewTypedTool("editor", editorDescription, editorSchema, func(ctx context.Context, in EditorInput) (*types.ToolResultBlock, error) {
		path := resolvePath(workDir, in.Path)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		before := string(content)

		var after, note string
		switch in.Command {
		case "str_replace":
			after, note, err = replaceText(before, in.OldStr, in.NewStr, in.ReplaceAll)
		case "insert":
			after, err = insertText(before, in.InsertLine, in.NewStr)
			note = fmt.Sprintf("Inserted after line %d", in.InsertLine)
		default:
			err = fmt.Errorf("unknown command %q", in.Command)
		}
		if err != nil {
			return nil, err
		}

		if err := os.WriteFile(path, []byte(after), 0644); err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}
		return Success(note + "\n" + computeDiff(path, before, after, workDir).summary()), nil
	})
}

func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(workDir, path)
}

func readFile(path string, offset, limit int) (*types.ToolResultBlock, error) {
	if limit <= 0 {
		limit = defaultReadLimit
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if isBinaryFile(path) {
		return nil, fmt.Errorf("file appears to be binary")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum < offset || len(lines) >= limit {
			continue
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		lines = append(lines, fmt.Sprintf("%6d\t%s", lineNum, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(lines, "\n"))
	last := max(offset-1, 0) + len(lines)
	if lineNum > last {
		fmt.Fprintf(&sb, "\n\n(File has more lines. Use 'offset' to read beyond line %d)", last)
	} else {
		fmt.Fprintf(&sb, "\n\n(End of file - total %d lines)", lineNum)
	}
	return Success(sb.String()), nil
}

func isBinaryFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 8000)
	n, _ := file.Read(buf)
	nonPrintable := 0
	for _, c := range buf[:n] {
		if c == 0 {
			return true
		}
		if c < 32 && c != '\n' && c != '\r' && c != '\t' {
			nonPrintable++
		}
	}
	return n > 0 && float64(nonPrintable)/float64(n) > 0.3
}

func replaceText(text, oldStr, newStr string, all bool) (string, string, error) {
	if oldStr == "" {
		return "", "", fmt.Errorf("old_str is required for str_replace")
	}
	if oldStr == newStr {
		return "", "", fmt.Errorf("old_str and new_str must be different")
	}

	count := strings.Count(text, oldStr)
	switch {
	case count == 0:
		match, sim := findBestMatch(text, oldStr)
		if match == "" || sim < fuzzyThreshold {
			return "", "", fmt.Errorf("old_str not found in file")
		}
		return strings.Replace(text, match, newStr, 1), fmt.Sprintf("Replaced 1 occurrence (%.0f%% similarity)", sim*100), nil
	case all:
		return strings.ReplaceAll(text, oldStr, newStr), fmt.Sprintf("Replaced %d occurrence(s)", count), nil
	case count > 1:
		return "", "", fmt.Errorf("old_str appears %d times in file. Use replace_all or provide more context", count)
	default:
		return strings.Replace(text, oldStr, newStr, 1), "Replaced 1 occurrence", nil
	}
}

func insertText(text string, after int, newStr string) (string, error) {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if after < 0 || after > len(lines) {
		return "", fmt.Errorf("insert_line %d out of range (file has %d lines)", after, len(lines))
	}
	if !strings.HasSuffix(newStr, "\n") {
		newStr += "\n"
	}
	if after > 0 && !strings.HasSuffix(lines[after-1], "\n") {
		lines[after-1] += "\n"
	}

	var sb strings.Builder
	for _, l := range lines[:after] {
		sb.WriteString(l)
	}
	sb.WriteString(newStr)
	for _, l := range lines[after:] {
		sb.WriteString(l)
	}
	return sb.String(), nil
}

// findBestMatch finds the block of text with the same line count as target that is most
// similar to it.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	n := len(strings.Split(target, "\n"))

	best, bestSim := "", 0.0
	for i := 0; i+n <= len(lines); i++ {
		block := strings.Join(lines[i:i+n], "\n")
		if sim := similarity(block, target); sim > bestSim {
			best, bestSim = block, sim
		}
	}
	return best, bestSim
}

// similarity is 1 minus the normalized Levenshtein distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := max(len(a), len(b))
	if maxLen > 10000 {
		return float64(min(len(a), len(b))) / float64(maxLen)
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
