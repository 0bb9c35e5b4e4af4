package permission

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Command is one simple command found in a shell script.
type Command struct {
	Name       string
	Args       []string
	Subcommand string // first argument that is not a flag, e.g. "commit" in "git commit -m x"
}

// ParseCommands returns every simple command in a script, including those inside
// pipelines, chains, subshells and command substitutions.
func ParseCommands(script string) ([]Command, error) {
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), "")
	if err != nil {
		return nil, fmt.Errorf("parse shell command: %w", err)
	}

	var commands []Command
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if cmd, ok := commandOf(call); ok {
				commands = append(commands, cmd)
			}
		}
		return true
	})
	return commands, nil
}

func commandOf(call *syntax.CallExpr) (Command, bool) {
	if len(call.Args) == 0 {
		return Command{}, false
	}
	cmd := Command{Name: literal(call.Args[0])}
	if cmd.Name == "" {
		return Command{}, false
	}
	for _, word := range call.Args[1:] {
		arg := literal(word)
		cmd.Args = append(cmd.Args, arg)
		if cmd.Subcommand == "" && !strings.HasPrefix(arg, "-") {
			cmd.Subcommand = arg
		}
	}
	return cmd, true
}

// literal renders a word as written. Expansions keep their sigil so that a rule can never
// match a value only known at run time.
func literal(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				} else {
					sb.WriteString("$")
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}
