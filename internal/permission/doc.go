// Package permission guards tool calls before they run.
//
// A Guard is a hook provider. On every BeforeToolCall it applies three kinds of rules:
//
//   - doom loop: the same tool called with the same input three times in a row
//   - tool rules: tool name globs mapped to allow, deny or ask
//   - shell rules: patterns such as "git *" or "rm" matched against every command the
//     shell tool would run, found by parsing the script with mvdan.cc/sh
//
// Unmatched calls are allowed. A denied call is cancelled and the model receives an error
// tool result carrying the reason. Ask rules are answered by an Approver; an "always"
// reply approves the same patterns for the rest of the guard's life. Without an approver,
// ask behaves like deny.
//
//	guard, err := permission.NewGuard(types.PermissionConfig{
//		Shell: map[string]string{"rm *": "deny", "git push *": "ask"},
//	}, permission.WithApprover(prompt))
//	a, err := agent.New(backend, agent.WithHooks(guard))
package permission
