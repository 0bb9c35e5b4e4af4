package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/internal/event"
)

var (
	runSession  string
	runContinue bool
	runFormat   string
	runDir      string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt...]",
	Short: "Run a single invocation",
	Long: `Run one agent invocation and stream the model's text to stdout.

With --session the conversation is loaded from and saved to the named session,
so later runs continue it. --continue resumes the most recent session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID to load and save")
	runCmd.Flags().BoolVarP(&runContinue, "continue", "c", false, "Continue the most recent session")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "Output format (text|json)")
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if runFormat != "text" && runFormat != "json" {
		return fmt.Errorf("unknown format %q", runFormat)
	}

	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx, workDir)
	if err != nil {
		return err
	}
	defer env.close()

	sessions := env.sessions()
	id, err := resolveSession(ctx, sessions)
	if err != nil {
		return err
	}

	var opts []agent.Option
	if id != "" {
		opts = append(opts, agent.WithID(id), agent.WithSessionStore(sessions))
	}
	a, err := env.newAgent(ctx, opts...)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := a.LoadSession(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	stream := a.Stream(ctx, prompt)
	for e := range stream.Events() {
		if runFormat == "json" {
			data, err := event.Marshal(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			continue
		}
		switch e := e.(type) {
		case event.TextDelta:
			fmt.Fprint(out, e.Text)
		case event.ThrottleNotice:
			fmt.Fprintf(cmd.ErrOrStderr(), "\nthrottled, retrying in %s (attempt %d)\n", e.Delay, e.Attempt)
		case event.ContextReduced:
			fmt.Fprintf(cmd.ErrOrStderr(), "\ncontext reduced by %s: %d -> %d messages\n", e.Manager, e.MessagesBefore, e.MessagesAfter)
		}
	}

	_, err = stream.Wait()
	if runFormat == "text" {
		fmt.Fprintln(out)
	}
	if id != "" && runFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", id)
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}

// resolveSession returns the session to use: the --session flag, the newest stored
// session for --continue, or a fresh one when --continue finds none. Without either flag
// the run is not persisted.
func resolveSession(ctx context.Context, sessions *agent.SessionStore) (string, error) {
	if runSession != "" {
		return runSession, nil
	}
	if !runContinue {
		return "", nil
	}
	ids, err := sessions.List(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return ulid.Make().String(), nil
	}
	return ids[len(ids)-1], nil
}
