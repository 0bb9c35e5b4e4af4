package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/internal/config"
	"github.com/strands-agents/sdk-go/internal/event"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/internal/server"
	"github.com/strands-agents/sdk-go/pkg/types"
)

var (
	servePort    int
	serveDir     string
	serveSession string
	serveCORS    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose an agent over HTTP",
	Long: `Start a server that hosts a single agent and exposes its invocations,
history, tools and event stream over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().StringVarP(&serveSession, "session", "s", "", "Session ID to load and save after each invocation")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", true, "Enable CORS")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	env, err := setup(ctx, workDir)
	if err != nil {
		return err
	}
	defer env.close()
	log := logging.Component("cli")

	bus := event.NewBus()
	defer bus.Close()

	opts := []agent.Option{agent.WithBus(bus)}
	if serveSession != "" {
		opts = append(opts, agent.WithID(serveSession), agent.WithSessionStore(env.sessions()))
	}
	a, err := env.newAgent(ctx, opts...)
	if err != nil {
		return err
	}
	if serveSession != "" {
		if _, err := a.LoadSession(ctx); err != nil {
			return err
		}
	}

	if configFile != "" {
		w, err := config.Watch(configFile, func(cfg *types.Config, err error) {
			if err != nil {
				return
			}
			if logLevel == "" && cfg.Log != nil && cfg.Log.Level != "" {
				logging.SetLevel(logging.ParseLevel(cfg.Log.Level))
			}
		})
		if err != nil {
			log.Warn().Err(err).Str("path", configFile).Msg("config reload disabled")
		} else {
			defer w.Close()
		}
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.EnableCORS = serveCORS
	srv := server.New(serverConfig, a, env.config, env.metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
		return err
	}
	return nil
}
