package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/internal/config"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/internal/mcp"
	"github.com/strands-agents/sdk-go/internal/metrics"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/internal/storage"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// environment holds everything a command needs to build an agent.
type environment struct {
	workDir  string
	paths    *config.Paths
	config   *types.Config
	backends *provider.Registry
	mcp      *mcp.Client
	metrics  *prometheus.Registry
}

// loadConfig reads the --config file when given, otherwise the layered configuration
// rooted at workDir.
func loadConfig(workDir string) (*types.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load(workDir)
}

// initLogging configures the global logger. The --log-level flag wins over the config.
func initLogging(cfg *types.Config, paths *config.Paths) {
	level := logLevel
	pretty := printLogs
	if cfg != nil && cfg.Log != nil {
		if level == "" {
			level = cfg.Log.Level
		}
		pretty = cfg.Log.Pretty || printLogs
	}

	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(level)
	lc.Pretty = pretty
	if !printLogs {
		lc.LogToFile = true
		lc.LogDir = paths.LogPath()
		lc.Output = io.Discard
	}
	logging.Init(lc)
}

// setup loads configuration, logging and model backends for workDir.
func setup(ctx context.Context, workDir string) (*environment, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(workDir)
	if err != nil {
		return nil, err
	}
	initLogging(cfg, paths)

	backends, err := provider.InitializeBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &environment{
		workDir:  workDir,
		paths:    paths,
		config:   cfg,
		backends: backends,
		mcp:      mcp.NewClient(),
		metrics:  reg,
	}, nil
}

// tools returns the builtin tools plus those of every configured MCP server. A server
// that fails to connect is logged and skipped.
func (env *environment) tools(ctx context.Context) *tool.Registry {
	registry := tool.DefaultRegistry(env.workDir)

	names := make([]string, 0, len(env.config.MCP))
	for name := range env.config.MCP {
		names = append(names, name)
	}
	sort.Strings(names)

	log := logging.Component("cli")
	for _, name := range names {
		if err := env.mcp.AddServer(ctx, name, env.config.MCP[name]); err != nil {
			log.Warn().Err(err).Str("server", name).Msg("mcp server unavailable")
		}
	}
	if n := mcp.RegisterTools(env.mcp, registry); n > 0 {
		log.Info().Int("tools", n).Msg("registered mcp tools")
	}
	return registry
}

// newAgent builds an agent from the environment's configuration. extra options are
// applied last.
func (env *environment) newAgent(ctx context.Context, extra ...agent.Option) (*agent.Agent, error) {
	backend, err := env.backends.Default()
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{
		agent.WithToolRegistry(env.tools(ctx)),
		agent.WithMetrics(metrics.NewPrometheusRecorder(env.metrics)),
	}
	fromConfig, err := agent.ConfigOptions(env.config, backend)
	if err != nil {
		return nil, err
	}
	opts = append(opts, fromConfig...)
	opts = append(opts, extra...)

	return agent.New(backend, opts...)
}

// sessions opens the session store under the data directory.
func (env *environment) sessions() *agent.SessionStore {
	return agent.NewSessionStore(storage.New(env.paths.StoragePath()))
}

// close releases MCP connections and the log file.
func (env *environment) close() {
	if err := env.mcp.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing mcp servers: %v\n", err)
	}
	logging.Close()
}
