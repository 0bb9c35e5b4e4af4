package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/strands-agents/sdk-go/pkg/types"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// configNames are the file names searched in each config directory, lowest priority first.
var configNames = []string{"strands.yaml", "strands.yml", "strands.json", "strands.jsonc"}

// Load loads configuration from multiple sources (priority order):
// 1. .env in directory (never overrides the process environment)
// 2. Global config (~/.config/strands/)
// 3. Project config (directory and directory/.strands/)
// 4. STRANDS_CONFIG file
// 5. STRANDS_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{Provider: make(map[string]types.ProviderConfig)}

	if directory != "" {
		envFile := filepath.Join(directory, ".env")
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)
	loadOnce := func(path string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		if err := loadConfigFile(path, config); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		loaded[absPath] = true
		return nil
	}

	for _, dir := range SearchDirs(directory) {
		for _, name := range configNames {
			if err := loadOnce(filepath.Join(dir, name)); err != nil {
				return nil, err
			}
		}
	}

	if configPath := os.Getenv("STRANDS_CONFIG"); configPath != "" {
		if err := loadConfigFile(configPath, config); err != nil {
			return nil, fmt.Errorf("STRANDS_CONFIG: %w", err)
		}
	}

	if content := os.Getenv("STRANDS_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		data := interpolate(jsonc.ToJSON([]byte(content)), "", false)
		if err := json.Unmarshal(data, &inline); err != nil {
			return nil, fmt.Errorf("STRANDS_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(config, &inline)
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile loads a single config file without consulting any other source.
func LoadFile(path string) (*types.Config, error) {
	config := &types.Config{Provider: make(map[string]types.ProviderConfig)}
	if err := loadConfigFile(path, config); err != nil {
		return nil, err
	}
	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadConfigFile parses one JSON, JSONC or YAML file and merges it into config.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	yamlFile := isYAML(path)
	if !yamlFile {
		data = jsonc.ToJSON(data)
	}
	data = interpolate(data, filepath.Dir(path), yamlFile)

	var fileConfig types.Config
	if yamlFile {
		err = yaml.Unmarshal(data, &fileConfig)
	} else {
		err = json.Unmarshal(data, &fileConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	mergeConfig(config, &fileConfig)
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// interpolate processes {env:VAR} and {file:path} placeholders. File contents are escaped
// for embedding in a JSON string unless raw is set.
func interpolate(data []byte, baseDir string, raw bool) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}
		text := strings.TrimRight(string(content), "\r\n")
		if raw {
			return text
		}
		escaped, _ := json.Marshal(text)
		return string(escaped[1 : len(escaped)-1])
	})

	return []byte(str)
}

// mergeConfig merges source config into target. Scalars and nested structs are
// replaced, maps are merged by key.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SystemPrompt != "" {
		target.SystemPrompt = source.SystemPrompt
	}
	if source.MaxTokens != 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.Temperature != nil {
		target.Temperature = source.Temperature
	}
	if source.Tools != nil {
		target.Tools = source.Tools
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}

	if source.Conversation != nil {
		target.Conversation = source.Conversation
	}
	if source.Permission != nil {
		target.Permission = source.Permission
	}
	if source.Retry != nil {
		target.Retry = source.Retry
	}
	if source.Log != nil {
		target.Log = source.Log
	}
}

// providerEnv maps provider IDs to the environment variable holding their API key.
var providerEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"ark":       "ARK_API_KEY",
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	for provider, envVar := range providerEnv {
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			continue
		}
		if config.Provider == nil {
			config.Provider = make(map[string]types.ProviderConfig)
		}
		p := config.Provider[provider]
		if p.APIKey == "" {
			p.APIKey = apiKey
			config.Provider[provider] = p
		}
	}

	if model := os.Getenv("STRANDS_MODEL"); model != "" {
		config.Model = model
	}

	if level := os.Getenv("STRANDS_LOG_LEVEL"); level != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = level
	}
}

// Validate rejects configurations the runtime cannot honor.
func Validate(config *types.Config) error {
	if c := config.Conversation; c != nil {
		switch c.Manager {
		case "", types.ManagerSlidingWindow, types.ManagerSummarizing, types.ManagerNull:
		default:
			return fmt.Errorf("unknown conversation manager %q", c.Manager)
		}
		if c.WindowSize < 0 {
			return fmt.Errorf("conversation windowSize must not be negative, got %d", c.WindowSize)
		}
		if c.PreserveRecent < 0 {
			return fmt.Errorf("conversation preserveRecent must not be negative, got %d", c.PreserveRecent)
		}
	}
	if r := config.Retry; r != nil {
		if r.MaxAttempts < 0 || r.InitialDelayMs < 0 || r.MaxDelayMs < 0 {
			return fmt.Errorf("retry settings must not be negative")
		}
	}
	if p := config.Permission; p != nil {
		for _, rules := range []map[string]string{p.Tools, p.Shell, {"doomLoop": p.DoomLoop}} {
			for pattern, action := range rules {
				switch action {
				case "", types.PermissionAllow, types.PermissionDeny, types.PermissionAsk:
				default:
					return fmt.Errorf("permission %q: unknown action %q", pattern, action)
				}
			}
		}
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("maxTokens must not be negative, got %d", config.MaxTokens)
	}
	return nil
}

// Save saves the configuration to a file, as YAML when the extension says so.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
