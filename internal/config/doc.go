// Package config provides configuration loading, merging, and path management.
//
// # Configuration Loading
//
// Load merges configuration from several sources, later ones overriding earlier ones:
//
//  1. .env in the project directory (values already in the environment win)
//  2. Global config in the config directory (~/.config/strands/ or STRANDS_CONFIG_DIR)
//  3. Project config: strands.{yaml,yml,json,jsonc} in the directory and in .strands/
//  4. STRANDS_CONFIG file
//  5. STRANDS_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// # Supported Formats
//
// JSON, JSONC (comments stripped with tidwall/jsonc) and YAML (gopkg.in/yaml.v3). The
// format follows the file extension.
//
// # Variable Interpolation
//
//   - {env:VAR_NAME} expands to an environment variable
//   - {file:path} expands to file contents, relative to the config file's directory
//
// Example:
//
//	{
//	  "model": "anthropic/claude-sonnet-4",
//	  "systemPrompt": "{file:prompts/system.txt}",
//	  "provider": {
//	    "anthropic": {"apiKey": "{env:ANTHROPIC_API_KEY}"}
//	  },
//	  "conversation": {"manager": "sliding_window", "windowSize": 40}
//	}
//
// # Merging
//
// Scalars and nested sections (conversation, retry, log) are replaced; provider and mcp
// maps are merged by key; the tools list is replaced.
//
// # Environment Variable Overrides
//
//   - STRANDS_MODEL overrides the model
//   - STRANDS_LOG_LEVEL overrides the log level
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, ARK_API_KEY fill provider keys left empty
//
// # Reloading
//
// Watch reloads a single config file through fsnotify whenever it changes and hands the
// result to a callback.
//
// # Path Management
//
// Paths follows the XDG Base Directory layout: config files, session snapshots under
// data, and logs under state, each in a strands subdirectory.
package config
