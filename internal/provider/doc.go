// Package provider defines the streaming model backend interface and its eino-based
// implementations.
//
// # Backend Interface
//
// A Backend is invoked with the current history, tool specifications, system prompt and
// generation config, and answers with a ChunkStream of normalized chunks:
//
//	MessageStart  -> sets the role
//	BlockStart    -> opens a text, tool-use or reasoning block
//	BlockDelta    -> appends text, tool-input fragments, reasoning text or citations
//	BlockStop     -> closes the open block
//	MessageStop   -> carries the stop reason
//	Metadata      -> usage; may arrive anywhere in the stream
//
// Throttling and context overflow are typed errors (*types.ThrottlingError,
// *types.ContextOverflowError). Output exhaustion is the max_tokens stop reason.
// ClassifyError maps raw SDK errors onto the typed errors.
//
// # Supported Providers
//
// All providers are built on eino (https://github.com/cloudwego/eino) chat models and
// wrapped by EinoBackend, which synthesizes block boundaries from eino's delta messages:
//
//	b, err := NewAnthropicBackend(ctx, &AnthropicConfig{Model: "claude-sonnet-4-20250514"})
//	b, err := NewOpenAIBackend(ctx, &OpenAIConfig{Model: "gpt-4o", BaseURL: "http://localhost:11434/v1"})
//	b, err := NewArkBackend(ctx, &ArkConfig{Model: "endpoint-id"})
//
// # Registry Usage
//
//	registry, _ := InitializeBackends(ctx, cfg)
//	backend, err := registry.Default()
//	models := registry.AllModels()
//
// Tests use providertest.ScriptedBackend for deterministic model behavior.
package provider
