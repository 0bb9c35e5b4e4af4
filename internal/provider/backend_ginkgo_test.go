package provider_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joho/godotenv"

	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

func TestProviderSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provider Suite")
}

var _ = BeforeSuite(func() {
	_ = godotenv.Load("../../.env")
})

// drain collects every chunk of a stream.
func drain(stream provider.ChunkStream) ([]provider.Chunk, error) {
	defer stream.Close()
	var chunks []provider.Chunk
	for {
		c, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}

func textOf(chunks []provider.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		if d, ok := c.(provider.BlockDelta); ok {
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

var _ = Describe("ArkBackend", func() {
	var (
		ctx     context.Context
		backend *provider.EinoBackend
	)

	BeforeEach(func() {
		apiKey := os.Getenv("ARK_API_KEY")
		modelID := os.Getenv("ARK_MODEL_ID")
		if apiKey == "" || modelID == "" {
			Skip("ARK environment variables not set")
		}

		ctx = context.Background()
		var err error
		backend, err = provider.NewArkBackend(ctx, &provider.ArkConfig{
			APIKey:    apiKey,
			BaseURL:   os.Getenv("ARK_BASE_URL"),
			Model:     modelID,
			MaxTokens: 1024,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should describe itself", func() {
		Expect(backend.ID()).To(Equal("ark"))
		Expect(backend.Name()).To(Equal("ARK"))
		Expect(backend.Models()).NotTo(BeEmpty())
	})

	It("should stream a normalized message", func() {
		stream, err := backend.Stream(ctx, &provider.Request{
			Messages: []types.Message{types.NewUserMessage("Say 'Hello' and nothing else.")},
			Config:   provider.RequestConfig{MaxTokens: 50},
		})
		Expect(err).NotTo(HaveOccurred())

		chunks, err := drain(stream)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).NotTo(BeEmpty())
		Expect(chunks[0]).To(Equal(provider.Chunk(provider.MessageStart{Role: types.RoleAssistant})))

		var stop *provider.MessageStop
		for _, c := range chunks {
			if ms, ok := c.(provider.MessageStop); ok {
				stop = &ms
			}
		}
		Expect(stop).NotTo(BeNil())
		Expect(strings.ToLower(textOf(chunks))).To(ContainSubstring("hello"))
	})

	It("should fail on a cancelled context", func() {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		stream, err := backend.Stream(cancelCtx, &provider.Request{
			Messages: []types.Message{types.NewUserMessage("Hello")},
		})
		if err == nil {
			_, err = drain(stream)
		}
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Backend construction", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	unset := func(keys ...string) {
		for _, k := range keys {
			old, had := os.LookupEnv(k)
			os.Unsetenv(k)
			if had {
				DeferCleanup(os.Setenv, k, old)
			}
		}
	}

	It("should require an ARK API key", func() {
		unset("ARK_API_KEY", "ARK_MODEL_ID")
		_, err := provider.NewArkBackend(ctx, &provider.ArkConfig{Model: "test-model"})
		Expect(err).To(MatchError(ContainSubstring("API_KEY")))
	})

	It("should require an ARK model ID", func() {
		unset("ARK_API_KEY", "ARK_MODEL_ID")
		_, err := provider.NewArkBackend(ctx, &provider.ArkConfig{APIKey: "test-key"})
		Expect(err).To(MatchError(ContainSubstring("MODEL_ID")))
	})

	It("should require an Anthropic API key unless using Bedrock", func() {
		unset("ANTHROPIC_API_KEY")
		_, err := provider.NewAnthropicBackend(ctx, &provider.AnthropicConfig{})
		Expect(err).To(MatchError(ContainSubstring("ANTHROPIC_API_KEY")))
	})

	It("should require an OpenAI API key", func() {
		unset("OPENAI_API_KEY")
		_, err := provider.NewOpenAIBackend(ctx, &provider.OpenAIConfig{})
		Expect(err).To(MatchError(ContainSubstring("OPENAI_API_KEY")))
	})

	It("should build an OpenAI-compatible backend for a custom model", func() {
		b, err := provider.NewOpenAIBackend(ctx, &provider.OpenAIConfig{
			ID:      "ollama",
			APIKey:  "unused",
			BaseURL: "http://127.0.0.1:11434/v1",
			Model:   "llama3",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.ID()).To(Equal("ollama"))

		var ids []string
		for _, m := range b.Models() {
			ids = append(ids, m.ID)
		}
		Expect(ids).To(ContainElement("llama3"))
	})
})
