package agent_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/provider/providertest"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *delayRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func lookupTool() tool.Tool {
	return tool.NewFuncTool("lookup", "Looks a value up.", nil, func(context.Context, map[string]any) (string, error) {
		return "a very large lookup result", nil
	})
}

func textsOf(msgs []types.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text()
	}
	return out
}

func expectPaired(msgs []types.Message) {
	uses, results := history.Orphans(msgs)
	ExpectWithOffset(1, uses).To(BeEmpty())
	ExpectWithOffset(1, results).To(BeEmpty())
}

var _ = Describe("Agent scenarios", func() {
	var (
		ctx     context.Context
		backend *providertest.ScriptedBackend
		sleeper *delayRecorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = providertest.New()
		sleeper = &delayRecorder{}
	})

	Describe("A: sliding window over plain text turns", func() {
		It("keeps at most three messages and evicts the oldest first", func() {
			manager := conversation.NewSlidingWindow(3, true)
			a, err := agent.New(backend, agent.WithConversationManager(manager))
			Expect(err).NotTo(HaveOccurred())

			for i := range 5 {
				backend.Add(providertest.Text(fmt.Sprintf("answer %d", i)))
				_, err := a.Invoke(ctx, fmt.Sprintf("question %d", i))
				Expect(err).NotTo(HaveOccurred())
				Expect(len(a.Messages())).To(BeNumerically("<=", 3))
			}

			Expect(textsOf(a.Messages())).To(Equal([]string{"answer 3", "question 4", "answer 4"}))
			Expect(manager.RemovedMessageCount()).To(Equal(7))
		})
	})

	Describe("B: sliding window around a tool pair", func() {
		var (
			manager   *conversation.SlidingWindow
			hooks     *hook.Registry
			secondReq []types.Message
		)

		BeforeEach(func() {
			manager = conversation.NewSlidingWindow(2, true)
			hooks = hook.NewRegistry()
			hooks.OnBeforeModelCall(func(_ context.Context, e *hook.BeforeModelCall) {
				if e.Cycle == 2 {
					secondReq = e.Messages
				}
			})
			backend.Add(
				providertest.ToolCall("t1", "lookup", `{}`),
				providertest.Text("done"),
			)
		})

		It("keeps the pair together when it is the newest two messages", func() {
			a, err := agent.New(backend,
				agent.WithConversationManager(manager),
				agent.WithHookRegistry(hooks),
				agent.WithTools(lookupTool()),
				agent.WithMessages(
					types.NewUserMessage("u0"),
					types.NewAssistantMessage("a1"),
					types.NewUserMessage("u2"),
				),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = a.Invoke(ctx, "u3")
			Expect(err).NotTo(HaveOccurred())

			// After the tool cycle the store held six messages with the pair at 4-5.
			Expect(secondReq).To(HaveLen(2))
			Expect(secondReq[0].HasToolUse()).To(BeTrue())
			Expect(secondReq[1].HasToolResult()).To(BeTrue())
			expectPaired(secondReq)

			msgs := a.Messages()
			expectPaired(msgs)
			Expect(msgs[0].HasToolResult()).To(BeFalse())
		})

		It("keeps one more message rather than splitting the pair", func() {
			a, err := agent.New(backend,
				agent.WithConversationManager(manager),
				agent.WithHookRegistry(hooks),
				agent.WithTools(lookupTool()),
				agent.WithMessages(
					types.NewUserMessage("u0"),
					types.NewAssistantMessage("a1"),
				),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = a.Invoke(ctx, "u2")
			Expect(err).NotTo(HaveOccurred())

			// Five messages with the pair at 3-4: a cut at 3 keeps exactly the pair.
			Expect(secondReq).To(HaveLen(2))
			expectPaired(secondReq)

			// The final cycle adds "done"; cutting at 1 would orphan the result.
			msgs := a.Messages()
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[2].Text()).To(Equal("done"))
			expectPaired(msgs)
		})
	})

	Describe("C: overflow with tool result truncation", func() {
		It("replaces the newest tool result and retries with the same message count", func() {
			backend.Add(
				providertest.ToolCall("t1", "lookup", `{}`),
				providertest.Overflow(),
				providertest.Text("summary of the lookup"),
			)
			a, err := agent.New(backend,
				agent.WithConversationManager(conversation.NewSlidingWindow(10, true)),
				agent.WithTools(lookupTool()),
				agent.WithSleep(sleeper.Sleep),
			)
			Expect(err).NotTo(HaveOccurred())

			res, err := a.Invoke(ctx, "look it up")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Message.Text()).To(Equal("summary of the lookup"))

			reqs := backend.Requests()
			Expect(reqs).To(HaveLen(3))
			Expect(reqs[2].Messages).To(HaveLen(len(reqs[1].Messages)))

			results := reqs[2].Messages[2].ToolResults()
			Expect(results).To(HaveLen(1))
			Expect(results[0].Content[0].Text).To(Equal(conversation.TruncatedResultText))
			Expect(results[0].Status).To(Equal(types.ToolResultError))
			Expect(sleeper.Delays()).To(BeEmpty())
		})
	})

	Describe("D: overflow under the null manager", func() {
		It("re-raises the overflow and leaves the history untouched", func() {
			overflow := &types.ContextOverflowError{Message: "prompt is too long"}
			backend.Add(providertest.Turn{Err: overflow})

			seed := []types.Message{types.NewUserMessage("earlier"), types.NewAssistantMessage("reply")}
			a, err := agent.New(backend,
				agent.WithConversationManager(conversation.NewNull()),
				agent.WithMessages(seed...),
			)
			Expect(err).NotTo(HaveOccurred())
			before := a.Messages()

			_, err = a.Invoke(ctx, "one more")
			Expect(err).To(MatchError(overflow))

			var ce *types.CycleError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Err).To(BeIdenticalTo(overflow))
			Expect(a.Messages()).To(Equal(before))
		})
	})

	Describe("E: throttling", func() {
		It("backs off 4s, 8s, 16s, 32s and 64s before succeeding", func() {
			for range 5 {
				backend.Add(providertest.Throttle())
			}
			backend.Add(providertest.Text("made it"))

			a, err := agent.New(backend, agent.WithSleep(sleeper.Sleep))
			Expect(err).NotTo(HaveOccurred())

			res, err := a.Invoke(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Message.Text()).To(Equal("made it"))
			Expect(sleeper.Delays()).To(Equal([]time.Duration{
				4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second, 64 * time.Second,
			}))
		})

		It("fails the invocation on the sixth throttle", func() {
			for range 6 {
				backend.Add(providertest.Throttle())
			}

			a, err := agent.New(backend, agent.WithSleep(sleeper.Sleep))
			Expect(err).NotTo(HaveOccurred())

			_, err = a.Invoke(ctx, "hi")
			var te *types.ThrottlingError
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &te)).To(BeTrue())
			Expect(te.Attempts).To(Equal(6))
			Expect(sleeper.Delays()).To(HaveLen(5))
			Expect(a.Messages()).To(BeEmpty())
		})
	})

	Describe("output exhaustion", func() {
		DescribeTable("always fails regardless of the manager",
			func(manager conversation.Manager) {
				backend.Add(providertest.MaxTokens("cut off"))
				a, err := agent.New(backend, agent.WithConversationManager(manager))
				Expect(err).NotTo(HaveOccurred())

				_, err = a.Invoke(ctx, "write a novel")
				var oe *types.OutputExhaustedError
				Expect(errors.As(err, &oe)).To(BeTrue())
				Expect(a.Messages()).To(BeEmpty())
				Expect(backend.Calls()).To(Equal(1))
			},
			Entry("sliding window", conversation.NewSlidingWindow(2, true)),
			Entry("null", conversation.NewNull()),
			Entry("summarizing", conversation.NewSummarizing(conversation.SummarizerFunc(
				func(context.Context, []types.Message, string) (string, error) { return "s", nil },
			), conversation.SummarizingOptions{})),
		)
	})
})
