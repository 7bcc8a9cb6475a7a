package streamers_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deepresearch/store"
	"deepresearch/streamers"
)

// countingHandler records which events reached it
type countingHandler struct {
	streamers.NopResearchHandler
	events []string
}

func (c *countingHandler) ResearchStarted(string, int)           { c.events = append(c.events, "started") }
func (c *countingHandler) FindingAdded(int, string)              { c.events = append(c.events, "finding") }
func (c *countingHandler) DecisionMade(int, bool, string)        { c.events = append(c.events, "decision") }
func (c *countingHandler) ResearchCompleted(string, int, string) { c.events = append(c.events, "completed") }
func (c *countingHandler) ResearchFailed(int, error)             { c.events = append(c.events, "failed") }

var _ = Describe("StoringResearchHandler", func() {
	var (
		runs  store.RunStore
		inner *countingHandler
		h     *streamers.StoringResearchHandler
	)

	BeforeEach(func() {
		runs = store.NewMemoryBundle().Runs
		inner = &countingHandler{}
		h = streamers.NewStoringResearchHandler(inner, runs, nil)
	})

	It("records a completed run with its findings and decisions", func() {
		h.ResearchStarted("Why is the sky blue?", 3)
		Expect(h.RunID()).NotTo(BeEmpty())

		h.FindingAdded(1, "rayleigh scattering")
		h.DecisionMade(1, false, `{"decision":"CONTINUE"}`)
		h.FindingAdded(2, "wavelength dependence")
		h.DecisionMade(2, true, `{"decision":"COMPLETE"}`)
		h.ResearchCompleted("complete", 2, "# Report")

		run, err := runs.GetRun(h.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Question).To(Equal("Why is the sky blue?"))
		Expect(run.Status).To(Equal(store.StatusComplete))
		Expect(run.Iterations).To(Equal(2))
		Expect(run.Report).To(Equal("# Report"))
		Expect(run.FinishedAt).NotTo(BeNil())

		findings, err := runs.GetFindings(h.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(findings).To(HaveLen(2))
		Expect(findings[1].Content).To(Equal("wavelength dependence"))

		decisions, err := runs.GetDecisions(h.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(decisions).To(HaveLen(2))
		Expect(decisions[0].Complete).To(BeFalse())
		Expect(decisions[1].Complete).To(BeTrue())

		Expect(inner.events).To(Equal([]string{"started", "finding", "decision", "finding", "decision", "completed"}))
	})

	It("marks exhausted runs", func() {
		h.ResearchStarted("q", 1)
		h.ResearchCompleted("exhausted", 1, "synthesized")

		run, err := runs.GetRun(h.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(store.StatusExhausted))
	})

	It("records the failure reason", func() {
		h.ResearchStarted("q", 3)
		h.ResearchFailed(2, errors.New("critic agent ended with status failed"))

		run, err := runs.GetRun(h.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(store.StatusFailed))
		Expect(run.Error).To(ContainSubstring("critic agent"))
		Expect(inner.events).To(ContainElement("failed"))
	})

	It("works without an inner handler", func() {
		h = streamers.NewStoringResearchHandler(nil, runs, nil)
		h.ResearchStarted("q", 1)
		h.FindingAdded(1, "f")
		Expect(runs.GetFindings(h.RunID())).To(HaveLen(1))
	})
})
