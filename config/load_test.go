package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"deepresearch/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {

	Describe("a complete configuration", func() {
		It("loads every block and applies defaults", func() {
			hcl := fullBaseHCL() + `
index {
  embedding_api_key = vars.test_api_key
}

analyzer {
  endpoint    = "https://cu.example.com"
  api_key     = vars.test_api_key
  analyzer_id = "prebuilt-documentAnalyzer"
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Agents).To(HaveLen(3))
			Expect(cfg.Research.Runtime).To(Equal(config.RuntimeLocal))
			Expect(cfg.Research.Planner).To(Equal("planner"))
			Expect(cfg.Research.Researcher).To(Equal("researcher"))
			Expect(cfg.Research.Critic).To(Equal("critic"))
			Expect(cfg.Research.MaxIterations).To(Equal(config.DefaultMaxIterations))
			Expect(cfg.Research.GetPollInterval()).To(Equal(time.Second))
			Expect(cfg.Research.GetRunTimeout()).To(BeZero())

			Expect(cfg.Index.Backend).To(Equal(config.IndexBackendChromem))
			Expect(cfg.Index.Collection).To(Equal("documents"))
			Expect(cfg.Index.EmbeddingModel).To(Equal("text-embedding-3-large"))
			Expect(cfg.Index.EmbeddingAPIKey).To(Equal("test-key-123"))

			Expect(cfg.Analyzer.APIVersion).To(Equal(config.DefaultAnalyzerAPIVersion))
			Expect(cfg.Analyzer.GetTimeout()).To(Equal(120 * time.Second))
			Expect(cfg.Analyzer.GetPollInterval()).To(Equal(2 * time.Second))

			Expect(cfg.Storage.Backend).To(Equal(config.StorageMemory))
		})

		It("loads blocks spread across a directory", func() {
			dir := writeFixtures(map[string]string{
				"vars.hcl":     minimalVarsHCL(),
				"models.hcl":   minimalModelHCL(),
				"agents.hcl":   roleAgentsHCL(),
				"research.hcl": researchHCL(),
			})
			cfg, err := config.LoadAndValidate(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Research.Critic).To(Equal("critic"))
		})

		It("fails for a directory without hcl files", func() {
			_, err := config.Load(GinkgoT().TempDir())
			Expect(err).To(MatchError(ContainSubstring("no .hcl files")))
		})

		It("parses agent retrieval settings", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
agent "researcher" {
  model        = models.openai.gpt_4o
  instructions = "Search."
  retrieval    = true
  top_k        = 8
}
agent "planner" {
  model        = models.openai.gpt_4o
  instructions = "Plan."
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())

			researcher, err := cfg.GetAgent("researcher")
			Expect(err).NotTo(HaveOccurred())
			Expect(researcher.Retrieval).To(BeTrue())
			Expect(researcher.GetTopK()).To(Equal(8))

			planner, err := cfg.GetAgent("planner")
			Expect(err).NotTo(HaveOccurred())
			Expect(planner.GetTopK()).To(Equal(config.DefaultRetrievalTopK))

			m, name, err := planner.ResolveModel(cfg.Models)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name).To(Equal("openai"))
			Expect(name).To(Equal("gpt-4o"))
		})
	})

	Describe("role instructions", func() {
		It("uses the built-in instructions when an agent block leaves them out", func() {
			hcl := minimalVarsHCL() + minimalModelHCL() + `
agent "planner" {
  model = models.openai.gpt_4o
}
agent "researcher" {
  model        = models.openai.gpt_4o
  instructions = "Custom research."
}
agent "judge" {
  model = models.openai.gpt_4o
}
research {
  planner    = agents.planner
  researcher = agents.researcher
  critic     = agents.judge
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())

			planner, _ := cfg.GetAgent("planner")
			Expect(planner.Instructions).To(Equal(config.DefaultInstructions("planner")))
			researcher, _ := cfg.GetAgent("researcher")
			Expect(researcher.Instructions).To(Equal("Custom research."))
			judge, _ := cfg.GetAgent("judge")
			Expect(judge.Instructions).To(Equal(config.DefaultInstructions("critic")))
		})

		It("asks the critic for the structured decision", func() {
			critic := config.DefaultInstructions("critic")
			Expect(critic).To(ContainSubstring(`"decision"`))
			Expect(critic).To(ContainSubstring(`"final_report"`))
			Expect(config.DefaultInstructions("planner")).NotTo(BeEmpty())
			Expect(config.DefaultInstructions("researcher")).NotTo(BeEmpty())
			Expect(config.DefaultInstructions("summarizer")).To(BeEmpty())
		})

		It("still requires instructions for agents outside the research roles", func() {
			_, f := writeFixture("config.hcl", fullBaseHCL()+`
agent "helper" {
  model = models.openai.gpt_4o
}
`)
			_, err := config.LoadAndValidate(f)
			Expect(err).To(MatchError(ContainSubstring("agent 'helper': instructions are required")))
		})
	})

	Describe("singleton blocks", func() {
		It("rejects a duplicate research block across files", func() {
			dir := writeFixtures(map[string]string{
				"a.hcl": fullBaseHCL(),
				"b.hcl": researchHCL(),
			})
			_, err := config.Load(dir)
			Expect(err).To(MatchError(ContainSubstring("duplicate research block")))
		})

		It("rejects duplicate variables", func() {
			_, f := writeFixture("vars.hcl", minimalVarsHCL()+minimalVarsHCL())
			_, err := config.Load(f)
			Expect(err).To(MatchError(ContainSubstring("duplicate variable 'test_api_key'")))
		})
	})

	Describe("variable resolution", func() {
		It("prefers the vars file over the environment and the default", func() {
			varsFile := filepath.Join(GinkgoT().TempDir(), "vars.txt")
			GinkgoT().Setenv(config.VarsFileEnv, varsFile)
			Expect(config.SetVar("test_api_key", "from-file")).To(Succeed())
			GinkgoT().Setenv("TEST_API_KEY", "from-env")

			_, f := writeFixture("config.hcl", fullBaseHCL())
			cfg, err := config.Load(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Models[0].APIKey).To(Equal("from-file"))
		})

		It("falls back to the upper-cased environment variable", func() {
			GinkgoT().Setenv("OPENAI_KEY", "from-env")
			hcl := `variable "openai_key" { secret = true }` + `
model "openai" {
  provider       = "openai"
  allowed_models = ["gpt_4o"]
  api_key        = vars.openai_key
}
`
			_, f := writeFixture("config.hcl", hcl)
			cfg, err := config.Load(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Models[0].APIKey).To(Equal("from-env"))
		})

		It("loads .env next to the config without overriding the environment", func() {
			dir, _ := writeFixture("config.hcl", fullBaseHCL())
			Expect(os.WriteFile(filepath.Join(dir, ".env"), []byte("DR_DOTENV_A=file\nDR_DOTENV_B=file\n"), 0644)).To(Succeed())
			GinkgoT().Setenv("DR_DOTENV_B", "env")
			DeferCleanup(os.Unsetenv, "DR_DOTENV_A")

			Expect(config.LoadDotEnvForConfig(dir)).To(Succeed())
			Expect(os.Getenv("DR_DOTENV_A")).To(Equal("file"))
			Expect(os.Getenv("DR_DOTENV_B")).To(Equal("env"))
		})
	})

	Describe("environment overrides", func() {
		It("overrides the iteration budget and role bindings", func() {
			GinkgoT().Setenv(config.EnvMaxIterations, "5")
			GinkgoT().Setenv(config.EnvCriticAgent, "researcher")

			_, f := writeFixture("config.hcl", fullBaseHCL())
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Research.MaxIterations).To(Equal(5))
			Expect(cfg.Research.Critic).To(Equal("researcher"))
			Expect(cfg.Research.Planner).To(Equal("planner"))
		})

		It("rejects a non-positive iteration budget", func() {
			GinkgoT().Setenv(config.EnvMaxIterations, "0")
			_, f := writeFixture("config.hcl", fullBaseHCL())
			_, err := config.Load(f)
			var cfgErr *config.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfgErr))
			Expect(err.Error()).To(ContainSubstring(config.EnvMaxIterations))
		})

		It("binds hosted assistants from the environment alone", func() {
			GinkgoT().Setenv(config.EnvPlannerAgent, "asst_p")
			GinkgoT().Setenv(config.EnvResearcherAgent, "asst_r")
			GinkgoT().Setenv(config.EnvCriticAgent, "asst_c")
			GinkgoT().Setenv(config.EnvOpenAIAPIKey, "sk-env")

			_, f := writeFixture("config.hcl", minimalVarsHCL())
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Research.Runtime).To(Equal(config.RuntimeAssistants))
			Expect(cfg.Research.Planner).To(Equal("asst_p"))
			Expect(cfg.Research.Researcher).To(Equal("asst_r"))
			Expect(cfg.Research.Critic).To(Equal("asst_c"))
			Expect(cfg.Research.APIKey).To(Equal("sk-env"))
			Expect(cfg.Research.MaxIterations).To(Equal(config.DefaultMaxIterations))
		})

		It("asks for the api key when only the assistant ids are in the environment", func() {
			GinkgoT().Setenv(config.EnvPlannerAgent, "asst_p")
			GinkgoT().Setenv(config.EnvResearcherAgent, "asst_r")
			GinkgoT().Setenv(config.EnvCriticAgent, "asst_c")

			_, f := writeFixture("config.hcl", minimalVarsHCL())
			_, err := config.LoadAndValidate(f)
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Missing).To(ConsistOf("research.api_key (OPENAI_API_KEY)"))
		})

		It("keeps an explicit research.api_key over the environment", func() {
			GinkgoT().Setenv(config.EnvOpenAIAPIKey, "sk-env")
			_, f := writeFixture("config.hcl", minimalVarsHCL()+`
research {
  runtime    = "assistants"
  planner    = "asst_p"
  researcher = "asst_r"
  critic     = "asst_c"
  api_key    = vars.test_api_key
}
`)
			cfg, err := config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Research.APIKey).To(Equal("test-key-123"))
		})
	})
})
