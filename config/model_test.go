package config_test

import (
	"deepresearch/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Model", func() {

	It("points a provider at a compatible endpoint", func() {
		hcl := minimalVarsHCL() + `
model "azure" {
  provider       = "openai"
  allowed_models = ["gpt_4o", "gpt_4o_mini"]
  api_key        = vars.test_api_key
  base_url       = "https://research.openai.azure.com/openai/v1/"
}
`
		_, f := writeFixture("config.hcl", hcl)
		cfg, err := config.LoadFile(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Models).To(HaveLen(1))
		Expect(cfg.Models[0].Provider).To(Equal(config.ProviderOpenAI))
		Expect(cfg.Models[0].BaseURL).To(Equal("https://research.openai.azure.com/openai/v1/"))
		Expect(cfg.Models[0].APIKey).To(Equal("test-key-123"))
	})

	It("allows only the listed model keys", func() {
		m := config.Model{Provider: config.ProviderOpenAI, AllowedModels: []string{"gpt_4o"}}
		Expect(m.Allows("gpt_4o")).To(BeTrue())
		Expect(m.Allows("gpt_4o_mini")).To(BeFalse())
		Expect(m.Allows("")).To(BeFalse())
	})

	Describe("role agents across providers", func() {
		var cfg *config.Config

		BeforeEach(func() {
			hcl := `
variable "key" { default = "k" }
model "openai" {
  provider       = "openai"
  allowed_models = ["gpt_4o"]
  api_key        = vars.key
}
model "anthropic" {
  provider       = "anthropic"
  allowed_models = ["claude_sonnet_4"]
  api_key        = vars.key
}
model "gemini" {
  provider       = "gemini"
  allowed_models = ["gemini_2_0_flash"]
  api_key        = vars.key
}
agent "planner" {
  model = models.openai.gpt_4o
}
agent "researcher" {
  model = models.gemini.gemini_2_0_flash
}
agent "critic" {
  model = models.anthropic.claude_sonnet_4
}
research {
  planner    = agents.planner
  researcher = agents.researcher
  critic     = agents.critic
}
`
			_, f := writeFixture("config.hcl", hcl)
			var err error
			cfg, err = config.LoadAndValidate(f)
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves each role to its provider's model name", func() {
			expected := map[string]struct {
				block string
				model string
			}{
				"planner":    {"openai", "gpt-4o"},
				"researcher": {"gemini", "gemini-2.0-flash"},
				"critic":     {"anthropic", "claude-sonnet-4-20250514"},
			}
			for name, want := range expected {
				a, err := cfg.GetAgent(name)
				Expect(err).NotTo(HaveOccurred())
				m, model, err := a.ResolveModel(cfg.Models)
				Expect(err).NotTo(HaveOccurred())
				Expect(m.Name).To(Equal(want.block), name)
				Expect(model).To(Equal(want.model), name)
			}
		})

		It("fails for a model key no block allows", func() {
			a := config.Agent{Name: "critic", Model: "o3_mini"}
			_, _, err := a.ResolveModel(cfg.Models)
			Expect(err).To(MatchError("no model config found for model 'o3_mini'"))
		})
	})

	It("rejects an agent that references a model outside allowed_models", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+`
agent "planner" {
  model = models.openai.gpt_4o_mini
}
`)
		_, err := config.LoadFile(f)
		Expect(err).To(MatchError(ContainSubstring("decode agent planner")))
	})

	Describe("Validate", func() {
		It("rejects an unsupported provider before looking at the research block", func() {
			_, f := writeFixture("config.hcl", minimalVarsHCL()+`
model "local" {
  provider       = "llama"
  allowed_models = ["llama_7b"]
  api_key        = vars.test_api_key
}
`)
			cfg, err := config.LoadFile(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("model 'local': Unsupported provider")))
		})

		It("lists the supported keys when a model key is unknown", func() {
			m := config.Model{
				Name:          "openai",
				Provider:      config.ProviderOpenAI,
				AllowedModels: []string{"gpt_4o", "gpt_5"},
			}
			err := m.Validate()
			Expect(err).To(MatchError(ContainSubstring("Model 'gpt_5' is not supported for provider 'openai'")))
			Expect(err).To(MatchError(ContainSubstring("[gpt_4_1 gpt_4_1_mini gpt_4o gpt_4o_mini o3_mini]")))
		})

		It("accepts every key in the supported model table", func() {
			for provider, models := range config.SupportedModels {
				m := config.Model{Name: string(provider), Provider: provider}
				for key := range models {
					m.AllowedModels = append(m.AllowedModels, key)
				}
				Expect(m.Validate()).To(Succeed(), string(provider))
			}
		})
	})
})
