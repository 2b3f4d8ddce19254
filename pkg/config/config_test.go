package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bookbinderco/stacks/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer", func() {
	var tmpDir string
	var cfger *config.Configer

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfger, err = config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":8082"))
			Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Retrieval.TopK).To(Equal(5))
			Expect(cfg.Retrieval.OverfetchFactor).To(Equal(10))
			Expect(cfg.Retrieval.ScoreFloor).To(Equal(0.5))
			Expect(cfg.EventStream.Enabled).To(BeFalse())
		})

		It("fills unset fields with defaults", func() {
			path := filepath.Join(tmpDir, "config.toml")
			Expect(os.WriteFile(path, []byte("[api]\nlisten = \":9999\"\n"), 0o600)).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":9999"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Retrieval.TopK).To(Equal(5))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config through TOML", func() {
			cfg := config.NewDefaultConfig()
			cfg.API.Listen = ":7070"
			cfg.Retrieval.ScoreFloor = 0.65

			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.API.Listen).To(Equal(":7070"))
			Expect(loaded.Retrieval.ScoreFloor).To(Equal(0.65))
		})

		It("rejects a nil config", func() {
			Expect(cfger.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("sets and gets a string value", func() {
			Expect(cfger.SetConfigValue("embedding.model", "all-minilm")).To(Succeed())

			got, err := cfger.GetConfigValue("embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("all-minilm"))
		})

		It("sets and gets a numeric value", func() {
			Expect(cfger.SetConfigValue("retrieval.top_k", "8")).To(Succeed())

			got, err := cfger.GetConfigValue("retrieval.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("8"))
		})

		It("rejects unknown keys", func() {
			Expect(cfger.SetConfigValue("nope.nope", "x")).To(HaveOccurred())

			_, err := cfger.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-positive top_k", func() {
			Expect(cfger.SetConfigValue("retrieval.top_k", "0")).To(HaveOccurred())
			Expect(cfger.SetConfigValue("retrieval.top_k", "-3")).To(HaveOccurred())
		})

		It("rejects an overfetch factor below one", func() {
			Expect(cfger.SetConfigValue("retrieval.overfetch_factor", "0")).To(HaveOccurred())
		})

		It("rejects a negative score floor", func() {
			Expect(cfger.SetConfigValue("retrieval.score_floor", "-0.1")).To(HaveOccurred())
		})

		It("parses boolean event stream toggle", func() {
			Expect(cfger.SetConfigValue("event_stream.enabled", "true")).To(Succeed())

			got, err := cfger.GetConfigValue("event_stream.enabled")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("true"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("includes every supported key exactly once", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElement("api.listen"))
			Expect(keys).To(ContainElement("retrieval.score_floor"))
			Expect(keys).To(ContainElement("event_stream.topic"))

			seen := map[string]int{}
			for _, k := range keys {
				seen[k]++
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			for k, n := range seen {
				Expect(n).To(Equal(1), "duplicate key %s", k)
			}
		})
	})

	Describe("PresetConfig", func() {
		It("returns ollama defaults for the ollama preset", func() {
			cfg, err := config.PresetConfig("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("returns openai settings for the openai preset", func() {
			cfg, err := config.PresetConfig("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("anthropic")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseConfigTOML", func() {
		It("parses a minimal document", func() {
			cfg, err := config.ParseConfigTOML([]byte("[retrieval]\ntop_k = 3\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.TopK).To(Equal(3))
		})

		It("rejects unsupported versions", func() {
			_, err := config.ParseConfigTOML([]byte("version = 99\n"))
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed TOML", func() {
			_, err := config.ParseConfigTOML([]byte("not toml ==="))
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("applies defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("embedding.provider")).To(Equal("ollama"))
		Expect(v.GetInt("retrieval.top_k")).To(Equal(5))
		Expect(v.GetFloat64("retrieval.score_floor")).To(Equal(0.5))
	})

	It("reads values from config.toml", func() {
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[retrieval]\ntop_k = 7\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetInt("retrieval.top_k")).To(Equal(7))
	})

	It("lets STACKS_ environment variables override the file", func() {
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[retrieval]\ntop_k = 7\n"), 0o600)).To(Succeed())

		Expect(os.Setenv("STACKS_RETRIEVAL_TOP_K", "9")).To(Succeed())
		DeferCleanup(func() { os.Unsetenv("STACKS_RETRIEVAL_TOP_K") })

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetInt("retrieval.top_k")).To(Equal(9))
	})
})
