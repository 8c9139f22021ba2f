package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatterbox/pkg/completion"
	"github.com/papercomputeco/chatterbox/pkg/config"
)

// setenv sets key until the current test ends, then restores the previous value.
func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetenv(key string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, prev)
		}
	})
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		for _, key := range []string{
			config.EnvCompletionKey, config.EnvTracingKey, config.EnvModel, config.EnvListen,
		} {
			unsetenv(key)
		}
	})

	write := func(name, contents string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
		return path
	}

	It("returns defaults when nothing is configured", func() {
		cfg, err := config.Load("", filepath.Join(dir, "missing.env"))
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Listen).To(Equal(":8080"))
		Expect(cfg.Completion.Model).To(Equal(completion.DefaultModel))
		Expect(cfg.Completion.BaseURL).To(Equal(completion.GroqBaseURL))
		Expect(cfg.Completion.Timeout).To(Equal(60 * time.Second))
		Expect(cfg.Session.TTL).To(Equal(time.Hour))
		Expect(cfg.TracingEnabled()).To(BeFalse())
	})

	It("reads a TOML file", func() {
		path := write("chatterbox.toml", `
listen = ":9090"
debug = true

[completion]
model = "llama-3.1-8b-instant"
system_prompt = "You are terse."
temperature = 0.7
max_tokens = 256
timeout = "15s"

[tracing]
enabled = true
db_path = "runs.db"

[session]
ttl = "10m"
`)
		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Listen).To(Equal(":9090"))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.Completion.Model).To(Equal("llama-3.1-8b-instant"))
		Expect(cfg.Completion.SystemPrompt).To(Equal("You are terse."))
		Expect(cfg.Completion.Temperature).To(Equal(0.7))
		Expect(cfg.Completion.MaxTokens).To(Equal(256))
		Expect(cfg.Completion.Timeout).To(Equal(15 * time.Second))
		Expect(cfg.Tracing.DBPath).To(Equal("runs.db"))
		Expect(cfg.TracingEnabled()).To(BeTrue())
		Expect(cfg.Session.TTL).To(Equal(10 * time.Minute))
	})

	It("fails for an explicit file that does not exist", func() {
		_, err := config.Load(filepath.Join(dir, "nope.toml"), "")
		Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
	})

	It("rejects unknown keys", func() {
		path := write("typo.toml", "[completion]\nmodle = \"x\"\n")
		_, err := config.Load(path, "")
		Expect(err).To(MatchError(ContainSubstring("completion.modle")))
	})

	It("loads credentials from the env file", func() {
		envFile := write(".env", "GROQ_API_KEY=gsk_test\nLANGCHAIN_API_KEY=\"ls_test\"\n")
		DeferCleanup(os.Unsetenv, config.EnvCompletionKey)
		DeferCleanup(os.Unsetenv, config.EnvTracingKey)

		cfg, err := config.Load("", envFile)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Completion.APIKey).To(Equal("gsk_test"))
		Expect(cfg.Tracing.APIKey).To(Equal("ls_test"))
		Expect(cfg.TracingEnabled()).To(BeTrue())
	})

	It("does not let the env file override the environment", func() {
		setenv(config.EnvCompletionKey, "from-env")
		envFile := write(".env", "GROQ_API_KEY=from-file\n")

		cfg, err := config.Load("", envFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Completion.APIKey).To(Equal("from-env"))
	})

	It("lets the environment override the file", func() {
		path := write("chatterbox.toml", "listen = \":9090\"\n[completion]\nmodel = \"from-file\"\n")
		setenv(config.EnvModel, "from-env")
		setenv(config.EnvListen, ":7070")

		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Completion.Model).To(Equal("from-env"))
		Expect(cfg.Listen).To(Equal(":7070"))
	})
})

var _ = Describe("Validate", func() {
	It("accepts the defaults", func() {
		Expect(config.Default().Validate()).To(Succeed())
	})

	It("reports every problem at once", func() {
		cfg := config.Default()
		cfg.Listen = ""
		cfg.Completion.Timeout = 0
		cfg.Session.TTL = -time.Second

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("listen address is required")))
		Expect(err).To(MatchError(ContainSubstring("completion.timeout")))
		Expect(err).To(MatchError(ContainSubstring("session.ttl")))
	})

	It("bounds the temperature", func() {
		cfg := config.Default()
		cfg.Completion.Temperature = 3

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("temperature")))
	})
})
