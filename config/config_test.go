package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yanzige/prometheus-research/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
		os.Unsetenv("SERVER_BASE_PATH")
		os.Unsetenv("LOGGING_LEVEL")
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: "127.0.0.1:9090"
  environment: "staging"
  base_path: "/api"
  read_timeout: "3s"

logging:
  level: "debug"

metrics:
  enabled: false
  buffer_size: 50
`
				err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse server settings", func() {
				cfg, _ := config.Load()
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Server.BasePath).To(Equal("/api"))
			})

			It("should keep defaults for keys the file omits", func() {
				cfg, _ := config.Load()
				read, write, idle, shutdown := cfg.Server.Timeouts()
				Expect(read).To(Equal(3 * time.Second))
				Expect(write).To(Equal(15 * time.Second))
				Expect(idle).To(Equal(60 * time.Second))
				Expect(shutdown).To(Equal(5 * time.Second))
			})

			It("should parse logging and metrics", func() {
				cfg, _ := config.Load()
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.Metrics.Enabled).To(BeFalse())
				Expect(cfg.Metrics.BufferSize).To(Equal(50))
			})
		})

		Context("without config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Server.BasePath).To(Equal("/test"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
				Expect(cfg.Metrics.Enabled).To(BeTrue())
				Expect(cfg.Metrics.BufferSize).To(Equal(1000))
			})

			It("should apply environment variables", func() {
				os.Setenv("SERVER_BASE_PATH", "/v1")
				os.Setenv("LOGGING_LEVEL", "warn")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.BasePath).To(Equal("/v1"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelWarn))
			})

			It("should reject an invalid log level from the environment", func() {
				os.Setenv("LOGGING_LEVEL", "verbose")

				cfg, err := config.Load()
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})
		})

		Context("with malformed config file", func() {
			It("should return an error", func() {
				err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte("server: [unclosed"), 0644)
				Expect(err).NotTo(HaveOccurred())

				cfg, err := config.Load()
				Expect(err).To(HaveOccurred())
				Expect(cfg).To(BeNil())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server: config.ServerConfig{
					Address:         ":8080",
					Environment:     config.EnvDev,
					BasePath:        "/test",
					ReadTimeout:     "15s",
					WriteTimeout:    "15s",
					IdleTimeout:     "60s",
					ShutdownTimeout: "5s",
				},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
				Metrics: config.MetricsConfig{Enabled: true, BufferSize: 10},
			}
		})

		It("should accept a complete config", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should accept the root base path", func() {
			cfg.Server.BasePath = "/"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a base path without leading slash", func() {
			cfg.Server.BasePath = "test"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a base path with trailing slash", func() {
			cfg.Server.BasePath = "/test/"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		DescribeTable("should reject base paths the router cannot register",
			func(basePath string) {
				cfg.Server.BasePath = basePath
				Expect(cfg.Validate()).NotTo(Succeed())
			},
			Entry("unbalanced wildcard brace", "/te{st"),
			Entry("wildcard segment", "/{id}"),
			Entry("closing brace", "/test}"),
			Entry("empty segment", "/a//b"),
			Entry("whitespace", "/my path"),
		)

		It("should accept a nested base path", func() {
			cfg.Server.BasePath = "/api/v1.2"
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an address without port separator", func() {
			cfg.Server.Address = "localhost"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an unknown environment", func() {
			cfg.Server.Environment = "qa"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an invalid timeout", func() {
			cfg.Server.WriteTimeout = "soon"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a zero metrics buffer", func() {
			cfg.Metrics.BufferSize = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
