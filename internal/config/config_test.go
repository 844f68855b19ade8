package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/scribe/internal/router"
)

// newViper mirrors the root command's setup on a private instance.
func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}
	}
	return v
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Writer.PoolSize != 3 {
		t.Errorf("Writer.PoolSize = %d, want 3", cfg.Writer.PoolSize)
	}
	if cfg.Writer.RoundDelay() != time.Second {
		t.Errorf("Writer.RoundDelay() = %v, want 1s", cfg.Writer.RoundDelay())
	}
	if cfg.Images.Timeout() != 120*time.Second {
		t.Errorf("Images.Timeout() = %v, want 120s", cfg.Images.Timeout())
	}
	if cfg.Images.SectionDelay() != 500*time.Millisecond {
		t.Errorf("Images.SectionDelay() = %v, want 500ms", cfg.Images.SectionDelay())
	}
	if !cfg.Images.Enabled || !cfg.Research.Enabled || cfg.Slides.Enabled {
		t.Error("images and research should be on and slides off by default")
	}
	if cfg.Provider.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("Provider.APIKeyEnv = %q", cfg.Provider.APIKeyEnv)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should be valid, got %v", errs)
	}
}

func TestModelsConfig_TierModels(t *testing.T) {
	m := ModelsConfig{Premium: "big", Standard: "mid", Economy: "small"}.TierModels()

	tests := []struct {
		tier router.Tier
		want string
	}{
		{router.TierPremium, "big"},
		{router.TierStandard, "mid"},
		{router.TierEconomy, "small"},
		{router.TierPremiumPro, "mid"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := m.Resolve(tt.tier); got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.tier, got, tt.want)
			}
		})
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(newViper(t, ""))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Writer.PoolSize != Default().Writer.PoolSize {
		t.Errorf("Writer.PoolSize = %d, want default", cfg.Writer.PoolSize)
	}
	if cfg.Models.Standard != "gpt-4o-mini" {
		t.Errorf("Models.Standard = %q", cfg.Models.Standard)
	}
}

func TestLoadFrom_File(t *testing.T) {
	v := newViper(t, `
writer:
  pool_size: 5
  round_delay_ms: 0
images:
  enabled: false
models:
  standard: local-model
output:
  dir: /tmp/docs
  html: true
`)
	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Writer.PoolSize != 5 || cfg.Writer.RoundDelay() != 0 {
		t.Errorf("writer = %+v", cfg.Writer)
	}
	if cfg.Images.Enabled {
		t.Error("images.enabled should be false")
	}
	if cfg.Images.PerSection != 2 {
		t.Errorf("unset keys should keep defaults, Images.PerSection = %d", cfg.Images.PerSection)
	}
	if cfg.Models.Standard != "local-model" || cfg.Models.Premium != "gpt-4o" {
		t.Errorf("models = %+v", cfg.Models)
	}
	if cfg.Output.Dir != "/tmp/docs" || !cfg.Output.HTML {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestLoadFrom_Env(t *testing.T) {
	t.Setenv("SCRIBE_WRITER_POOL_SIZE", "4")
	t.Setenv("SCRIBE_LOGGING_LEVEL", "debug")

	cfg, err := LoadFrom(newViper(t, ""))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Writer.PoolSize != 4 {
		t.Errorf("Writer.PoolSize = %d, want 4 from env", cfg.Writer.PoolSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from env", cfg.Logging.Level)
	}
}

func TestLoadFrom_InvalidReportsEveryField(t *testing.T) {
	v := newViper(t, `
writer:
  pool_size: 9
images:
  per_section: 0
logging:
  level: loud
`)
	_, err := LoadFrom(v)
	if err == nil {
		t.Fatal("LoadFrom() should reject an invalid config")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{"writer.pool_size", "images.per_section", "logging.level"} {
		if !fields[want] {
			t.Errorf("missing validation error for %s in %v", want, verrs)
		}
	}
	if len(verrs) != 3 {
		t.Errorf("len(errors) = %d, want 3", len(verrs))
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		if got := ConfigDir(); got != filepath.Join("/xdg", "scribe") {
			t.Errorf("ConfigDir() = %q", got)
		}
		if got := ConfigFile(); got != filepath.Join("/xdg", "scribe", "config.yaml") {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got := ConfigDir(); got != filepath.Join(home, ".config", "scribe") {
			t.Errorf("ConfigDir() = %q", got)
		}
	})
}
