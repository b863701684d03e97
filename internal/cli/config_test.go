package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clientscore/internal/model"
)

func TestRegisterDefaults_RoundTrip(t *testing.T) {
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults failed: %v", err)
	}

	got := model.DefaultConfig()
	got.Gateway.PredictURL = ""
	got.Gateway.Timeout = 0
	if err := v.Unmarshal(got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if diff := cmp.Diff(model.DefaultConfig(), got); diff != "" {
		t.Errorf("defaults did not survive viper (-want +got):\n%s", diff)
	}
}

func TestRegisterDefaults_EnvOverride(t *testing.T) {
	t.Setenv("CLIENTSCORE_GATEWAY_PREDICT_URL", "http://scoring:9000/predict")
	t.Setenv("CLIENTSCORE_GATEWAY_TIMEOUT", "3s")
	t.Setenv("CLIENTSCORE_GATEWAY_WRAP_FEATURES", "false")

	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults failed: %v", err)
	}
	v.SetEnvPrefix("CLIENTSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	got := model.DefaultConfig()
	if err := v.Unmarshal(got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.Gateway.PredictURL != "http://scoring:9000/predict" {
		t.Errorf("expected env predict URL, got %s", got.Gateway.PredictURL)
	}
	if got.Gateway.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", got.Gateway.Timeout)
	}
	if got.Gateway.WrapFeatures {
		t.Error("expected wrap_features disabled by env")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(model.DefaultConfig()); err != nil {
		t.Errorf("expected defaults to be valid, got %v", err)
	}

	bad := model.DefaultConfig()
	bad.Store.Driver = "postgres"
	if err := validateConfig(bad); err == nil {
		t.Error("expected error for unknown store driver")
	}

	noPath := model.DefaultConfig()
	noPath.Store.Driver = "sqlite"
	noPath.Store.Path = ""
	if err := validateConfig(noPath); err == nil {
		t.Error("expected error for sqlite without path")
	}

	noURL := model.DefaultConfig()
	noURL.Gateway.PredictURL = ""
	if err := validateConfig(noURL); err == nil {
		t.Error("expected error without predict URL")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var got model.Config
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if diff := cmp.Diff(*model.DefaultConfig(), got); diff != "" {
		t.Errorf("written config mismatch (-want +got):\n%s", diff)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when the file already exists")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger(model.LogConfig{Level: "debug", Format: "console"}); err != nil {
		t.Errorf("expected console logger, got %v", err)
	}
	if _, err := newLogger(model.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := newLogger(model.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
