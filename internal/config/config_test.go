package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func parseWithKey(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	t.Setenv(APIKeyEnvVar, "sk-test")
	var out bytes.Buffer
	return Parse(args, &out)
}

func TestParseDefaults(t *testing.T) {
	c, err := parseWithKey(t, "--assistant-id", "asst_abc")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.Port != defaultPort {
		t.Errorf("Port = %d, want %d", c.Port, defaultPort)
	}
	if c.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, defaultBaseURL)
	}
	if c.PollIntervalMS != defaultPollIntervalMS {
		t.Errorf("PollIntervalMS = %d, want %d", c.PollIntervalMS, defaultPollIntervalMS)
	}
	if c.PollMaxAttempts != defaultPollMaxAttempts {
		t.Errorf("PollMaxAttempts = %d, want %d", c.PollMaxAttempts, defaultPollMaxAttempts)
	}
	if c.MaxUploadMB != defaultMaxUploadMB {
		t.Errorf("MaxUploadMB = %d, want %d", c.MaxUploadMB, defaultMaxUploadMB)
	}
	if c.TranscribeAudio {
		t.Error("TranscribeAudio should default to false")
	}
	if c.DataPath != "" {
		t.Errorf("DataPath = %q, want empty", c.DataPath)
	}
	if c.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", c.LogLevel, defaultLogLevel)
	}
	if c.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want value from environment", c.APIKey)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "missing assistant ID",
			args:    []string{},
			wantErr: ErrMissingAssistantID,
		},
		{
			name:    "port too low",
			args:    []string{"--assistant-id", "a", "--port", "80"},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port too high",
			args:    []string{"--assistant-id", "a", "--port", "70000"},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "poll interval too small",
			args:    []string{"--assistant-id", "a", "--poll-interval-ms", "10"},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "zero poll attempts",
			args:    []string{"--assistant-id", "a", "--poll-max-attempts", "0"},
			wantErr: ErrInvalidPollAttempts,
		},
		{
			name:    "upload size too large",
			args:    []string{"--assistant-id", "a", "--max-upload-mb", "500"},
			wantErr: ErrInvalidUploadSize,
		},
		{
			name:    "bad log level",
			args:    []string{"--assistant-id", "a", "--log-level", "loud"},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWithKey(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "")
	var out bytes.Buffer
	_, err := Parse([]string{"--assistant-id", "asst_abc"}, &out)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Parse() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestParseHelp(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "sk-test")
	var out bytes.Buffer
	_, err := Parse([]string{"--help"}, &out)
	if !errors.Is(err, ErrShowHelp) {
		t.Fatalf("Parse() error = %v, want ErrShowHelp", err)
	}
	if !strings.Contains(out.String(), "USAGE") {
		t.Error("help output missing USAGE section")
	}
}

func TestParseVersion(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "sk-test")
	var out bytes.Buffer
	_, err := Parse([]string{"--version"}, &out)
	if !errors.Is(err, ErrShowVersion) {
		t.Fatalf("Parse() error = %v, want ErrShowVersion", err)
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("version output %q missing %q", out.String(), Version)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9090
assistant_id: asst_from_file
poll_max_attempts: 60
transcribe_audio: true
data_path: /tmp/parley.db
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	c, err := parseWithKey(t, "--config", path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.Port != 9090 {
		t.Errorf("Port = %d, want 9090", c.Port)
	}
	if c.AssistantID != "asst_from_file" {
		t.Errorf("AssistantID = %q, want asst_from_file", c.AssistantID)
	}
	if c.PollMaxAttempts != 60 {
		t.Errorf("PollMaxAttempts = %d, want 60", c.PollMaxAttempts)
	}
	if !c.TranscribeAudio {
		t.Error("TranscribeAudio = false, want true")
	}
	if c.DataPath != "/tmp/parley.db" {
		t.Errorf("DataPath = %q, want /tmp/parley.db", c.DataPath)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9090
assistant_id: asst_from_file
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	c, err := parseWithKey(t, "--config", path, "--port", "3000")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.Port != 3000 {
		t.Errorf("Port = %d, want flag value 3000", c.Port)
	}
	if c.AssistantID != "asst_from_file" {
		t.Errorf("AssistantID = %q, want file value", c.AssistantID)
	}
}

func TestConfigFileMissing(t *testing.T) {
	_, err := parseWithKey(t, "--config", "/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestConfigFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [not an int"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := parseWithKey(t, "--config", path)
	if err == nil {
		t.Error("expected an error for invalid YAML")
	}
}
