package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	contents := `
server = "http://emdata.int.janelia.org:7000"
uuid = "3f8c"
timeout_seconds = 30
`
	filename := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(filename, []byte(contents), 0o644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	config, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("error loading config: %v", err)
	}
	if config.Server != "http://emdata.int.janelia.org:7000" || config.UUID != "3f8c" {
		t.Errorf("bad config: %+v", config)
	}
	if config.Timeout() != 30*time.Second {
		t.Errorf("bad timeout: %s", config.Timeout())
	}
}

func TestLoadConfigRequiresServer(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(filename, []byte(`uuid = "3f8c"`), 0o644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	if _, err := LoadConfig(filename); err == nil {
		t.Errorf("expected error for config without server")
	}
}

func TestDefaultTimeout(t *testing.T) {
	var config Config
	if config.Timeout() != DefaultTimeout {
		t.Errorf("bad default timeout: %s", config.Timeout())
	}
}
