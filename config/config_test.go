package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("auth:\n  jwt_secret: test-secret-key-for-unit-testing\nstore:\n  driver: memory\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("期望 store.driver=memory，实际=%s", cfg.Store.Driver)
	}
	if cfg.Audit.MaxEntries != 1000 {
		t.Errorf("期望 audit.max_entries 默认 1000，实际=%d", cfg.Audit.MaxEntries)
	}
	if !cfg.Feature.AutoAdvanceOnApproval {
		t.Error("期望默认开启审核通过自动流转")
	}
	if cfg.MinIO.Enabled() {
		t.Error("未配置 endpoint 时不应启用对象存储")
	}
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: "localstorage"},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Audit:  AuditConfig{MaxEntries: 1000},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("未知存储驱动应校验失败")
	}
}

func TestValidate_RejectsShortSecret(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: "memory"},
		Auth:   AuthConfig{JWTSecret: "short"},
		Audit:  AuditConfig{MaxEntries: 1000},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("过短的 jwt_secret 应校验失败")
	}
}

func TestValidate_RejectsZeroAuditCap(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: "memory"},
		Auth:   AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("audit.max_entries=0 应校验失败")
	}
}
