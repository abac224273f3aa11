package logger

import (
	"testing"

	"campus-asset/backend/config"
)

func TestNewLogger_JSON(t *testing.T) {
	l, err := NewLogger(&config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger 应成功: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("debug 级别应启用")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "console"}); err == nil {
		t.Error("无效日志级别应返回错误")
	}
}

func TestComponent_NilLogger(t *testing.T) {
	if Component(nil, "projector") == nil {
		t.Error("nil 日志器应降级为 Nop")
	}
}
