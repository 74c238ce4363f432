package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBHost:               "localhost",
		DBPort:               "5432",
		DBUser:               "test_user",
		DBPassword:           "test_password",
		DBName:               "test_db",
		UserAgent:            "Test Agent",
		FetchTimeout:         30,
		MaxRetries:           3,
		RetryDelay:           5,
		MaxRetryDelay:        160,
		MaxFeedSizeMB:        10,
		MaxRedirects:         5,
		RespectRobots:        true,
		WorkerCount:          5,
		CycleInterval:        60,
		DefaultIntervalHours: 1,
		ErrorThreshold:       10,
		Port:                 "8080",
		Once:                 true,
		Debug:                true,
		Version:              "test-version",
	}

	if cfg.DBHost != "localhost" {
		t.Errorf("Expected DB host 'localhost', got '%s'", cfg.DBHost)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.FetchTimeout != 30 {
		t.Errorf("Expected fetch timeout 30, got %d", cfg.FetchTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.MaxRetryDelay != 160 {
		t.Errorf("Expected max retry delay 160, got %d", cfg.MaxRetryDelay)
	}
	if cfg.MaxFeedSizeMB != 10 {
		t.Errorf("Expected max feed size 10, got %d", cfg.MaxFeedSizeMB)
	}
	if !cfg.RespectRobots {
		t.Error("Expected robots handling to be enabled")
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.DefaultIntervalHours != 1 {
		t.Errorf("Expected default interval 1, got %d", cfg.DefaultIntervalHours)
	}
	if cfg.ErrorThreshold != 10 {
		t.Errorf("Expected error threshold 10, got %d", cfg.ErrorThreshold)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if !cfg.Once {
		t.Error("Expected once mode to be enabled")
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}
