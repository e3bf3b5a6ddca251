package config

import (
	"testing"
	"time"
)

func TestLLMConfigValidate(t *testing.T) {
	cfg := LLMConfig{APIKey: "sk-test", Model: "gpt-4o"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.APIKey = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for blank api key")
	}

	cfg = LLMConfig{APIKey: "sk-test"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestBrightDataConfigValidate(t *testing.T) {
	cfg := BrightDataConfig{
		Customer:        "c_abc",
		Zone:            "serp_api1",
		PollInterval:    10 * time.Second,
		MaxPollAttempts: 10,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for name, broken := range map[string]BrightDataConfig{
		"missing customer": {Zone: "z", PollInterval: time.Second, MaxPollAttempts: 1},
		"missing zone":     {Customer: "c", PollInterval: time.Second, MaxPollAttempts: 1},
		"zero attempts":    {Customer: "c", Zone: "z", PollInterval: time.Second},
		"zero interval":    {Customer: "c", Zone: "z", MaxPollAttempts: 1},
	} {
		if err := broken.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRegistryConfigValidate(t *testing.T) {
	if err := (RegistryConfig{Backend: "memory"}).Validate(); err != nil {
		t.Fatalf("memory backend rejected: %v", err)
	}
	if err := (RegistryConfig{}).Validate(); err != nil {
		t.Fatalf("empty backend should default to memory: %v", err)
	}
	if err := (RegistryConfig{Backend: "redis"}).Validate(); err == nil {
		t.Fatal("redis backend without addr should be rejected")
	}
	if err := (RegistryConfig{Backend: "redis", Redis: RedisConfig{Addr: "localhost:6379"}}).Validate(); err != nil {
		t.Fatalf("redis backend with addr rejected: %v", err)
	}
	if err := (RegistryConfig{Backend: "postgres"}).Validate(); err == nil {
		t.Fatal("unknown backend should be rejected")
	}
}
