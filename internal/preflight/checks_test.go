package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
	"lectern/internal/preflight"
	"lectern/internal/testsupport"
)

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "fakebin")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("seed binary: %v", err)
	}
	t.Setenv("PATH", dir)

	if result := preflight.CheckBinary("fake", "fakebin"); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := preflight.CheckBinary("missing", "no-such-binary"); result.Passed {
		t.Fatalf("expected failure, got %+v", result)
	}
}

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectory("dir", dir); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := preflight.CheckDirectory("dir", filepath.Join(dir, "absent")); result.Passed {
		t.Fatalf("expected failure, got %+v", result)
	}
}

func TestCheckLLM(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"OK"}}]}`))
	}))
	defer server.Close()

	result := preflight.CheckLLM(context.Background(), config.LLM{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}

	if result := preflight.CheckLLM(context.Background(), config.LLM{}); result.Passed {
		t.Fatalf("missing key must fail, got %+v", result)
	}
}

func TestRunWithoutModelCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := preflight.Run(context.Background(), cfg, false)
	for _, result := range results {
		if result.Name == "Model API" {
			t.Fatalf("model check must be skipped: %+v", result)
		}
	}
	if len(results) == 0 {
		t.Fatal("expected some checks")
	}
}
