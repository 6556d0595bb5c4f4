package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/endpoints-tools/config-fetcher/internal/serviceconfig"
)

func TestWriteDocumentToFile(t *testing.T) {
	t.Parallel()

	doc := serviceconfig.Document{
		"name": "svc.example.com",
		"id":   "2024-01-03r0",
		"control": map[string]any{
			"environment": "servicecontrol.googleapis.com",
		},
	}

	path := filepath.Join(t.TempDir(), "service.json")
	if err := writeDocument(doc, path); err != nil {
		t.Fatalf("writeDocument returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got["name"] != "svc.example.com" || got["id"] != "2024-01-03r0" {
		t.Fatalf("unexpected output document: %v", got)
	}
}

func TestWriteDocumentBadPath(t *testing.T) {
	t.Parallel()

	err := writeDocument(serviceconfig.Document{"name": "a"}, filepath.Join(t.TempDir(), "missing", "service.json"))
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
