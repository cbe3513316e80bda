package utils

import (
	"strings"
	"testing"
)

func TestBuildObjectAccessURL(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_BASE_URL", "")
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "console-exports")
	got := BuildObjectAccessURL("exports/a/b.xlsx")
	if got != "https://storage.googleapis.com/console-exports/exports/a/b.xlsx" {
		t.Fatalf("unexpected url %q", got)
	}

	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://cdn.example.com/get?key={objectKey}")
	got = BuildObjectAccessURL("exports/a b.xlsx")
	if got != "https://cdn.example.com/get?key=exports%2Fa+b.xlsx" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestExportObjectKey(t *testing.T) {
	key := ExportObjectKey("ravi@example.com", "Outstanding Dues", "dues.xlsx")
	if !strings.HasPrefix(key, "exports/ravi_example_com/outstanding_dues/") {
		t.Fatalf("unexpected key %q", key)
	}
	if !strings.HasSuffix(key, "_dues.xlsx") {
		t.Fatalf("unexpected key %q", key)
	}
}
