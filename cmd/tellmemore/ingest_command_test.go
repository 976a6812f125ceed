package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tellmemore/internal/catalog"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
staging_dir = %q
log_dir = %q

[catalog]
file = %q
`,
		filepath.Join(base, "state"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "episodes.json"),
	)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func writeTestCatalog(t *testing.T, cfgPath string, episodes []catalog.Episode) string {
	t.Helper()
	catalogPath := filepath.Join(filepath.Dir(cfgPath), "episodes.json")
	data, err := json.Marshal(episodes)
	if err != nil {
		t.Fatalf("encode catalog: %v", err)
	}
	if err := os.WriteFile(catalogPath, data, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return catalogPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func sampleEpisodes() []catalog.Episode {
	return []catalog.Episode{
		{
			ExternalID: "ep-a",
			Title:      "Rates Ahead",
			ShowName:   "Money Talk",
			Topic:      "finance",
			AudioURL:   "https://cdn.example.com/ep-a.mp3",
		},
		{
			ExternalID: "ep-b",
			Title:      "Border Report",
			ShowName:   "News Hour",
			Topic:      "news",
			AudioURL:   "https://cdn.example.com/ep-b.mp3",
		},
	}
}

func TestIngestFromCatalogFile(t *testing.T) {
	cfgPath := writeTestConfig(t)
	writeTestCatalog(t, cfgPath, sampleEpisodes())

	out, err := runCLI(t, "--config", cfgPath, "ingest")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Enqueued 2 episode(s)") {
		t.Errorf("output = %q", out)
	}

	// A second ingest pass discovers nothing new.
	out, err = runCLI(t, "--config", cfgPath, "ingest")
	if err != nil {
		t.Fatalf("second ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Enqueued 0 episode(s), skipped 2") {
		t.Errorf("second pass output = %q", out)
	}
}

func TestIngestFilteredByTopic(t *testing.T) {
	cfgPath := writeTestConfig(t)
	writeTestCatalog(t, cfgPath, sampleEpisodes())

	out, err := runCLI(t, "--config", cfgPath, "ingest", "--topic", "finance")
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Enqueued 1 episode(s)") {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "finance_001") || strings.Contains(out, "news_001") {
		t.Errorf("queue list output = %q", out)
	}
}

func TestIngestRequiresASource(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCLI(t, "--config", cfgPath, "ingest", "--feed", "https://example.com/rss")
	if err == nil || !strings.Contains(err.Error(), "--topic") {
		t.Fatalf("error = %v, want a --topic requirement", err)
	}
}

func TestQueueListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queue is empty.") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	cfgPath := writeTestConfig(t)
	writeTestCatalog(t, cfgPath, sampleEpisodes())

	if out, err := runCLI(t, "--config", cfgPath, "ingest"); err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pending") || !strings.Contains(out, "Queue healthy.") {
		t.Errorf("status output = %q", out)
	}
}

func TestProcessRequiresCredentials(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if os.Getenv("EMBEDDING_API_KEY") != "" || os.Getenv("OPENAI_API_KEY") != "" {
		t.Skip("embedding credentials present in environment")
	}
	_, err := runCLI(t, "--config", cfgPath, "process")
	if err == nil || !strings.Contains(err.Error(), "embedding.api_key") {
		t.Fatalf("error = %v, want actionable credential diagnostic", err)
	}
}
