package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/pkg/models"
)

func TestPrintResult(t *testing.T) {
	res := &models.PipelineResult{
		Keyword:   "rangoon ruby",
		StartDate: "2019-01-01",
		EndDate:   "2019-02-01",
		Articles: []models.ScoredArticle{
			{ArticleStub: models.ArticleStub{Title: "Mine collapse", URL: "https://a.example/1"}, Label: models.Negative},
			{ArticleStub: models.ArticleStub{Title: "Smuggling ring", URL: "https://b.example/2"}, Label: models.Negative},
		},
		Stats: models.RunStats{Fetched: 3, Relevant: 2, Negative: 2},
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()

	dashes := strings.Repeat("-", 80)
	want := "Title: Mine collapse\nURL: https://a.example/1\n" + dashes + "\n" +
		"Title: Smuggling ring\nURL: https://b.example/2\n" + dashes + "\n"
	if !strings.HasPrefix(out, want) {
		t.Errorf("article blocks:\ngot:\n%s\nwant prefix:\n%s", out, want)
	}
	if !strings.Contains(out, `2 negative of 2 relevant (3 fetched, 0 excluded) for "rangoon ruby"`) {
		t.Errorf("summary line missing: %s", out)
	}
}

func TestPrintResultEmpty(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &models.PipelineResult{Keyword: "x"})
	if strings.Contains(buf.String(), "Title:") {
		t.Errorf("unexpected article block: %s", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	cfg := &config.Config{}
	cfg.Classifier.Backend = "lexicon"
	cfg.Classifier.OpenAI.Key = "sk-abcdefghijkl"

	var buf bytes.Buffer
	printStatus(&buf, cfg)
	out := buf.String()

	if !strings.Contains(out, "lexicon") {
		t.Error("expected classifier backend")
	}
	if strings.Contains(out, "sk-abcdefghijkl") {
		t.Error("status must not print raw secrets")
	}
	if !strings.Contains(out, "Run history:   disabled") {
		t.Errorf("expected history disabled: %s", out)
	}
}

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"version": false, "run": false, "serve": false, "status": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	res := &models.PipelineResult{Keyword: "rangoon ruby", Status: models.StatusOK}

	tests := []struct {
		file string
		want string
	}{
		{"out.html", "<!DOCTYPE html>"},
		{"out.txt", "Status: ok"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.file)
		if err := writeReport(path, res); err != nil {
			t.Fatalf("writeReport(%s): %v", tt.file, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s missing %q", tt.file, tt.want)
		}
	}
}
