package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEGMENT_MAX_NUMBER", "")
	t.Setenv("CHUNK_FLUSH_CHARS", "")
	t.Setenv("HISTORY_SIZE", "")

	cfg := Load()
	if cfg.SegmentMaxNumber != 999 {
		t.Fatalf("expected default max number 999, got %d", cfg.SegmentMaxNumber)
	}
	if cfg.ChunkFlushChars != 1000 {
		t.Fatalf("expected default flush chars 1000, got %d", cfg.ChunkFlushChars)
	}
	if cfg.HistorySize != 10 {
		t.Fatalf("expected default history size 10, got %d", cfg.HistorySize)
	}
	if cfg.IncludeFigureQuestions {
		t.Fatal("figure questions should be excluded by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEGMENT_MAX_NUMBER", "200")
	t.Setenv("COMPOSE_TOP_K", "3")
	t.Setenv("OLLAMA_RPS", "1.5")
	t.Setenv("INCLUDE_FIGURE_QUESTIONS", "true")

	cfg := Load()
	if cfg.SegmentMaxNumber != 200 {
		t.Fatalf("expected max number 200, got %d", cfg.SegmentMaxNumber)
	}
	if cfg.ComposeTopK != 3 {
		t.Fatalf("expected top k 3, got %d", cfg.ComposeTopK)
	}
	if cfg.OllamaRPS != 1.5 {
		t.Fatalf("expected rps 1.5, got %v", cfg.OllamaRPS)
	}
	if !cfg.IncludeFigureQuestions {
		t.Fatal("expected figure questions included")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "segment_max_number: 1000\nquestions_path: /srv/questions\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SEGMENT_MAX_NUMBER", "")
	t.Setenv("QUESTIONS_PATH", "")
	t.Setenv("CHUNK_MIN_CHARS", "")

	cfg := Load()
	if cfg.SegmentMaxNumber != 1000 {
		t.Fatalf("expected file overlay 1000, got %d", cfg.SegmentMaxNumber)
	}
	if cfg.QuestionsPath != "/srv/questions" {
		t.Fatalf("expected overlay questions path, got %q", cfg.QuestionsPath)
	}
	if cfg.ChunkMinChars != 100 {
		t.Fatalf("unmentioned field should keep default, got %d", cfg.ChunkMinChars)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("compose_top_k: 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("COMPOSE_TOP_K", "2")

	cfg := Load()
	if cfg.ComposeTopK != 2 {
		t.Fatalf("expected env to win with 2, got %d", cfg.ComposeTopK)
	}
}

func TestFigureKeywordList(t *testing.T) {
	cfg := Config{FigureKeywords: "figure, diagram ,, 그림"}
	got := cfg.FigureKeywordList()
	want := []string{"figure", "diagram", "그림"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if list := (Config{}).FigureKeywordList(); list != nil {
		t.Fatalf("empty override should be nil, got %v", list)
	}
}
