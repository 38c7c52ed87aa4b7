package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mshibata-dev/crawld/internal/config"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [url...]" {
			t.Errorf("expected use 'crawl [url...]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has allow flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("allow")
		if flag == nil {
			t.Fatal("expected allow flag")
		}
		if flag.Shorthand != "a" {
			t.Errorf("expected shorthand 'a', got %q", flag.Shorthand)
		}
	})

	t.Run("has max-pages flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("max-pages")
		if flag == nil {
			t.Fatal("expected max-pages flag")
		}
		if flag.Shorthand != "p" {
			t.Errorf("expected shorthand 'p', got %q", flag.Shorthand)
		}
		if flag.DefValue != "200" {
			t.Errorf("expected default '200', got %q", flag.DefValue)
		}
	})

	t.Run("has max-depth flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("max-depth")
		if flag == nil {
			t.Fatal("expected max-depth flag")
		}
		if flag.Shorthand != "d" {
			t.Errorf("expected shorthand 'd', got %q", flag.Shorthand)
		}
	})

	t.Run("has concurrency flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("concurrency")
		if flag == nil {
			t.Fatal("expected concurrency flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})

	t.Run("has store flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("store")
		if flag == nil {
			t.Fatal("expected store flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has resume flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("resume")
		if flag == nil {
			t.Fatal("expected resume flag")
		}
		if flag.Shorthand != "r" {
			t.Errorf("expected shorthand 'r', got %q", flag.Shorthand)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.DefValue != config.DefaultOutputPath {
			t.Errorf("expected default %q, got %q", config.DefaultOutputPath, flag.DefValue)
		}
	})

	t.Run("has ignore-robots flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("ignore-robots")
		if flag == nil {
			t.Fatal("expected ignore-robots flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})
}

// TestBuildConfig tests building a Config from flags and arguments.
func TestBuildConfig(t *testing.T) {
	// Run from an empty directory so a developer's .crawld file cannot
	// leak into the test. Not parallel: t.Chdir changes process state.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	t.Run("defaults with seed argument", func(t *testing.T) {
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://example.com" {
			t.Errorf("expected seeds from args, got %v", cfg.Seeds)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected default max pages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
		if cfg.Delay != config.DefaultDelay {
			t.Errorf("expected default delay %s, got %s", config.DefaultDelay, cfg.Delay)
		}
		if cfg.Resume {
			t.Error("expected resume to default to false")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"--allow", "example.com",
			"--max-pages", "10",
			"--max-depth", "1",
			"--concurrency", "2",
			"--delay", "2s",
			"--store", "crawl.db",
			"--ignore-robots",
		})
		if err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.AllowedDomains) != 1 || cfg.AllowedDomains[0] != "example.com" {
			t.Errorf("expected allowed domains [example.com], got %v", cfg.AllowedDomains)
		}
		if cfg.MaxPages != 10 {
			t.Errorf("expected max pages 10, got %d", cfg.MaxPages)
		}
		if cfg.MaxDepth != 1 {
			t.Errorf("expected max depth 1, got %d", cfg.MaxDepth)
		}
		if cfg.Concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", cfg.Concurrency)
		}
		if cfg.Delay != 2*time.Second {
			t.Errorf("expected delay 2s, got %s", cfg.Delay)
		}
		if cfg.StorePath != "crawl.db" {
			t.Errorf("expected store path crawl.db, got %q", cfg.StorePath)
		}
		if !cfg.IgnoreRobots {
			t.Error("expected ignore robots to be true")
		}
	})

	t.Run("explicit missing config file errors", func(t *testing.T) {
		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{"--config", "does-not-exist.yaml"})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})

	t.Run("config file merges seeds and domains", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crawld.yaml")
		content := `seeds:
  - https://docs.example.com
allowed_domains:
  - example.com
domains:
  slow.example.com:
    delay: 5s
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Command-line seed first, file seed appended
		wantSeeds := []string{"https://example.com", "https://docs.example.com"}
		if len(cfg.Seeds) != len(wantSeeds) {
			t.Fatalf("expected seeds %v, got %v", wantSeeds, cfg.Seeds)
		}
		for i, want := range wantSeeds {
			if cfg.Seeds[i] != want {
				t.Errorf("seed[%d]: expected %q, got %q", i, want, cfg.Seeds[i])
			}
		}
		if len(cfg.AllowedDomains) != 1 || cfg.AllowedDomains[0] != "example.com" {
			t.Errorf("expected allowed domains from file, got %v", cfg.AllowedDomains)
		}
		if cfg.File == nil {
			t.Fatal("expected loaded config file")
		}
		if got := time.Duration(cfg.File.GetDomainConfig("slow.example.com").Delay); got != 5*time.Second {
			t.Errorf("expected domain delay 5s, got %s", got)
		}
	})
}
