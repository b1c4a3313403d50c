package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

func TestCacheGetMiss(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	if got := wc.Get("/nonexistent/path"); got != nil {
		t.Errorf("expected nil for cache miss, got %+v", got)
	}
}

func TestCacheGetHit(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	wc.cache.Set("/test", &Context{Dir: "/test", Listing: "a b c"}, ttlcache.DefaultTTL)

	got := wc.Get("/test")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.Listing != "a b c" {
		t.Errorf("expected listing %q, got %q", "a b c", got.Listing)
	}
}

func TestCacheExpiry(t *testing.T) {
	wc := NewCache(time.Millisecond)
	defer wc.Close()

	wc.cache.Set("/test", &Context{Dir: "/test"}, ttlcache.DefaultTTL)
	time.Sleep(10 * time.Millisecond)

	if got := wc.Get("/test"); got != nil {
		t.Errorf("expected nil for expired entry, got %+v", got)
	}
}

func TestGatherPopulatesListing(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0644)

	wc.Gather(context.Background(), dir)
	got := wc.Get(dir)
	if got == nil {
		t.Fatal("expected entry after gather")
	}
	if !strings.Contains(got.Listing, "hello.txt") {
		t.Errorf("expected listing to mention hello.txt, got %q", got.Listing)
	}
}

func TestGatherPackageJSON(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	dir := t.TempDir()
	pkg := `{"scripts":{"build":"tsc","test":"vitest"},"dependencies":{"react":"^18.0.0"}}`
	os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0644)

	entry := wc.Gather(context.Background(), dir)
	got := entry.Manifests["package.json scripts"]
	for _, want := range []string{"build", "test", "react"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in manifest summary, got %q", want, got)
		}
	}
}

func TestGatherGoMod(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	dir := t.TempDir()
	mod := "module example.com/demo\n\ngo 1.24\n\nrequire (\n\tgithub.com/google/uuid v1.6.0\n\tgolang.org/x/sys v0.1.0 // indirect\n)\n"
	os.WriteFile(filepath.Join(dir, "go.mod"), []byte(mod), 0644)

	entry := wc.Gather(context.Background(), dir)
	got := entry.Manifests["go.mod"]
	if !strings.Contains(got, "module example.com/demo") {
		t.Errorf("expected module path, got %q", got)
	}
	if !strings.Contains(got, "github.com/google/uuid") {
		t.Errorf("expected direct dep, got %q", got)
	}
	if strings.Contains(got, "golang.org/x/sys") {
		t.Errorf("expected indirect dep excluded, got %q", got)
	}
}

func TestGatherCargoToml(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	dir := t.TempDir()
	cargo := "[package]\nname = \"demo\"\n\n[dependencies]\nserde = \"1\"\n"
	os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(cargo), 0644)

	entry := wc.Gather(context.Background(), dir)
	got := entry.Manifests["Cargo.toml"]
	if !strings.Contains(got, `name = "demo"`) {
		t.Errorf("expected crate name, got %q", got)
	}
	if !strings.Contains(got, "serde") {
		t.Errorf("expected dependency name, got %q", got)
	}
}

func TestGatherPyproject(t *testing.T) {
	wc := NewCache(0)
	defer wc.Close()

	dir := t.TempDir()
	py := "[project]\nname = \"demo\"\ndependencies = [\"httpx\"]\n"
	os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(py), 0644)

	entry := wc.Gather(context.Background(), dir)
	got := entry.Manifests["pyproject.toml"]
	if !strings.Contains(got, `name = "demo"`) || !strings.Contains(got, "httpx") {
		t.Errorf("unexpected pyproject summary %q", got)
	}
}

func TestExtractMakefileTargets(t *testing.T) {
	content := "CC := gcc\n\nbuild: deps\n\tgo build ./...\n\ntest:\n\tgo test ./...\n\n.PHONY: build test\n\n%.o: %.c\n\t$(CC) -c $<\n"
	got := extractMakefileTargets(content)
	if !strings.Contains(got, "build") || !strings.Contains(got, "test") {
		t.Errorf("expected build and test targets, got %q", got)
	}
	if strings.Contains(got, ".PHONY") {
		t.Errorf("expected special targets skipped, got %q", got)
	}
	if strings.Contains(got, "%.o") {
		t.Errorf("expected pattern rules skipped, got %q", got)
	}
}

func TestSummaryOrderStable(t *testing.T) {
	c := &Context{
		Listing:   "a.go b.go",
		GitBranch: "main",
		Manifests: map[string]string{"go.mod": "module x", "Makefile targets": "build"},
	}
	first := c.Summary()
	for i := 0; i < 5; i++ {
		if got := c.Summary(); got != first {
			t.Fatalf("summary unstable across calls:\n%s\nvs\n%s", first, got)
		}
	}
	if !strings.Contains(first, "files: a.go b.go") || !strings.Contains(first, "branch: main") {
		t.Errorf("unexpected summary %q", first)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != strings.Repeat("x", 10)+"..." {
		t.Errorf("expected truncated with ellipsis, got %q", got)
	}
}
