// Package workspace gathers lightweight context about the directory of
// the active document so completion prompts can mention the project the
// user is actually working in. Results are TTL-cached so rapid
// keystroke-completions hit memory.
package workspace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
)

// Context holds the gathered context for one directory.
type Context struct {
	Dir       string
	Listing   string            // directory entries, space-separated
	Manifests map[string]string // manifest label -> extracted summary
	GitBranch string
	GitStatus string // porcelain summary, single line
}

const (
	defaultTTL       = 1 * time.Hour
	gatherTimeout    = 5 * time.Second
	listingMaxBytes  = 512
	manifestMaxBytes = 512
)

// Cache is a TTL cache of Context entries keyed by absolute path.
type Cache struct {
	cache *ttlcache.Cache[string, *Context]
}

// NewCache creates a cache. ttl <= 0 uses the default of one hour.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c := ttlcache.New[string, *Context](
		ttlcache.WithTTL[string, *Context](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Context](),
	)
	go c.Start()
	return &Cache{cache: c}
}

// Close stops the cache expiration loop.
func (wc *Cache) Close() {
	wc.cache.Stop()
}

// Get returns the cached Context for the directory, or nil when absent
// or expired.
func (wc *Cache) Get(dir string) *Context {
	item := wc.cache.Get(dir)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Warm gathers context for the directory in the background.
func (wc *Cache) Warm(dir string) {
	go wc.Gather(context.Background(), dir)
}

// Gather collects directory context and caches it.
func (wc *Cache) Gather(ctx context.Context, dir string) *Context {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	entry := &Context{
		Dir:       dir,
		Manifests: make(map[string]string),
	}

	type result struct {
		key string
		val string
	}
	ch := make(chan result, 4)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- result{"listing", listDir(dir)}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := strings.TrimSpace(runCmd(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD"))
		ch <- result{"branch", out}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := runCmd(ctx, dir, "git", "status", "--porcelain")
		ch <- result{"status", toSingleLine(out, listingMaxBytes)}
	}()

	go func() {
		wg.Wait()
		close(ch)
	}()

	for r := range ch {
		switch r.key {
		case "listing":
			entry.Listing = r.val
		case "branch":
			entry.GitBranch = r.val
		case "status":
			entry.GitStatus = r.val
		}
	}

	gatherManifests(dir, entry.Manifests)

	wc.cache.Set(dir, entry, ttlcache.DefaultTTL)

	slog.Debug("gathered workspace context", "dir", dir)
	return entry
}

// Summary flattens a Context into prompt-ready lines.
func (c *Context) Summary() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	if c.Listing != "" {
		sb.WriteString("files: ")
		sb.WriteString(c.Listing)
		sb.WriteString("\n")
	}
	if c.GitBranch != "" {
		sb.WriteString("branch: ")
		sb.WriteString(c.GitBranch)
		sb.WriteString("\n")
	}
	if c.GitStatus != "" {
		sb.WriteString("changes: ")
		sb.WriteString(c.GitStatus)
		sb.WriteString("\n")
	}
	labels := make([]string, 0, len(c.Manifests))
	for label := range c.Manifests {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(c.Manifests[label])
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// listDir returns the directory entries as one space-separated line.
func listDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return truncate(strings.Join(names, " "), listingMaxBytes)
}

// runCmd runs a command and returns its stdout, or "" on error.
func runCmd(ctx context.Context, dir string, name string, args ...string) string {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// manifestFiles lists the manifest filenames to look for.
var manifestFiles = []string{
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"Makefile",
}

func gatherManifests(dir string, out map[string]string) {
	for _, name := range manifestFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var label, extracted string
		switch name {
		case "package.json":
			label = "package.json scripts"
			extracted = extractPackageJSON(string(data))
		case "go.mod":
			label = "go.mod"
			extracted = extractGoMod(string(data))
		case "Cargo.toml":
			label = "Cargo.toml"
			extracted = extractCargo(string(data))
		case "pyproject.toml":
			label = "pyproject.toml"
			extracted = extractPyproject(string(data))
		case "Makefile":
			label = "Makefile targets"
			extracted = extractMakefileTargets(string(data))
		}

		if extracted != "" {
			out[label] = extracted
		}
	}
}

type packageJSON struct {
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

// extractPackageJSON summarizes script names and dependency names.
func extractPackageJSON(content string) string {
	var pkg packageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return ""
	}
	var parts []string
	if len(pkg.Scripts) > 0 {
		names := sortedKeys(pkg.Scripts)
		parts = append(parts, "scripts: "+strings.Join(names, ", "))
	}
	if len(pkg.Dependencies) > 0 {
		names := sortedKeys(pkg.Dependencies)
		parts = append(parts, "deps: "+strings.Join(names, ", "))
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extractGoMod extracts module path, Go version and direct requirements.
func extractGoMod(content string) string {
	var parts []string
	var deps []string
	inRequire := false
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "module "):
			parts = append(parts, line)
		case strings.HasPrefix(line, "go ") && !strings.HasPrefix(line, "go."):
			parts = append(parts, line)
		case strings.HasPrefix(line, "require ("):
			inRequire = true
		case inRequire && line == ")":
			inRequire = false
		case inRequire && line != "" && !strings.Contains(line, "// indirect"):
			if fields := strings.Fields(line); len(fields) > 0 {
				deps = append(deps, fields[0])
			}
		}
	}
	if len(deps) > 0 {
		parts = append(parts, "deps: "+strings.Join(deps, ", "))
	}
	return truncate(strings.Join(parts, ", "), manifestMaxBytes)
}

type cargoToml struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

// extractCargo extracts the crate name and dependency names.
func extractCargo(content string) string {
	var cargo cargoToml
	if _, err := toml.Decode(content, &cargo); err != nil {
		return ""
	}
	var parts []string
	if cargo.Package.Name != "" {
		parts = append(parts, fmt.Sprintf("name = %q", cargo.Package.Name))
	}
	if len(cargo.Dependencies) > 0 {
		deps := make([]string, 0, len(cargo.Dependencies))
		for name := range cargo.Dependencies {
			deps = append(deps, name)
		}
		sort.Strings(deps)
		parts = append(parts, "deps: "+strings.Join(deps, ", "))
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

type pyprojectToml struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

// extractPyproject extracts the project name and dependency list.
func extractPyproject(content string) string {
	var py pyprojectToml
	if _, err := toml.Decode(content, &py); err != nil {
		return ""
	}
	var parts []string
	if py.Project.Name != "" {
		parts = append(parts, fmt.Sprintf("name = %q", py.Project.Name))
	}
	if len(py.Project.Dependencies) > 0 {
		parts = append(parts, "deps: "+strings.Join(py.Project.Dependencies, ", "))
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

// extractMakefileTargets extracts target names, skipping pattern rules
// and variable assignments.
func extractMakefileTargets(content string) string {
	var targets []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "#") || strings.Contains(line, ":=") {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		target := strings.TrimSpace(line[:idx])
		if target == "" || strings.ContainsAny(target, "$%(){} ") {
			continue
		}
		if strings.HasPrefix(target, ".") {
			continue
		}
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	return truncate(strings.Join(targets, ", "), manifestMaxBytes)
}

// toSingleLine collapses a multi-line string to one space-separated line.
func toSingleLine(s string, maxBytes int) string {
	if s == "" {
		return ""
	}
	return truncate(strings.Join(strings.Fields(s), " "), maxBytes)
}

// truncate caps s at maxBytes, appending "..." if cut.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "..."
}
