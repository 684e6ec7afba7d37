package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/render"
)

// CatalogFile is the YAML layout of a demos file.
type CatalogFile struct {
	Tables []classify.TableSpec `yaml:"tables"`
	Demos  []Demo               `yaml:"demos"`
}

// Catalog manages demo definitions and the classification tables they use.
type Catalog struct {
	dataDir string
	demos   map[string]Demo
	builtin map[string]bool
	tables  map[string]classify.Table
	mu      sync.RWMutex
}

// NewCatalog creates a catalog seeded with the built-in demos and tables,
// then loads user demos persisted under dataDir.
func NewCatalog(dataDir, connection string) *Catalog {
	c := &Catalog{
		dataDir: dataDir,
		demos:   make(map[string]Demo),
		builtin: make(map[string]bool),
		tables:  classify.Builtin(),
	}
	for _, d := range builtinDemos(connection) {
		c.demos[d.ID] = d
		c.builtin[d.ID] = true
	}
	c.loadFromDisk()
	return c
}

// List returns all demos.
func (c *Catalog) List() map[string]Demo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Demo, len(c.demos))
	for k, v := range c.demos {
		result[k] = v
	}
	return result
}

// Get returns a demo by ID.
func (c *Catalog) Get(id string) (Demo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.demos[id]
	return d, ok
}

// Create validates and adds a demo.
func (c *Catalog) Create(d Demo) (Demo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.ID == "" {
		d.ID = generateID(d.Title)
	}
	if _, exists := c.demos[d.ID]; exists {
		return Demo{}, fmt.Errorf("demo with ID %q already exists", d.ID)
	}
	if err := c.validateLocked(d); err != nil {
		return Demo{}, err
	}

	c.demos[d.ID] = d
	if err := c.saveToDisk(); err != nil {
		delete(c.demos, d.ID)
		return Demo{}, err
	}
	return d, nil
}

// Delete removes a user demo. Built-in demos cannot be deleted.
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.demos[id]; !exists {
		return fmt.Errorf("demo %q not found", id)
	}
	if c.builtin[id] {
		return fmt.Errorf("demo %q is built in", id)
	}
	delete(c.demos, id)
	return c.saveToDisk()
}

// Tables returns the known classification tables, sorted by name.
func (c *Catalog) Tables() []classify.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]classify.Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Table returns a classification table by name.
func (c *Catalog) Table(name string) (classify.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[name]
	return t, ok
}

// LoadFile merges tables and demos from a YAML file. Demos in the file
// replace demos with the same ID but are not persisted.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, spec := range file.Tables {
		t, err := spec.Build()
		if err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
		c.tables[t.Name()] = t
	}
	for _, d := range file.Demos {
		if d.ID == "" {
			d.ID = generateID(d.Title)
		}
		if err := c.validateLocked(d); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
		c.demos[d.ID] = d
		c.builtin[d.ID] = true
	}
	return nil
}

// ThemeLayers resolves a demo's layer specs against the table registry.
func (c *Catalog) ThemeLayers(d Demo) ([]render.ThemeLayer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.themeLayersLocked(d)
}

func (c *Catalog) themeLayersLocked(d Demo) ([]render.ThemeLayer, error) {
	out := make([]render.ThemeLayer, 0, len(d.Layers))
	for _, l := range d.Layers {
		table, ok := c.tables[l.Table]
		if !ok {
			return nil, fmt.Errorf("layer %q: unknown classification table %q", l.ID, l.Table)
		}
		style := l.Style
		if l.LineColor != nil {
			lc := classify.Color(*l.LineColor)
			style.LineColor = &lc
		}
		out = append(out, render.ThemeLayer{
			ID:     l.ID,
			Toggle: l.Toggle,
			Source: l.Source,
			Table:  table,
			Style:  style,
		})
	}
	return out, nil
}

func (c *Catalog) validateLocked(d Demo) error {
	if d.ID == "" {
		return fmt.Errorf("demo requires an id or title")
	}
	if len(d.Layers) == 0 {
		return fmt.Errorf("demo %q has no layers", d.ID)
	}
	seen := map[string]bool{}
	for _, l := range d.Layers {
		if l.ID == "" {
			return fmt.Errorf("demo %q: layer without id", d.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("demo %q: duplicate layer %q", d.ID, l.ID)
		}
		seen[l.ID] = true
		if err := l.Source.Validate(); err != nil {
			return fmt.Errorf("demo %q layer %q: %w", d.ID, l.ID, err)
		}
	}
	if _, err := c.themeLayersLocked(d); err != nil {
		return fmt.Errorf("demo %q: %w", d.ID, err)
	}
	return nil
}

// configFile returns the path to the user demos file.
func (c *Catalog) configFile() string {
	return filepath.Join(c.dataDir, "demos.json")
}

// loadFromDisk loads user demos from disk.
func (c *Catalog) loadFromDisk() {
	if c.dataDir == "" {
		return
	}
	data, err := os.ReadFile(c.configFile())
	if err != nil {
		return // File doesn't exist yet
	}

	var demos map[string]Demo
	if err := json.Unmarshal(data, &demos); err != nil {
		return // Invalid JSON, keep built-ins only
	}
	for id, d := range demos {
		if c.builtin[id] {
			continue
		}
		d.ID = id
		c.demos[id] = d
	}
}

// saveToDisk persists user demos to disk.
func (c *Catalog) saveToDisk() error {
	if c.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dataDir, 0755); err != nil {
		return err
	}

	user := make(map[string]Demo)
	for id, d := range c.demos {
		if !c.builtin[id] {
			user[id] = d
		}
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a title.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "-")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
