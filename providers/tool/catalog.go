package tool

import (
	"sort"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"
)

// Catalog is a thread-safe registry of tools keyed by lowercase name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

// NewCatalog creates a catalog holding tools.
func NewCatalog(tools ...GenericTool) *Catalog {
	catalog := &Catalog{tools: make(map[string]GenericTool, len(tools))}
	catalog.Add(tools...)
	return catalog
}

// Add registers tools, replacing any tool with the same name.
func (catalog *Catalog) Add(tools ...GenericTool) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	for _, tool := range tools {
		catalog.tools[strings.ToLower(tool.Definition().Name)] = tool
	}
}

// Get retrieves a tool by name (case-insensitive).
func (catalog *Catalog) Get(name string) (GenericTool, bool) {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	tool, exists := catalog.tools[strings.ToLower(name)]
	return tool, exists
}

// Size returns the number of tools in the catalog.
func (catalog *Catalog) Size() int {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return len(catalog.tools)
}

// Clone returns an independent copy of the catalog. Nil clones to empty.
func (catalog *Catalog) Clone() *Catalog {
	if catalog == nil {
		return NewCatalog()
	}
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	clone := NewCatalog()
	for name, tool := range catalog.tools {
		clone.tools[name] = tool
	}
	return clone
}

// Definitions returns the function definitions of every tool, sorted by name.
func (catalog *Catalog) Definitions() []goopenai.FunctionDefinition {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	names := make([]string, 0, len(catalog.tools))
	for name := range catalog.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	definitions := make([]goopenai.FunctionDefinition, 0, len(names))
	for _, name := range names {
		definitions = append(definitions, catalog.tools[name].Definition())
	}
	return definitions
}
