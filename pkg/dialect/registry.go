package dialect

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dialect registry, keyed by lower-case name. byExt maps a claimed source
// extension to the dialect name.
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	byExt      = make(map[string]string)
)

// ErrDialectRequired is returned when no dialect is named and none claims
// the source extension.
var ErrDialectRequired = errors.New("dialect is required")

// Get returns a dialect by name, case-insensitively.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Register adds d to the global registry. Dialect packages call it from
// init(). It panics when another dialect already claims one of d's
// extensions; re-registering the same name replaces the earlier entry.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()

	name := strings.ToLower(d.Name)
	for _, ext := range d.Extensions {
		ext = strings.ToLower(ext)
		if owner, ok := byExt[ext]; ok && owner != name {
			panic(fmt.Sprintf("dialect: extension %s already claimed by %s", ext, owner))
		}
	}
	if old, ok := dialects[name]; ok {
		for _, ext := range old.Extensions {
			delete(byExt, strings.ToLower(ext))
		}
	}
	for _, ext := range d.Extensions {
		byExt[strings.ToLower(ext)] = name
	}
	dialects[name] = d
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath returns the dialect claiming the file extension of path.
func ForPath(path string) (*Dialect, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	name, ok := byExt[ext]
	if !ok {
		return nil, false
	}
	return dialects[name], true
}
