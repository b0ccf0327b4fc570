package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Cache maps an extraction key to the contract built for it. The SQLite
// store in internal/state satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (*core.ContractSpec, bool, error)
	Put(ctx context.Context, key, dialect, sourcePath string, c *core.ContractSpec) error
}

// MemoryCache is a Cache held in process memory.
type MemoryCache struct {
	mu        sync.RWMutex
	contracts map[string]*core.ContractSpec
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{contracts: make(map[string]*core.ContractSpec)}
}

// Get returns the contract stored under key.
func (m *MemoryCache) Get(_ context.Context, key string) (*core.ContractSpec, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[key]
	return c, ok, nil
}

// Put stores c under key.
func (m *MemoryCache) Put(_ context.Context, key, _, _ string, c *core.ContractSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[key] = c
	return nil
}

// Len returns the number of cached contracts.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contracts)
}

// Key digests the source content together with every option that changes
// the extracted layout. Structure rules are attached after the cache and do
// not take part.
func Key(source []byte, dialect string, opts Options) string {
	h := sha256.New()
	_, _ = h.Write(source)
	_, _ = io.WriteString(h, "\x00")

	names := sortedUpper(opts.Names)
	prefixes := sortedUpper(opts.Prefixes)
	_, _ = fmt.Fprintf(h, "dialect=%s\nencoding=%s\nprogram=%s\nstrict=%t\npreserve=%t\nnames=%s\nprefixes=%s\n",
		dialect, strings.ToLower(opts.SourceEncoding), opts.Program, opts.Strict, opts.PreserveNames,
		strings.Join(names, ","), strings.Join(prefixes, ","))
	return hex.EncodeToString(h.Sum(nil))
}

func sortedUpper(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
