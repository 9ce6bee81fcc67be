// Package environment collects environment variables from several sources
// and renders them as the KEY=value slice container configs expect.
package environment

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

type Env struct {
	mu sync.Mutex
	m  map[string]string
}

func New() *Env {
	return &Env{m: make(map[string]string)}
}

func (e *Env) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m[normalize(key)] = value
}

func (e *Env) AddMap(src map[string]string) {
	if src == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range src {
		e.m[normalize(k)] = v
	}
}

// Passthrough copies the named variables from the current process
// environment, skipping unset ones.
func (e *Env) Passthrough(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			e.m[normalize(name)] = value
		}
	}
}

// ToSlice renders the variables sorted by key, so the produced container
// config is deterministic.
func (e *Env) ToSlice() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	env := make([]string, 0, len(e.m))
	for k, v := range e.m {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

func normalize(key string) string {
	key = strings.TrimSpace(key)
	return strings.ReplaceAll(key, "-", "_")
}
