// Package infra implements infrastructure concerns (processes, windows,
// accessibility, locking).
package infra

import (
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// processCacheLimit caps the pid-to-name cache; the cache is dropped
// wholesale when it fills.
const processCacheLimit = 256

// ProcessResolverImpl implements domain.ProcessResolver using gopsutil.
// Names are cached per PID because one foreground application produces many
// lookups in a row.
type ProcessResolverImpl struct {
	mu    sync.Mutex
	cache map[int32]string
}

// NewProcessResolver creates a new process resolver.
func NewProcessResolver() domain.ProcessResolver {
	return &ProcessResolverImpl{
		cache: make(map[int32]string, processCacheLimit),
	}
}

// Name returns the executable name for a PID.
func (pr *ProcessResolverImpl) Name(pid int32) (string, error) {
	pr.mu.Lock()
	if name, ok := pr.cache[pid]; ok {
		pr.mu.Unlock()
		return name, nil
	}
	pr.mu.Unlock()

	p, err := process.NewProcess(pid)
	if err != nil {
		return "", err
	}
	name, err := p.Name()
	if err != nil {
		return "", err
	}

	pr.mu.Lock()
	if len(pr.cache) >= processCacheLimit {
		pr.cache = make(map[int32]string, processCacheLimit)
	}
	pr.cache[pid] = name
	pr.mu.Unlock()

	return name, nil
}

// Alive reports whether a PID exists and is running.
func (pr *ProcessResolverImpl) Alive(pid int32) bool {
	alive, err := process.PidExists(pid)
	return err == nil && alive
}

// Ensure ProcessResolverImpl implements domain.ProcessResolver.
var _ domain.ProcessResolver = (*ProcessResolverImpl)(nil)
