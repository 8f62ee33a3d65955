package resource

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"EstateDesk/internal/logger"
	"EstateDesk/internal/serviceiface"
)

// Pinger is a shared resource with a liveness check, such as the CMS client
// or a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health is the last heartbeat result of one resource.
type Health struct {
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

type ResourceManager struct {
	resources         map[string]interface{}
	health            map[string]Health
	mu                sync.RWMutex
	stopChan          chan struct{}
	stopOnce          sync.Once
	heartbeatInterval time.Duration
	pingTimeout       time.Duration
	log               *slog.Logger
}

func NewResourceManagerService(cfg map[string]interface{}) *ResourceManager {
	return &ResourceManager{
		resources:         make(map[string]interface{}),
		health:            make(map[string]Health),
		stopChan:          make(chan struct{}),
		heartbeatInterval: durationOf(cfg["heartbeat_interval"], 30*time.Second),
		pingTimeout:       durationOf(cfg["ping_timeout"], 5*time.Second),
		log:               slog.Default().With("component", "resourcemanager"),
	}
}

var _ serviceiface.Service = (*ResourceManager)(nil)

// durationOf accepts "30s" style strings or a number of seconds.
func durationOf(val interface{}, def time.Duration) time.Duration {
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	}
	return def
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	logger.Audit("ResourceManager started", "interval", rm.heartbeatInterval)
	rm.Heartbeat()
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	rm.stopOnce.Do(func() { close(rm.stopChan) })
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			rm.Heartbeat()
		}
	}
}

// Heartbeat pings every resource that implements Pinger and records the
// result. Transitions between healthy and failing are audited.
func (rm *ResourceManager) Heartbeat() {
	rm.mu.RLock()
	targets := make(map[string]Pinger)
	for key, r := range rm.resources {
		if p, ok := r.(Pinger); ok {
			targets[key] = p
		}
	}
	rm.mu.RUnlock()

	for key, p := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), rm.pingTimeout)
		err := p.Ping(ctx)
		cancel()

		h := Health{OK: err == nil, CheckedAt: time.Now()}
		if err != nil {
			h.Error = err.Error()
		}

		rm.mu.Lock()
		prev, seen := rm.health[key]
		if _, still := rm.resources[key]; still {
			rm.health[key] = h
		}
		rm.mu.Unlock()

		switch {
		case err != nil && (!seen || prev.OK):
			logger.Audit("resource unhealthy", "resource", key, "err", err)
		case err == nil && seen && !prev.OK:
			logger.Audit("resource recovered", "resource", key)
		default:
			rm.log.Debug("heartbeat", "resource", key, "ok", h.OK)
		}
	}
}

func (rm *ResourceManager) AddResource(key string, resource interface{}) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.resources[key] = resource
}

func (rm *ResourceManager) GetResource(key string) (interface{}, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	resource, exists := rm.resources[key]
	return resource, exists
}

func (rm *ResourceManager) RemoveResource(key string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.resources, key)
	delete(rm.health, key)
}

func (rm *ResourceManager) ListResources() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	keys := make([]string, 0, len(rm.resources))
	for key := range rm.resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Health returns a copy of the latest heartbeat results.
func (rm *ResourceManager) Health() map[string]Health {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make(map[string]Health, len(rm.health))
	for k, v := range rm.health {
		out[k] = v
	}
	return out
}

// Healthy reports whether every checked resource passed its last ping.
func (rm *ResourceManager) Healthy() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, h := range rm.health {
		if !h.OK {
			return false
		}
	}
	return true
}
