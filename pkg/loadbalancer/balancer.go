package loadbalancer

import (
	"slices"
	"strings"
	"sync"
)

// LoadBalancer hands out base URLs round-robin.
type LoadBalancer struct {
	servers []string
	mu      sync.Mutex
	current int
}

func NewLoadBalancer(servers []string) *LoadBalancer {
	clean := make([]string, 0, len(servers))
	for _, s := range servers {
		if s = strings.TrimRight(strings.TrimSpace(s), "/"); s != "" {
			clean = append(clean, s)
		}
	}
	return &LoadBalancer{
		servers: clean,
		current: 0,
	}
}

// GetNextServer returns the next base URL, or "" when none are configured.
func (lb *LoadBalancer) GetNextServer() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.servers) == 0 {
		return ""
	}
	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}

func (lb *LoadBalancer) Servers() []string {
	return slices.Clone(lb.servers)
}
