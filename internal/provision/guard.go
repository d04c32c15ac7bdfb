package provision

import "sync"

// inflightGuard rejects a second install attempt for a device that is
// already being provisioned. The helper agent is assumed to serialize
// installs on its side; this guard keeps the server from racing requests
// against it for the same device.
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{} // device IP
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

// tryAcquire marks a device as being provisioned. Returns false when an
// attempt for that device is already in flight.
func (g *inflightGuard) tryAcquire(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[ip]; busy {
		return false
	}
	g.active[ip] = struct{}{}
	return true
}

func (g *inflightGuard) release(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, ip)
}
