package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type route struct {
	n   Notifier
	min Severity
}

// accepts reports whether s meets the route minimum. Unranked alerts are
// treated as info.
func (rt route) accepts(s Severity) bool {
	return max(s.Rank(), 1) >= rt.min.Rank()
}

// Registry fans alerts out to named notifiers. Each notifier may carry a
// minimum severity; alerts ranked below it are not sent there.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Register adds n receiving every severity.
func (r *Registry) Register(n Notifier) error {
	return r.RegisterFor(n, SeverityInfo)
}

// RegisterFor adds n receiving alerts at min or above. Names are unique.
func (r *Registry) RegisterFor(n Notifier, min Severity) error {
	if !min.Valid() {
		return fmt.Errorf("notifier %s: unknown severity %q", n.Name(), min)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.routes[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}
	r.routes[name] = route{n: n, min: min}
	return nil
}

func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[name]
	if !ok {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return rt.n, nil
}

// GetAll returns the notifiers ordered by name.
func (r *Registry) GetAll() []Notifier {
	routes := r.sorted()
	out := make([]Notifier, len(routes))
	for i, rt := range routes {
		out[i] = rt.n
	}
	return out
}

func (r *Registry) sorted() []route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]route, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n.Name() < out[j].n.Name() })
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// fanOut calls send for every route concurrently and collects failures
// by notifier name.
func (r *Registry) fanOut(routes []route, send func(Notifier) error) map[string]error {
	errs := make(map[string]error)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, rt := range routes {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := send(n); err != nil {
				mu.Lock()
				errs[n.Name()] = err
				mu.Unlock()
			}
		}(rt.n)
	}
	wg.Wait()
	return errs
}

// NotifyAll sends alert to every notifier whose minimum it meets and
// returns the failures by notifier name.
func (r *Registry) NotifyAll(ctx context.Context, alert Alert) map[string]error {
	var routes []route
	for _, rt := range r.sorted() {
		if rt.accepts(alert.Severity) {
			routes = append(routes, rt)
		}
	}
	return r.fanOut(routes, func(n Notifier) error { return n.Send(ctx, alert) })
}

// NotifyAllBatch sends each notifier the alerts it accepts as one digest.
func (r *Registry) NotifyAllBatch(ctx context.Context, alerts []Alert) map[string]error {
	if len(alerts) == 0 {
		return map[string]error{}
	}
	batches := make(map[string][]Alert)
	var routes []route
	for _, rt := range r.sorted() {
		var keep []Alert
		for _, a := range alerts {
			if rt.accepts(a.Severity) {
				keep = append(keep, a)
			}
		}
		if len(keep) > 0 {
			batches[rt.n.Name()] = keep
			routes = append(routes, rt)
		}
	}
	return r.fanOut(routes, func(n Notifier) error { return n.SendBatch(ctx, batches[n.Name()]) })
}
