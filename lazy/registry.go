package lazy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/coursecache/observe"
)

// Loader builds a resource. It receives a context carrying the current load
// chain and must pass it, or a context derived from it, to any nested Get.
// A nested Get with context.Background() on a name already loading on the
// same chain blocks forever.
type Loader func(ctx context.Context) (any, error)

type resource struct {
	loader Loader
	state  State
	value  any
	err    error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry events.
func WithLogger(l observe.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMiddleware instruments every loader invocation.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(r *Registry) { r.mw = mw }
}

// WithPreloadConcurrency bounds how many loads Preload runs at once.
// Default: 1
func WithPreloadConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.preloadLimit = n
		}
	}
}

// Registry holds named loaders and the values they produce.
//
// Contract:
// - Concurrency: safe for concurrent use; at most one load runs per name.
// - Errors: structural errors (ErrCircularLoad, ErrMissingLoader) are always
//   returned to the caller, never swallowed.
type Registry struct {
	mu        sync.Mutex
	resources map[string]*resource
	// waits[a][b] counts Gets for b issued from inside a's loader.
	waits map[string]map[string]int

	group        singleflight.Group
	logger       observe.Logger
	mw           *observe.Middleware
	preloadLimit int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		resources:    make(map[string]*resource),
		waits:        make(map[string]map[string]int),
		logger:       observe.NopLogger(),
		preloadLimit: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs loader under name. Registering a name twice fails with
// ErrAlreadyRegistered; use Unregister first to replace a loader.
func (r *Registry) Register(name string, loader Loader) error {
	name = strings.TrimSpace(name)
	if name == "" || loader == nil {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	r.resources[name] = &resource{loader: loader, state: StateRegistered}
	return nil
}

// Unregister removes name and any loaded value. A load already in flight
// completes but its result is discarded.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[name]; !ok {
		return false
	}
	delete(r.resources, name)
	return true
}

// Get returns the value for name, running its loader on first use or after
// a failed load.
//
// A caller whose ctx is canceled stops waiting, but the load itself keeps
// running for any other callers sharing it.
func (r *Registry) Get(ctx context.Context, name string) (any, error) {
	chain := r.chainFrom(ctx)
	if chain.contains(name) {
		return nil, r.circular(ctx, chain, name)
	}

	r.mu.Lock()
	res, ok := r.resources[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrMissingLoader, name)
	}
	if res.state == StateLoaded {
		v := res.value
		r.mu.Unlock()
		return v, nil
	}
	if chain != nil {
		// Another goroutine may be loading name while waiting, through
		// its own chain, on something this chain is loading.
		if r.reachesChainLocked(name, chain) {
			r.mu.Unlock()
			return nil, r.circular(ctx, chain, name)
		}
		r.addWaitLocked(chain.name, name)
		defer r.removeWait(chain.name, name)
	}
	r.mu.Unlock()

	ch := r.group.DoChan(name, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), name)
	})
	select {
	case out := <-ch:
		return out.Val, out.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetAs is Get with a type assertion on the loaded value.
func GetAs[T any](ctx context.Context, r *Registry, name string) (T, error) {
	var zero T
	v, err := r.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T, want %T", ErrWrongType, name, v, zero)
	}
	return out, nil
}

func (r *Registry) load(ctx context.Context, name string) (any, error) {
	r.mu.Lock()
	res, ok := r.resources[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrMissingLoader, name)
	}
	if res.state == StateLoaded {
		v := res.value
		r.mu.Unlock()
		return v, nil
	}
	res.state = StateLoading
	loader := res.loader
	r.mu.Unlock()

	meta := observe.OpMeta{Kind: observe.KindLazy, Name: name}
	value, err := r.mw.Run(r.withLoading(ctx, name), meta, func(ctx context.Context) (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrLoaderPanic, p)
			}
		}()
		return loader(ctx)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		res.state = StateFailed
		res.value = nil
		res.err = err
		r.logger.Warn(ctx, "resource load failed", observe.F("resource", name), observe.F("error", err))
		return nil, fmt.Errorf("lazy: load %q: %w", name, err)
	}
	res.state = StateLoaded
	res.value = value
	res.err = nil
	return value, nil
}

func (r *Registry) circular(ctx context.Context, chain *loadChain, name string) error {
	path := chain.path(name)
	r.logger.Error(ctx, "circular load detected", observe.F("resource", name), observe.F("chain", path))
	return fmt.Errorf("%w: %s", ErrCircularLoad, path)
}

// reachesChainLocked reports whether name, through loads it is waiting on,
// depends on any name in chain.
func (r *Registry) reachesChainLocked(name string, chain *loadChain) bool {
	seen := map[string]bool{}
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if chain.contains(n) {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for next := range r.waits[n] {
			stack = append(stack, next)
		}
	}
	return false
}

func (r *Registry) addWaitLocked(from, to string) {
	if r.waits[from] == nil {
		r.waits[from] = make(map[string]int)
	}
	r.waits[from][to]++
}

func (r *Registry) removeWait(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.waits[from][to]--
	if r.waits[from][to] <= 0 {
		delete(r.waits[from], to)
	}
	if len(r.waits[from]) == 0 {
		delete(r.waits, from)
	}
}

// IsLoaded reports whether name currently holds a value.
func (r *Registry) IsLoaded(name string) bool {
	return r.State(name) == StateLoaded
}

// State returns the lifecycle state of name.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return StateUnregistered
	}
	return res.state
}

// LastError returns the error from the most recent failed load of name, or
// nil if the name is not in StateFailed.
func (r *Registry) LastError(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok || res.state != StateFailed {
		return nil
	}
	return res.err
}

// Unload drops the value for name and keeps its loader, so the next Get
// loads it again. It reports whether a value was dropped.
func (r *Registry) Unload(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok || res.state != StateLoaded {
		return false
	}
	res.state = StateRegistered
	res.value = nil
	return true
}

// Preload loads every name and reports each outcome; a nil error means the
// value is loaded. It never fails as a whole.
func (r *Registry) Preload(ctx context.Context, names []string) map[string]error {
	results := make(map[string]error, len(names))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.preloadLimit)
	for _, name := range names {
		g.Go(func() error {
			_, err := r.Get(ctx, name)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
