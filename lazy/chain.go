package lazy

import (
	"context"
	"slices"
	"strings"
)

// chainKey scopes load chains to one registry.
type chainKey struct{ r *Registry }

// loadChain is the stack of names being loaded on one call path.
type loadChain struct {
	name   string
	parent *loadChain
}

func (r *Registry) chainFrom(ctx context.Context) *loadChain {
	c, _ := ctx.Value(chainKey{r}).(*loadChain)
	return c
}

func (r *Registry) withLoading(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, chainKey{r}, &loadChain{name: name, parent: r.chainFrom(ctx)})
}

func (c *loadChain) contains(name string) bool {
	for ; c != nil; c = c.parent {
		if c.name == name {
			return true
		}
	}
	return false
}

// path renders the chain outermost first, followed by next.
func (c *loadChain) path(next string) string {
	var names []string
	for ; c != nil; c = c.parent {
		names = append(names, c.name)
	}
	slices.Reverse(names)
	return strings.Join(append(names, next), " -> ")
}
