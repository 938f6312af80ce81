// Package subs provides the in-process change-subscription registry shared
// by the document store engines.
package subs

import (
	"github.com/crmvault/crmvault/lib/kv"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// entry pairs a watched key with its callback.
type entry struct {
	key string
	fn  kv.ChangeFunc
}

// Registry holds the active subscriptions of one engine instance.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	subs *xsync.MapOf[string, entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: xsync.NewMapOf[string, entry](),
	}
}

// Add registers a callback for a key and returns the subscription token.
func (r *Registry) Add(key string, fn kv.ChangeFunc) string {
	token := uuid.NewString()
	r.subs.Store(token, entry{key: key, fn: fn})
	return token
}

// Remove drops a subscription. Unknown tokens are a no-op.
func (r *Registry) Remove(token string) {
	r.subs.Delete(token)
}

// Notify fans a change out to all subscriptions watching the key.
// Callbacks run in their own goroutines: delivery is best-effort and a slow
// or panicking listener never blocks or fails the mutating caller.
func (r *Registry) Notify(key string) {
	r.subs.Range(func(_ string, e entry) bool {
		if e.key == key {
			go func(fn kv.ChangeFunc) {
				defer func() { _ = recover() }()
				fn(key)
			}(e.fn)
		}
		return true
	})
}
