// Package memory provides an in-process Notifier for local runs and tests.
package memory

import (
	"context"
	"sync"
)

// Notifier records notified content item IDs in memory.
type Notifier struct {
	mu  sync.Mutex
	ids []string
}

// New constructs an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// NotifyContentReady implements scan.Notifier.
func (n *Notifier) NotifyContentReady(_ context.Context, contentItemID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, contentItemID)
	return nil
}

// Notified returns the content item IDs seen so far, in order.
func (n *Notifier) Notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ids...)
}
