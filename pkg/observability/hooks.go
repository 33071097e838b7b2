// Package observability provides hooks for instrumenting setup runs.
//
// The package uses a simple hooks pattern: a hook interface per event
// category, a no-op default, and a registry populated by main at startup.
// Libraries call the registered hooks to emit events without depending on
// any metrics or tracing backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSetupHooks(&myHooks{})
//	    // ... run application
//	}
//
// The orchestrator emits events around each stage:
//
//	observability.Setup().OnAcquireStart(ctx, kind)
//	// ... acquisition ...
//	observability.Setup().OnAcquireComplete(ctx, kind, files, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// SetupHooks receives events from the setup orchestrator.
type SetupHooks interface {
	// Validation events
	OnValidateStart(ctx context.Context, sourceKind string)
	OnValidateComplete(ctx context.Context, sourceKind string, err error)

	// Acquisition events
	OnAcquireStart(ctx context.Context, sourceKind string)
	OnAcquireComplete(ctx context.Context, sourceKind string, files int, duration time.Duration, err error)

	// Dependency-install events, one pair per manager invocation
	OnInstallStart(ctx context.Context, manager string)
	OnInstallComplete(ctx context.Context, manager string, duration time.Duration, err error)
}

// NoopSetupHooks is a no-op implementation of SetupHooks.
type NoopSetupHooks struct{}

func (NoopSetupHooks) OnValidateStart(context.Context, string)                              {}
func (NoopSetupHooks) OnValidateComplete(context.Context, string, error)                    {}
func (NoopSetupHooks) OnAcquireStart(context.Context, string)                               {}
func (NoopSetupHooks) OnAcquireComplete(context.Context, string, int, time.Duration, error) {}
func (NoopSetupHooks) OnInstallStart(context.Context, string)                               {}
func (NoopSetupHooks) OnInstallComplete(context.Context, string, time.Duration, error)      {}

var (
	setupHooks SetupHooks = NoopSetupHooks{}
	hooksMu    sync.RWMutex
)

// SetSetupHooks registers custom setup hooks.
// This should be called once at application startup before any setup runs.
func SetSetupHooks(h SetupHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		setupHooks = h
	}
}

// Setup returns the registered setup hooks.
func Setup() SetupHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return setupHooks
}

// Reset restores the no-op default. Primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	setupHooks = NoopSetupHooks{}
}
