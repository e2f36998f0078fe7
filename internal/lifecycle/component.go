// Package lifecycle starts and stops long-lived components in dependency
// order.
package lifecycle

import "context"

// Component is anything the manager starts and stops. Start must be safe
// to call before dependents run; Stop must respect the context deadline.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}
