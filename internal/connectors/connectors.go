// Package connectors holds the contract shared by chat platform
// connectors run by the runtime.
package connectors

import "context"

type Connector interface {
	Name() string
	// Start blocks until ctx is cancelled. A connector without credentials
	// stays idle instead of failing the runtime.
	Start(ctx context.Context) error
}
