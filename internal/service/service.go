// Package service wires the biz layer to the HTTP transport.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewContentService,
	NewRecoveryService,
)
