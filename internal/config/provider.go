package config

import "github.com/google/wire"

// ProviderSet exposes configuration to the wire graph.
var ProviderSet = wire.NewSet(Load)
