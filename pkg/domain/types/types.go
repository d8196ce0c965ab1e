package types

// Version is the application version, overridden at build time via
// -ldflags "-X github.com/ccdrover/ccdrover/pkg/domain/types.Version=..."
var Version = "dev"

// AppName is used for health responses and user agent strings
const AppName = "ccdrover"
