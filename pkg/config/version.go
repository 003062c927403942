package config

// Version is set at build time with -ldflags "-X github.com/edgeflare/dbrest/pkg/config.Version=..."
var Version = "dev"
