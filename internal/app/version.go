package app

// Version is the semantic version of mcpbridge, set at build time via -ldflags.
var Version = "dev"

// Build is the git commit hash or build identifier, set at build time via -ldflags.
var Build = "unknown"
