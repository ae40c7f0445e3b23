package buildinfo

// Version is overridden at link time via -ldflags "-X farmd/internal/support/buildinfo.Version=...".
var Version = "dev"
