package config

import (
	"memmap/util/env"
	"os"
)

const (
	// RetroArch's default network_cmd_port:
	defaultUDPAddr  = "localhost:55355"
	defaultWSAddr   = "localhost:8090"
	defaultGRPCAddr = "localhost:8191"
)

// Settings configures the memmapd daemon.
type Settings struct {
	// MapPath is the memory map to serve (MEMMAPD_MAP).
	MapPath string
	// DumpPath, when set, receives the registered table in protobuf wire
	// format (MEMMAPD_DUMP).
	DumpPath string
	// LogPath is the log file; empty logs to stderr only (MEMMAPD_LOG).
	LogPath string

	UDPAddr     string // MEMMAPD_UDP
	UDPDisabled bool   // MEMMAPD_UDP_DISABLE
	WSAddr      string // MEMMAPD_WS
	WSDisabled  bool   // MEMMAPD_WS_DISABLE
	GRPCAddr    string // MEMMAPD_GRPC
}

// FromEnv reads Settings from the environment, falling back to defaults.
func FromEnv() Settings {
	return Settings{
		MapPath:     os.Getenv("MEMMAPD_MAP"),
		DumpPath:    os.Getenv("MEMMAPD_DUMP"),
		LogPath:     os.Getenv("MEMMAPD_LOG"),
		UDPAddr:     env.GetOrDefault("MEMMAPD_UDP", defaultUDPAddr),
		UDPDisabled: env.IsTruthy(env.GetOrDefault("MEMMAPD_UDP_DISABLE", "0")),
		WSAddr:      env.GetOrDefault("MEMMAPD_WS", defaultWSAddr),
		WSDisabled:  env.IsTruthy(env.GetOrDefault("MEMMAPD_WS_DISABLE", "0")),
		GRPCAddr:    env.GetOrDefault("MEMMAPD_GRPC", defaultGRPCAddr),
	}
}
