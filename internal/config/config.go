package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the upipe-framer daemon's settings, populated from
// environment variables prefixed UPIPE_FRAMER_. Call LoadEnvFile(".env")
// before Load() to pre-populate the environment from a file.
type Config struct {
	// ListenAddr serves /metrics (prometheus) and debug endpoints.
	ListenAddr string

	// FrameIndexPath is the sqlite DSN/file the frame index is stored in.
	FrameIndexPath string

	// MountPoint is where framerfs is mounted; empty disables the mount.
	MountPoint string

	// InsertSequence mirrors the framer control flag of the same name:
	// prepend cached sequence headers ahead of sequence-less I frames.
	InsertSequence bool

	// WireCompress selects brotli compression for DICT wire export/import.
	// The upipe-framer binary parses it but archives no dictionaries, so
	// the setting has no effect there.
	WireCompress bool

	// WarnLogPerSecond bounds how many structural-error log lines the
	// framer emits per second for one stream.
	WarnLogPerSecond int
}

// Load reads Config from the environment.
func Load() *Config {
	c := &Config{
		ListenAddr:       getEnv("UPIPE_FRAMER_LISTEN_ADDR", ":9469"),
		FrameIndexPath:   getEnv("UPIPE_FRAMER_FRAME_INDEX_PATH", "./upipe-framer.db"),
		MountPoint:       os.Getenv("UPIPE_FRAMER_MOUNT_POINT"),
		InsertSequence:   getEnvBool("UPIPE_FRAMER_INSERT_SEQUENCE", false),
		WireCompress:     getEnvBool("UPIPE_FRAMER_WIRE_COMPRESS", false),
		WarnLogPerSecond: getEnvInt("UPIPE_FRAMER_WARN_LOG_PER_SECOND", 20),
	}
	if c.WarnLogPerSecond <= 0 {
		c.WarnLogPerSecond = 20
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}
