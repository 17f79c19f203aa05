package config

import (
	"os"
	"testing"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.ListenAddr != ":9469" {
		t.Errorf("ListenAddr default: got %q", c.ListenAddr)
	}
	if c.FrameIndexPath != "./upipe-framer.db" {
		t.Errorf("FrameIndexPath default: got %q", c.FrameIndexPath)
	}
	if c.MountPoint != "" {
		t.Errorf("MountPoint default: got %q", c.MountPoint)
	}
	if c.InsertSequence {
		t.Error("InsertSequence should default false")
	}
	if c.WireCompress {
		t.Error("WireCompress should default false")
	}
	if c.WarnLogPerSecond != 20 {
		t.Errorf("WarnLogPerSecond default: got %d", c.WarnLogPerSecond)
	}
}

func TestLoad_overrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("UPIPE_FRAMER_LISTEN_ADDR", ":8080")
	os.Setenv("UPIPE_FRAMER_FRAME_INDEX_PATH", "/tmp/index.db")
	os.Setenv("UPIPE_FRAMER_MOUNT_POINT", "/mnt/frames")
	os.Setenv("UPIPE_FRAMER_INSERT_SEQUENCE", "true")
	os.Setenv("UPIPE_FRAMER_WIRE_COMPRESS", "1")
	os.Setenv("UPIPE_FRAMER_WARN_LOG_PER_SECOND", "5")
	c := Load()
	if c.ListenAddr != ":8080" {
		t.Errorf("ListenAddr: got %q", c.ListenAddr)
	}
	if c.FrameIndexPath != "/tmp/index.db" {
		t.Errorf("FrameIndexPath: got %q", c.FrameIndexPath)
	}
	if c.MountPoint != "/mnt/frames" {
		t.Errorf("MountPoint: got %q", c.MountPoint)
	}
	if !c.InsertSequence {
		t.Error("InsertSequence should be true")
	}
	if !c.WireCompress {
		t.Error("WireCompress should be true")
	}
	if c.WarnLogPerSecond != 5 {
		t.Errorf("WarnLogPerSecond: got %d", c.WarnLogPerSecond)
	}
}

func TestLoad_warnLogPerSecondInvalidFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("UPIPE_FRAMER_WARN_LOG_PER_SECOND", "-3")
	c := Load()
	if c.WarnLogPerSecond != 20 {
		t.Errorf("WarnLogPerSecond for -3: got %d, want fallback 20", c.WarnLogPerSecond)
	}
}

func TestLoad_booleanVariants(t *testing.T) {
	for _, env := range []string{"1", "true", "TRUE", "yes"} {
		os.Clearenv()
		os.Setenv("UPIPE_FRAMER_INSERT_SEQUENCE", env)
		c := Load()
		if !c.InsertSequence {
			t.Errorf("InsertSequence for %q should be true", env)
		}
	}
	for _, env := range []string{"0", "false", "no"} {
		os.Clearenv()
		os.Setenv("UPIPE_FRAMER_INSERT_SEQUENCE", env)
		c := Load()
		if c.InsertSequence {
			t.Errorf("InsertSequence for %q should be false", env)
		}
	}
}
