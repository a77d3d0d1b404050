package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phoreproject/beaconcore/beacon/config"
)

func TestCycleStartSlot(t *testing.T) {
	c := config.MainNetConfig

	if c.CycleStartSlot(130) != 128 {
		t.Fatalf("expected cycle start 128, got %d", c.CycleStartSlot(130))
	}

	if c.CycleStartSlot(64) != 64 {
		t.Fatalf("expected cycle start 64, got %d", c.CycleStartSlot(64))
	}
}

func TestNextAssignedSlot(t *testing.T) {
	c := config.MainNetConfig

	if s := c.NextAssignedSlot(70, 10); s != 74 {
		t.Fatalf("expected slot 74, got %d", s)
	}

	if s := c.NextAssignedSlot(70, 6); s != 134 {
		t.Fatalf("expected slot 134, got %d", s)
	}

	if s := c.NextAssignedSlot(70, 2); s != 130 {
		t.Fatalf("expected slot 130, got %d", s)
	}
}

func TestSlotTiming(t *testing.T) {
	c := config.MainNetConfig
	genesis := time.Unix(1000000, 0)

	start := c.SlotStartTime(10, genesis)
	if !start.Equal(genesis.Add(80 * time.Second)) {
		t.Fatalf("unexpected start time %s", start)
	}

	if slot := c.SlotAt(start.Add(7*time.Second), genesis); slot != 10 {
		t.Fatalf("expected slot 10, got %d", slot)
	}

	if slot := c.SlotAt(genesis.Add(-time.Second), genesis); slot != 0 {
		t.Fatalf("expected slot 0 before genesis, got %d", slot)
	}
}

func TestGetBaseDirectory(t *testing.T) {
	dir, err := config.GetBaseDirectory("regtest")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(dir, "-regtest") {
		t.Fatalf("expected network suffix in %s", dir)
	}
}

func TestLoadConfig(t *testing.T) {
	c, err := config.LoadConfig("regtest", "")
	if err != nil {
		t.Fatal(err)
	}
	if *c != config.RegtestConfig {
		t.Fatal("expected regtest preset")
	}

	path := filepath.Join(t.TempDir(), "consensus.yaml")
	overrides := "cycle_length: 4\nslot_duration: 1s\n"
	if err := os.WriteFile(path, []byte(overrides), 0644); err != nil {
		t.Fatal(err)
	}

	c, err = config.LoadConfig("regtest", path)
	if err != nil {
		t.Fatal(err)
	}
	if c.CycleLength != 4 || c.SlotDuration != time.Second {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.ShardCount != config.RegtestConfig.ShardCount {
		t.Fatal("expected other values from the preset")
	}
	if config.RegtestConfig.CycleLength != 8 {
		t.Fatal("loading overrides modified the preset")
	}

	if _, err := config.LoadConfig("unknown", ""); err == nil {
		t.Fatal("expected unknown network to fail")
	}
}
