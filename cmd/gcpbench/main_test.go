package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	contents := "dims: \"[10,10,10]\"\nnnz: 50\nnc: 3\niters: 5\nseed: 7\nmttkrp_method: Perm\nmttkrp_tile_size: 16\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.Dims != "[10,10,10]" || cfg.NNZ != 50 || cfg.NC != 3 || cfg.Iters != 5 || cfg.Seed != 7 || cfg.MTTKRPMethod != "Perm" || cfg.MTTKRPTileSize != 16 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFileConfigRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("bogus_field: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadFileConfig(path); err == nil {
		t.Fatal("expected strict decode to reject an unknown field")
	}
}

func TestApplyFileConfigExplicitFlagsWin(t *testing.T) {
	o := options{dims: "[5,5,5]"}
	cfg := fileConfig{Dims: "[10,10,10]", NC: 4}
	applyFileConfig(&o, cfg, func(name string) bool { return name == "dims" })
	if o.dims != "[5,5,5]" {
		t.Fatalf("dims should stay the explicitly-flagged value, got %q", o.dims)
	}
	if o.nc != 4 {
		t.Fatalf("nc should be preset from config, got %d", o.nc)
	}
}
