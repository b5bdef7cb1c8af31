package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	o, exit, err := parseFlags([]string{"-log-level", "debug", "-no-cache", "-script", "s.json"}, &out)
	if err != nil || exit {
		t.Fatalf("parseFlags: exit=%v err=%v", exit, err)
	}
	if o.logLevel != "debug" || !o.noCache || o.script != "s.json" {
		t.Errorf("options = %+v", o)
	}
}

func TestParseFlags_Help(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := parseFlags([]string{"-h"}, &out)
	if err != nil || !exit {
		t.Fatalf("help: exit=%v err=%v", exit, err)
	}
	if !bytes.Contains(out.Bytes(), []byte("Usage:")) {
		t.Errorf("usage not printed: %q", out.String())
	}
}

func TestParseFlags_Errors(t *testing.T) {
	for _, args := range [][]string{{"-bogus"}, {"extra"}} {
		var out bytes.Buffer
		_, _, err := parseFlags(args, &out)
		var ee *exitError
		if !errors.As(err, &ee) || ee.code != 2 {
			t.Errorf("parseFlags(%v) = %v, want exit code 2", args, err)
		}
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spinebox.hcl")
	src := "log_level = \"warn\"\ncache_path = \"from-file.db\"\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(options{configPath: path, logFormat: "json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "json" || cfg.CachePath != "from-file.db" {
		t.Errorf("config = %+v", cfg)
	}

	cfg, err = loadConfig(options{configPath: path, cachePath: "flag.db", noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CachePath != "" {
		t.Errorf("-no-cache left cache path %q", cfg.CachePath)
	}
}
