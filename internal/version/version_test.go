package version

import (
	"bytes"
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = prev })
}

func withStamp(t *testing.T, version, commit string) {
	t.Helper()
	pv, pc := Version, Commit
	Version, Commit = version, commit
	t.Cleanup(func() { Version, Commit = pv, pc })
}

func TestResolveFromBuildInfo(t *testing.T) {
	withStamp(t, "", "")
	withBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Resolve()
	if info.Version != "dev" {
		t.Fatalf("version: got %q", info.Version)
	}
	if info.GoVersion != "go1.26.0" {
		t.Fatalf("go version: got %q", info.GoVersion)
	}
	if got := String(); got != "dev (0123456789ab, modified)" {
		t.Fatalf("string: got %q", got)
	}
}

func TestLdflagsWin(t *testing.T) {
	withStamp(t, "v1.2.3", "abc")
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.0.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	if got := String(); got != "v1.2.3 (abc)" {
		t.Fatalf("string: got %q", got)
	}
}

func TestNoBuildInfo(t *testing.T) {
	withStamp(t, "", "")
	withBuildInfo(t, nil)
	if got := String(); got != "dev" {
		t.Fatalf("string: got %q", got)
	}
}

func TestPrint(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "abc", Modified: true, GoVersion: "go1.26.0"}

	var buf bytes.Buffer
	if err := info.Print(&buf); err != nil {
		t.Fatalf("print: %v", err)
	}
	want := "version:    v1.0.0\ncommit:     abc (modified)\ngo:         go1.26.0\n"
	if buf.String() != want {
		t.Fatalf("print: got %q want %q", buf.String(), want)
	}
}
