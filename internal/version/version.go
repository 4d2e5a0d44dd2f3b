// Package version reports build metadata. Values stamped with -ldflags win;
// otherwise the module build info embedded by the Go toolchain is used.
package version

import (
	"fmt"
	"io"
	"runtime/debug"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	Modified  bool
}

// readBuildInfo is a seam for tests.
var readBuildInfo = debug.ReadBuildInfo

func Resolve() Info {
	resolved := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}

	if bi, ok := readBuildInfo(); ok {
		resolved.GoVersion = bi.GoVersion
		if resolved.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			resolved.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if resolved.Commit == "" {
					resolved.Commit = s.Value
				}
			case "vcs.time":
				if resolved.BuildTime == "" {
					resolved.BuildTime = s.Value
				}
			case "vcs.modified":
				resolved.Modified = s.Value == "true"
			}
		}
	}

	if resolved.Version == "" {
		resolved.Version = "dev"
	}
	return resolved
}

// Fields lists the known fields as label/value pairs in display order.
func (i Info) Fields() [][2]string {
	fields := [][2]string{{"version", i.Version}}
	if i.Commit != "" {
		commit := i.Commit
		if i.Modified {
			commit += " (modified)"
		}
		fields = append(fields, [2]string{"commit", commit})
	}
	if i.BuildTime != "" {
		fields = append(fields, [2]string{"build time", i.BuildTime})
	}
	if i.GoVersion != "" {
		fields = append(fields, [2]string{"go", i.GoVersion})
	}
	return fields
}

// Print writes one aligned "label: value" line per field.
func (i Info) Print(w io.Writer) error {
	for _, f := range i.Fields() {
		if _, err := fmt.Fprintf(w, "%-11s %s\n", f[0]+":", f[1]); err != nil {
			return err
		}
	}
	return nil
}

func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	s := info.Version + " (" + shortCommit(info.Commit)
	if info.Modified {
		s += ", modified"
	}
	return s + ")"
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
