package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/dropterm"

// buildVersion is set via -ldflags "-X pkt.systems/dropterm/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version   string
	Module    string
	Revision  string
	Modified  bool
	GoVersion string
}

// String renders info as a single line for `dropterm version`.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", i.Module, i.Version)
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		fmt.Fprintf(&b, " (%s", rev)
		if i.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " %s", i.GoVersion)
	return b.String()
}

// Current returns the best available version string.
func Current() string {
	return Read().Version
}

// Read collects version details from the linker flag and build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) Info {
	out := Info{
		Version:   "v0.0.0-unknown",
		Module:    defaultModule,
		GoVersion: runtime.Version(),
	}
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		out.Revision, out.Modified, _ = vcsSettings(info)
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = v
		} else if v := pseudoVersion(info); v != "" {
			out.Version = v
		}
	}
	if v := strings.TrimSpace(buildVersion); v != "" {
		out.Version = v
	}
	out.Version = strings.TrimSuffix(out.Version, "+dirty")
	return out
}

func vcsSettings(info *debug.BuildInfo) (revision string, modified bool, vcsTime string) {
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified, vcsTime
}

// pseudoVersion derives a Go pseudo-version from VCS stamps.
func pseudoVersion(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	revision, _, vcsTime := vcsSettings(info)
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	rev := revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
}
