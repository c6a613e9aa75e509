package version

import "runtime"

// Name identifies this service in /version and in published change events.
const Name = "rtsp-overlay-api"

// Build information, injected via ldflags at build time:
//
//	-ldflags "-X github.com/pscheid92/rtspoverlay/internal/platform/version.Version=v1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
