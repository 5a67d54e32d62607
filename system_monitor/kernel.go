package systemmonitor

import (
	"log/slog"
	"regexp"

	"github.com/hashicorp/go-version"
)

var (
	discardFieldsSince = version.Must(version.NewVersion("4.18"))
	flushFieldsSince   = version.Must(version.NewVersion("5.5"))
)

// Which optional /proc/diskstats column groups the running kernel provides.
type diskstatLayout struct {
	discards bool
	flushes  bool
}

var leadingVersion = regexp.MustCompile(`^\d+(\.\d+){0,2}`)

// ParseKernelVersion extracts the numeric part of a kernel release such as "5.15.0-91-generic" or
// "4.18.0-513.el8.x86_64".
func ParseKernelVersion(release string) (*version.Version, error) {
	return version.NewVersion(leadingVersion.FindString(release))
}

// layoutForKernel assumes the newest layout when the release can't be parsed; parseDiskstats never reads past the
// end of a line, so that is safe on older kernels.
func layoutForKernel(release string) diskstatLayout {
	v, err := ParseKernelVersion(release)
	if err != nil {
		slog.Debug("SystemMonitor: unknown kernel release, assuming newest diskstats layout", slog.String("release", release))
		return diskstatLayout{discards: true, flushes: true}
	}
	return diskstatLayout{
		discards: v.GreaterThanOrEqual(discardFieldsSince),
		flushes:  v.GreaterThanOrEqual(flushFieldsSince),
	}
}
