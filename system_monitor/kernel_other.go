//go:build !linux

package systemmonitor

// KernelRelease is only meaningful where /proc/diskstats exists.
func KernelRelease() string {
	return ""
}
