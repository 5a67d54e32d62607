package systemmonitor

import "golang.org/x/sys/unix"

// KernelRelease returns the running kernel's release string, e.g. "6.8.0-45-generic".
func KernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
