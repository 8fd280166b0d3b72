//go:build !windows

package symcap

// CanSymlink is always true on Unix: any user can create a symlink,
// regardless of privilege level.
func CanSymlink() bool {
	return true
}
