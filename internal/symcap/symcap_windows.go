//go:build windows

package symcap

import (
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// developerModeKeyPath and developerModeValue locate the registry flag
// Windows sets when Developer Mode is enabled, which (like process
// elevation) is sufficient to allow unprivileged symlink creation.
const (
	developerModeKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\AppModelUnlock`
	developerModeValue    = "AllowDevelopmentWithoutDevLicense"
)

// CanSymlink is true if the process is elevated or Developer Mode is
// enabled. Any probe failure (missing key, access denied) is treated as
// "cannot symlink" rather than propagated, per spec §4.8.
func CanSymlink() bool {
	return isElevated() || developerModeEnabled()
}

func isElevated() bool {
	token := windows.GetCurrentProcessToken()
	return token.IsElevated()
}

func developerModeEnabled() bool {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, developerModeKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()

	val, _, err := key.GetIntegerValue(developerModeValue)
	if err != nil {
		return false
	}
	return val != 0
}
