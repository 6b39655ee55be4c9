//go:build windows

package runtime

import "fmt"

// Daemonize is unsupported on Windows, which has no equivalent of
// detaching from a controlling terminal via fork/setsid. config.Validate
// does not know the target platform, so --daemon reaches this
// unconditionally on Windows; it exists so cmd/h2kvd can build
// unconditionally and reports the rejection itself, at the point where
// the daemonize attempt is actually made.
func Daemonize(pidFile, logFile string, lockResources func() error) (isParent bool, err error) {
	return true, fmt.Errorf("runtime: --daemon is not supported on windows")
}
