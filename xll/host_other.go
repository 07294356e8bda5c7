//go:build !windows

package xll

// Excel returns the Host of the running process. The host only runs on
// Windows, so elsewhere it always fails with ErrNoHost.
func Excel() (Host, error) {
	return nil, ErrNoHost
}
