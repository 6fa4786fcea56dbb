//go:build !windows

package output

import "os"

// enableANSI reports ANSI support for a terminal; Unix terminals support
// escape sequences natively
func enableANSI(*os.File) bool {
	return true
}
