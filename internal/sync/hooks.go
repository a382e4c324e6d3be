package sync

import "os"

// Filesystem calls made by the engine. Tests override them to inject
// failures between the steps of an update.
var (
	lstat      = os.Lstat
	readDir    = os.ReadDir
	readlink   = os.Readlink
	mkdir      = os.Mkdir
	chmod      = os.Chmod
	rename     = os.Rename
	remove     = os.Remove
	symlink    = os.Symlink
	createTemp = os.CreateTemp
)
