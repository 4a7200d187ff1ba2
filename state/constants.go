package state

import (
	"os"
	"path/filepath"
	"time"
)

var (
	DefaultTimeout   = time.Second * 10
	DefaultRetries   = 3
	DefaultPort      = 5683
	DefaultSampleDir = "/ms/queue/"

	// ShortIDWidth is how many trailing hex digits of an address the routes
	// resource uses to name a node.
	ShortIDWidth = 4

	// force-reboot does not wait for an answer
	BlindTimeout = time.Second * 1

	Version = "dev"
)

func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "msfetch.lock")
}
