// Package info holds build information injected with -ldflags and the id of this process.
package info

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
)

var (
	Version    = "0.0.0"
	GitRev     = "000000"
	BuildTime  = "2000-01-01_00:00:00"
	InstanceID = uuid.New().String()
)

// Banner is the first line every app logs.
func Banner(app string) string {
	return fmt.Sprintf("hybrix %s started, version:%s, rev:%s, built:%s, go:%s, instance:%s",
		app, Version, GitRev, BuildTime, runtime.Version(), InstanceID)
}
