package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine. The raw ID is
// hashed so it never leaves the host.
func MachineID() string {
	id, err := machineid.ProtectedID("obc")
	if err == nil {
		return id[:16]
	}
	glog.V(2).Infof("machine id: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
