package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID derives a stable device id from the machine id.
// The raw machine id is not exposed on the broker.
func MachineID() string {
	id, err := machineid.ProtectedID("trspi")
	if err != nil {
		return ""
	}
	return id[:16]
}
