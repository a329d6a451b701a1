package failstore

import "fmt"

// Key is the deterministic context fingerprint described in spec §3's
// FailureKey: the same inputs always yield the same opaque string, stable
// across runs and processes.
type Key struct {
	Mode                 string
	Methodology          string
	ExitCount            int
	PassCount            uint32
	GlobalRoundsCeiling  uint32
	Length               int
	ScopeCeiling         int
}

// Encode renders the deterministic key string.
func (k Key) Encode() string {
	return fmt.Sprintf("m=%s;meth=%s;exit=%d;pass=%d;grc=%d;len=%d;scope=%d",
		k.Mode, k.Methodology, k.ExitCount, k.PassCount, k.GlobalRoundsCeiling, k.Length, k.ScopeCeiling)
}
