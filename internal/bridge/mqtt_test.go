package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerialFromTopic(t *testing.T) {
	require.Equal(t, "MP-1001", serialFromTopic("medipi/dispensers/MP-1001/status"))
	require.Equal(t, "MP-1001", serialFromTopic("medipi/dispensers/MP-1001/log"))
	require.Equal(t, "MP-2002", serialFromTopic("medipi/discovery/MP-2002"))
	require.Equal(t, "", serialFromTopic("medipi/dispensers"))
	require.Equal(t, "", serialFromTopic("garbage"))
}

func TestDiscoveredReturnsSnapshots(t *testing.T) {
	bridge := &MQTTBridge{
		discovered: map[string]*DiscoveredDispenser{
			"MP-1001": {SerialNumber: "MP-1001", LastSeen: time.Now()},
		},
	}

	devices := bridge.Discovered()
	require.Len(t, devices, 1)

	// Mutating the snapshot must not leak back into the registry
	devices[0].Registered = true
	require.False(t, bridge.discovered["MP-1001"].Registered)
}

func TestMarkRegistered(t *testing.T) {
	bridge := &MQTTBridge{
		discovered: map[string]*DiscoveredDispenser{
			"MP-1001": {SerialNumber: "MP-1001"},
		},
	}

	bridge.MarkRegistered("MP-1001")
	require.True(t, bridge.discovered["MP-1001"].Registered)

	// Unknown serials are ignored
	bridge.MarkRegistered("MP-9999")
}
