package tr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	drv "github.com/robotalks/trspi/pkg/tr"
)

func TestParseHex(t *testing.T) {
	for _, c := range []struct {
		args []string
		data []byte
	}{
		{[]string{"01", "0a", "FF"}, []byte{0x01, 0x0a, 0xff}},
		{[]string{"010aff"}, []byte{0x01, 0x0a, 0xff}},
		{[]string{"0x01:02"}, []byte{0x01, 0x02}},
		{nil, []byte{}},
	} {
		data, err := ParseHex(c.args)
		require.NoError(t, err)
		require.Equal(t, c.data, data)
	}
	_, err := ParseHex([]string{"1"})
	require.Error(t, err)
	_, err = ParseHex([]string{"zz"})
	require.Error(t, err)
}

func TestFormatStatus(t *testing.T) {
	report := msgs.NewStatusReport(drv.Status{
		Link:         drv.LinkCommunicationMode,
		Control:      drv.ControlReady,
		Polling:      true,
		Queued:       3,
		FastSPI:      true,
		ByteInterval: 150 * time.Microsecond,
	})
	out := FormatStatus(report)
	require.Contains(t, out, "link:     communication")
	require.Contains(t, out, "control:  ready")
	require.Contains(t, out, "queued:   3")
	require.Contains(t, out, "fast SPI: true (150µs per byte)")
}
