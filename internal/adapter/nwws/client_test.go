package nwws

import (
	"encoding/xml"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gosrc.io/xmpp/stanza"

	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

const sampleStanza = `<message to='relay@nwws-oi.weather.gov/nwws' type='groupchat' from='nwws@conference.nwws-oi.weather.gov/nwws-oi'>
<body>KCLE issues TOR valid 2025-01-20T15:45:00Z</body>
<x xmlns='nwws-oi' cccc='KCLE' ttaaii='WFUS53' issue='2025-01-20T15:45:00Z' awipsid='TORCLE' id='10313.42'>

WFUS53 KCLE 201545

TORCLE

OHC151-201630-

/O.NEW.KCLE.TO.W.0045.250120T1545Z-250120T1630Z/

</x>
</message>`

func TestProductExtensionDecoding(t *testing.T) {
	var msg stanza.Message
	require.NoError(t, xml.Unmarshal([]byte(sampleStanza), &msg))

	var ext productExtension
	require.True(t, msg.Get(&ext))

	assert.Equal(t, "KCLE", ext.Cccc)
	assert.Equal(t, "WFUS53", ext.Ttaaii)
	assert.Equal(t, "TORCLE", ext.AwipsID)
	assert.Equal(t, "10313.42", ext.ID)
	assert.Contains(t, ext.Text, "/O.NEW.KCLE.TO.W.0045.250120T1545Z-250120T1630Z/")
}

func TestHandleMessageDeliversProduct(t *testing.T) {
	c := NewClient(Options{
		Username: "relay",
		Server:   "nwws-oi.weather.gov",
		Resource: "nwws",
		Room:     "nwws@conference.nwws-oi.weather.gov",
	}, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())

	var msg stanza.Message
	require.NoError(t, xml.Unmarshal([]byte(sampleStanza), &msg))
	c.handleMessage(nil, msg)

	select {
	case p := <-c.Products():
		assert.Equal(t, "KCLE", p.Office)
		assert.Equal(t, "WFUS53", p.WMOHeader)
		assert.Equal(t, "TORCLE", p.AwipsID)
		assert.Contains(t, p.Text, "WFUS53 KCLE 201545")
	case <-time.After(time.Second):
		t.Fatal("no product delivered")
	}
}

func TestHandleMessageIgnoresOwnNick(t *testing.T) {
	c := NewClient(Options{
		Username: "relay",
		Server:   "nwws-oi.weather.gov",
		Resource: "nwws",
		Room:     "nwws@conference.nwws-oi.weather.gov",
	}, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())

	echoed := `<message type='groupchat' from='nwws@conference.nwws-oi.weather.gov/relay'>
<body>echo</body>
<x xmlns='nwws-oi' cccc='KCLE' ttaaii='WFUS53' issue='2025-01-20T15:45:00Z' awipsid='TORCLE' id='10313.43'>
WFUS53 KCLE 201545
</x>
</message>`

	var msg stanza.Message
	require.NoError(t, xml.Unmarshal([]byte(echoed), &msg))
	c.handleMessage(nil, msg)

	select {
	case <-c.Products():
		t.Fatal("echoed message should not be delivered")
	default:
	}
}

func TestMucNick(t *testing.T) {
	assert.Equal(t, "nwws-oi", mucNick("nwws@conference.nwws-oi.weather.gov/nwws-oi"))
	assert.Equal(t, "", mucNick("nwws@conference.nwws-oi.weather.gov"))
}

func TestReconnectDelayResetsAfterSession(t *testing.T) {
	c := NewClient(Options{Username: "relay"}, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())

	// Failed attempts keep the escalated delay.
	assert.Equal(t, 80*time.Second, c.reconnectDelay(80*time.Second))

	// A session that established resets to the base.
	c.connected.Store(true)
	assert.Equal(t, reconnectBase, c.reconnectDelay(80*time.Second))

	// The flag is consumed; the next failure escalates again.
	assert.Equal(t, 80*time.Second, c.reconnectDelay(80*time.Second))
}

func TestHandleMessageIgnoresNonProduct(t *testing.T) {
	c := NewClient(Options{}, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())

	var msg stanza.Message
	require.NoError(t, xml.Unmarshal([]byte(`<message type='groupchat'><body>topic change</body></message>`), &msg))
	c.handleMessage(nil, msg)

	select {
	case <-c.Products():
		t.Fatal("unexpected product")
	default:
	}
}

func TestNormalizeProductText(t *testing.T) {
	in := "\n\n\x01WFUS53 KCLE 201545\n\nTORCLE\n\nline"
	out := normalizeProductText(in)
	assert.Equal(t, "WFUS53 KCLE 201545\nTORCLE\nline", out)
}
