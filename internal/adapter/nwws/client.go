// Package nwws consumes the NWWS-OI feed, the XMPP broadcast channel NWS
// offices publish raw text products through. The client joins the operations
// chat room and hands every product payload to the ingest pipeline.
package nwws

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// Known NWWS-OI sites. The primary is tried first; see
// https://www.weather.gov/nwws/#access for the current list.
const (
	SiteCollegePark = "nwws-oi-cprk.weather.gov"
	SiteBoulder     = "nwws-oi-bldr.weather.gov"
	ServerPort      = "5222"
)

const (
	reconnectBase = 5 * time.Second
	reconnectMax  = 300 * time.Second
)

// productExtension is the nwws-oi payload attached to each groupchat message.
// The chardata holds the full raw product text.
type productExtension struct {
	stanza.MsgExtension
	XMLName xml.Name `xml:"nwws-oi x"`
	Text    string   `xml:",chardata"`
	Cccc    string   `xml:"cccc,attr"`    // issuing center, e.g. KCLE
	Ttaaii  string   `xml:"ttaaii,attr"`  // WMO product designator
	Issue   string   `xml:"issue,attr"`   // ISO 8601 issue time
	AwipsID string   `xml:"awipsid,attr"` // AFOS PIL, e.g. TORCLE
	ID      string   `xml:"id,attr"`      // process.sequence for gap detection
}

func init() {
	stanza.TypeRegistry.MapExtension(stanza.PKTMessage, xml.Name{Space: "nwws-oi", Local: "x"}, productExtension{})
}

// RawProduct is one product lifted off the wire.
type RawProduct struct {
	Text      string
	Office    string // issuing center ICAO
	WMOHeader string
	AwipsID   string
	IssuedAt  string
	Sequence  string
}

// Options configure the NWWS-OI session.
type Options struct {
	Username string
	Password string
	Server   string // domain, nwws-oi.weather.gov
	Resource string
	Room     string // MUC JID, nwws@conference.nwws-oi.weather.gov
}

// Client maintains the XMPP session and republishes products on a channel.
type Client struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	products  chan RawProduct
	sm        *xmpp.StreamManager
	xc        *xmpp.Client
	connected atomic.Bool
}

// NewClient creates an NWWS-OI client. Products appear on Products() once Run
// has connected.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		opts:     opts,
		logger:   logger.With("component", "nwws"),
		metrics:  metrics,
		products: make(chan RawProduct, 64),
	}
}

// Products returns the stream of raw products.
func (c *Client) Products() <-chan RawProduct {
	return c.products
}

// Run connects and consumes the feed until the context ends. Connection
// drops are retried with exponential backoff; the stream manager handles
// in-session reconnects.
func (c *Client) Run(ctx context.Context) error {
	delay := reconnectBase
	for {
		err := c.runSession(ctx)
		c.metrics.NWWSConnected.Set(0)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay = c.reconnectDelay(delay)
		c.logger.Warn("nwws session ended, reconnecting", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, reconnectMax)
	}
}

// reconnectDelay returns the sleep before the next attempt. A session that
// actually established resets the backoff to the base; only consecutive
// failed attempts keep escalating.
func (c *Client) reconnectDelay(prev time.Duration) time.Duration {
	if c.connected.Swap(false) {
		return reconnectBase
	}
	return prev
}

func (c *Client) runSession(ctx context.Context) error {
	router := xmpp.NewRouter()
	router.HandleFunc("message", c.handleMessage)

	config := &xmpp.Config{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: c.siteAddress(),
			Domain:  c.opts.Server,
		},
		Jid:            fmt.Sprintf("%s@%s/%s", c.opts.Username, c.opts.Server, c.opts.Resource),
		Credential:     xmpp.Password(c.opts.Password),
		ConnectTimeout: 15,
	}

	client, err := xmpp.NewClient(config, router, func(err error) {
		c.logger.Error("xmpp stream error", "error", err)
	})
	if err != nil {
		return fmt.Errorf("create xmpp client: %w", err)
	}
	c.xc = client

	c.sm = xmpp.NewStreamManager(client, func(s xmpp.Sender) {
		c.logger.Info("connected to nwws-oi, joining room", "room", c.opts.Room)
		c.connected.Store(true)
		c.metrics.NWWSConnected.Set(1)
		if err := c.joinRoom(s); err != nil {
			c.logger.Error("failed to join nwws room", "error", err)
		}
	})

	done := make(chan error, 1)
	go func() { done <- c.sm.Run() }()

	select {
	case <-ctx.Done():
		c.leaveRoom()
		c.sm.Stop()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (c *Client) siteAddress() string {
	// The NWWS domain resolves through dedicated site hosts.
	return SiteCollegePark + ":" + ServerPort
}

// joinRoom enters the MUC with history suppressed; replayed products would
// double-ingest everything sent while disconnected and the API poll covers
// that gap instead.
func (c *Client) joinRoom(s xmpp.Sender) error {
	return s.Send(stanza.Presence{
		Attrs: stanza.Attrs{To: c.opts.Room + "/" + c.opts.Username},
		Extensions: []stanza.PresExtension{
			stanza.MucPresence{
				History: stanza.History{MaxStanzas: stanza.NewNullableInt(0)},
			},
		},
	})
}

func (c *Client) leaveRoom() {
	if c.xc == nil {
		return
	}
	err := c.xc.Send(stanza.Presence{
		Attrs: stanza.Attrs{
			To:   c.opts.Room + "/" + c.opts.Username,
			Type: stanza.PresenceTypeUnavailable,
		},
	})
	if err != nil {
		c.logger.Warn("failed to send unavailable presence", "error", err)
	}
}

func (c *Client) handleMessage(s xmpp.Sender, p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}

	// The room echoes our own presence traffic back; skip anything posted
	// under our nickname.
	if nick := mucNick(msg.Attrs.From); nick != "" && nick == c.opts.Username {
		return
	}

	var ext productExtension
	if !msg.Get(&ext) {
		return
	}
	c.metrics.ProductsConsumed.WithLabelValues("nwws").Inc()

	text := normalizeProductText(ext.Text)
	if text == "" {
		return
	}

	c.logger.Debug("product received",
		"office", ext.Cccc, "ttaaii", ext.Ttaaii, "awipsid", ext.AwipsID, "bytes", len(text))

	product := RawProduct{
		Text:      text,
		Office:    ext.Cccc,
		WMOHeader: ext.Ttaaii,
		AwipsID:   strings.TrimSpace(ext.AwipsID),
		IssuedAt:  ext.Issue,
		Sequence:  ext.ID,
	}

	select {
	case c.products <- product:
	default:
		c.logger.Warn("product channel full, dropping", "awipsid", product.AwipsID)
	}
}

// mucNick extracts the room nickname from a groupchat JID, the part after
// the slash. "" when the JID has no resource.
func mucNick(from string) string {
	if i := strings.IndexByte(from, '/'); i >= 0 {
		return from[i+1:]
	}
	return ""
}

// normalizeProductText undoes the feed's double-newline line framing and
// strips the leading transmission noise before the WMO header.
func normalizeProductText(text string) string {
	text = strings.ReplaceAll(text, "\n\n", "\n")
	return strings.TrimLeft(text, "\r\n\x01 ")
}
