package env

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/robotalks/obc.go/pkg/l0/canbus"
	"github.com/robotalks/obc.go/pkg/l0/serial"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/obc.go/pkg/l1/comm/stream"
	"github.com/robotalks/obc.go/pkg/l1/comm/websocket"
)

// groundURLs splits GroundURL on commas.
func (c *Config) groundURLs() []string {
	var urls []string
	for _, s := range strings.Split(c.GroundURL, ",") {
		if s = strings.TrimSpace(s); s != "" {
			urls = append(urls, s)
		}
	}
	return urls
}

func parseGroundURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ground URL: %w", err)
	}
	return u, nil
}

// NewRegistrar creates the node side of the ground bridge. Several
// comma-separated URLs are served together. It returns nil when no ground
// URL is configured.
func (c *Config) NewRegistrar() (l1.Registrar, error) {
	urls := c.groundURLs()
	if len(urls) == 0 {
		return nil, nil
	}
	if !c.Ref().IsValid() {
		return nil, fmt.Errorf("node type and id must be specified")
	}
	if len(urls) == 1 {
		return c.newRegistrar(urls[0])
	}
	mux := &comm.RegistrarMux{}
	for _, s := range urls {
		reg, err := c.newRegistrar(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		mux.Add(reg)
	}
	return mux, nil
}

func (c *Config) newRegistrar(groundURL string) (l1.Registrar, error) {
	u, err := parseGroundURL(groundURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt":
		return mqtt.NewRegistrar(groundURL, c.Info())
	case "tcp":
		return stream.Listen(u.Host)
	case "ws":
		srv, err := websocket.Listen(u.Host)
		if err != nil {
			return nil, err
		}
		if u.Path != "" {
			srv.Path = u.Path
		}
		return srv, nil
	default:
		return nil, fmt.Errorf("unknown ground URL scheme: %q", u.Scheme)
	}
}

// MustNewRegistrar creates the registrar and fails on error.
func (c *Config) MustNewRegistrar() l1.Registrar {
	reg, err := c.NewRegistrar()
	if err != nil {
		log.Fatalln(err)
	}
	return reg
}

// NewConnector creates the ground side of the bridge using the first
// ground URL.
func (c *Config) NewConnector() (l1.Connector, error) {
	urls := c.groundURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("no ground URL")
	}
	u, err := parseGroundURL(urls[0])
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt":
		return mqtt.NewConnector(urls[0])
	case "tcp":
		return stream.NewConnector(urls[0])
	case "ws":
		return websocket.NewConnector(urls[0])
	default:
		return nil, fmt.Errorf("unknown ground URL scheme: %q", u.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Connect directly connects to the configured node.
func (c *Config) Connect(ctx context.Context) (l1.NodeConn, error) {
	if !c.Ref().IsValid() {
		return nil, fmt.Errorf("node type and id must be specified")
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref())
}

// MustConnect connects to the node or fails.
func (c *Config) MustConnect(ctx context.Context) l1.NodeConn {
	conn, err := c.Connect(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// OpenSerial opens the UART to the transceiver, nil if none is configured.
func (c *Config) OpenSerial() (*serial.Port, error) {
	if c.Serial.Device == "" {
		return nil, nil
	}
	return serial.Open(c.Serial.Device, c.Serial.Baud)
}

// OpenCAN opens the CAN interface, nil if none is configured.
func (c *Config) OpenCAN() (*canbus.SocketCAN, error) {
	if c.CAN == "" {
		return nil, nil
	}
	return canbus.Open(c.CAN)
}
