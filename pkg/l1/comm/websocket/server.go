package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
)

// DefaultPath is where the endpoint is served.
const DefaultPath = "/obc"

// Server accepts ground clients over websocket.
type Server struct {
	comm.Hub
	Listener net.Listener
	Path     string
}

// Listen creates a Server listening on addr.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Listener: ln, Path: DefaultPath}, nil
}

// Name implements Named.
func (s *Server) Name() string {
	return "ws:" + s.Listener.Addr().String()
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(l *fx.Loop) {
	l.AddRunnable(s)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.Path, websocket.Handler(func(conn *websocket.Conn) {
		glog.Infof("ground client %s attached", conn.Request().RemoteAddr)
		err := s.Serve(ctx, New(conn))
		glog.Infof("ground client %s detached: %v", conn.Request().RemoteAddr, err)
	}))
	srv := &http.Server{Handler: mux}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(s.Listener)
	})
}

// Connector implements l1.Connector for a single node served over websocket.
type Connector struct {
	URL    string
	Origin string
	Ref    l1.NodeRef
}

// NewConnector parses ws://host:port/path?node=type/id.
func NewConnector(serverURL string) (*Connector, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Connector{Origin: "http://" + u.Host}
	if items := strings.SplitN(u.Query().Get("node"), "/", 2); len(items) == 2 {
		c.Ref = l1.NodeRef{Type: items[0], ID: items[1]}
	}
	u.RawQuery = ""
	if u.Path == "" {
		u.Path = DefaultPath
	}
	c.URL = u.String()
	return c, nil
}

func (c *Connector) dial(ctx context.Context) (*websocket.Conn, error) {
	cfg, err := websocket.NewConfig(c.URL, c.Origin)
	if err != nil {
		return nil, err
	}
	cfg.Dialer = &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		cfg.Dialer.Deadline = deadline
	}
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Discover implements Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.NodeInfo, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	conn.Close()
	return []l1.NodeInfo{{Ref: c.Ref}}, nil
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.NodeRef) (l1.NodeConn, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	nc := &comm.NodeConn{}
	nc.Init(New(conn))
	return nc, nil
}
