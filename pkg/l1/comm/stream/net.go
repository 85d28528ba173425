package stream

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
)

// Server accepts ground clients over TCP.
type Server struct {
	comm.Hub
	Listener net.Listener
}

// Listen creates a Server listening on addr.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Listener: ln}, nil
}

// Name implements Named.
func (s *Server) Name() string {
	return "tcp:" + s.Listener.Addr().String()
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(l *fx.Loop) {
	l.AddRunnable(s)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, s.Listener, func() error {
		for {
			conn, err := s.Listener.Accept()
			if err != nil {
				return err
			}
			glog.Infof("ground client %s attached", conn.RemoteAddr())
			go func() {
				err := s.Serve(ctx, New(conn))
				glog.Infof("ground client %s detached: %v", conn.RemoteAddr(), err)
			}()
		}
	})
}

// Connector implements l1.Connector for a single node served over TCP.
type Connector struct {
	Addr string
	Ref  l1.NodeRef

	dialer net.Dialer
}

// NewConnector parses tcp://host:port/type/id.
func NewConnector(serverURL string) (*Connector, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Connector{Addr: u.Host}
	if items := strings.Split(strings.Trim(u.Path, "/"), "/"); len(items) == 2 {
		c.Ref = l1.NodeRef{Type: items[0], ID: items[1]}
	}
	return c, nil
}

// Discover implements Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.NodeInfo, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, err
	}
	conn.Close()
	return []l1.NodeInfo{{Ref: c.Ref}}, nil
}

// Connect implements Connector. The ref is informational only as the
// endpoint serves exactly one node.
func (c *Connector) Connect(ctx context.Context, ref l1.NodeRef) (l1.NodeConn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, err
	}
	nc := &comm.NodeConn{}
	nc.Init(New(conn))
	return nc, nil
}
