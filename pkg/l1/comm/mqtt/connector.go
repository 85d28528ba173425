package mqtt

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
)

// Connector implements l1.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// Defaults
const (
	DefaultDiscoverTimeout = 500 * time.Millisecond
	DefaultConnectTimeout  = 5 * time.Second
)

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, _, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// Discover implements Connector. It collects the retained meta topics
// published by registrars until DiscoverTimeout.
func (c *Connector) Discover(ctx context.Context) ([]l1.NodeInfo, error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err := q.ConnectWait(c.connectTimeout(ctx)); err != nil {
		return nil, err
	}
	defer q.Close()

	var lock sync.Mutex
	found := make(map[l1.NodeRef]l1.NodeInfo)
	q.Sub("+/+/"+TopicMeta, Handler(func(topic string, payload []byte) {
		info, ok := parseMeta(topic, payload)
		lock.Lock()
		defer lock.Unlock()
		if ok {
			found[info.Ref] = info
		} else {
			delete(found, info.Ref)
		}
	}))

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	select {
	case <-time.After(dur):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	lock.Lock()
	defer lock.Unlock()
	res := make([]l1.NodeInfo, 0, len(found))
	for _, info := range found {
		res = append(res, info)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Ref.Name() < res[j].Ref.Name() })
	return res, nil
}

// parseMeta decodes a meta topic relative to the prefix. An empty or
// unreadable payload means the node is gone.
func parseMeta(topic string, payload []byte) (info l1.NodeInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 {
		return
	}
	info.Ref = l1.NodeRef{Type: items[0], ID: items[1]}
	if len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("mqtt: bad meta of %s: %v", info.Ref.Name(), err)
		return
	}
	return info, true
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.NodeRef) (l1.NodeConn, error) {
	conn := &NodeConn{
		Queue: NewQueue(c.options, c.topicPrefix),
	}
	conn.Init(NewPacketReadWriter(conn.Queue).ForConnector(ref))
	token := conn.Queue.Connect()
	if !token.WaitTimeout(c.connectTimeout(ctx)) {
		return nil, context.DeadlineExceeded
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Connector) connectTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return DefaultConnectTimeout
}

// NodeConn implements l1.NodeConn using MQTT.
type NodeConn struct {
	comm.NodeConn
	Queue *Queue
}

// AddToLoop implements LoopAdder.
func (c *NodeConn) AddToLoop(l *fx.Loop) {
	c.NodeConn.AddToLoop(l)
	l.AddRunnable(fx.NamedRun("mqtt-conn", fx.RunnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return c.Queue.Close()
	})))
}
