package mqtt

import (
	"context"
	"encoding/json"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// Registrar implements l1.Registrar using MQTT. The node metadata is
// retained on node/meta while connected.
type Registrar struct {
	Queue *Queue
	Info  l1.NodeInfo

	metaJSON  []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.NodeInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, qos, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := info.Ref.Name() + "/" + TopicMeta
	opts.SetBinaryWill(topicPrefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("obc:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.QoS = qos
	r.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic, r.metaJSON, 1, true)
	}
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForNode(info.Ref))
	return r, nil
}

// SetHandler sets the handler of commands from the ground.
func (r *Registrar) SetHandler(h l1.CommandHandler) {
	r.registrar.SetHandler(h)
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg msgs.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Name implements Named.
func (r *Registrar) Name() string {
	return "mqtt-registrar"
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	r.Queue.PubWith(r.Info.Ref.Name()+"/"+TopicMeta, nil, 1, true).Wait()
	return r.Queue.Close()
}
