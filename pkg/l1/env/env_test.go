package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/comm/stream"
	"github.com/robotalks/obc.go/pkg/l1/comm/websocket"
)

const testYAML = `
node:
  type: bench
  id: em2
  labels:
    site: lab
serial:
  device: /dev/ttyS1
  target_baud: 115200
can: vcan0
ground_url: tcp://127.0.0.1:0/bench/em2
link:
  interval: 100ms
  queue_capacity: 8
`

func writeConfig(t *testing.T) string {
	fn := filepath.Join(t.TempDir(), "obc.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(testYAML), 0644))
	return fn
}

func TestLoadFile(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(writeConfig(t)))
	require.Equal(t, l1.NodeRef{Type: "bench", ID: "em2"}, conf.Ref())
	require.Equal(t, "lab", conf.Info().Meta.Labels["site"])
	require.Equal(t, "/dev/ttyS1", conf.Serial.Device)
	require.Equal(t, 9600, conf.Serial.Baud)
	require.Equal(t, 115200, conf.Serial.TargetBaud)
	require.Equal(t, "vcan0", conf.CAN)
	require.Equal(t, 100*time.Millisecond, conf.Link.Interval)
	require.Equal(t, 8, conf.Link.QueueCapacity)
	require.Equal(t, defaultConfig.Link.TimeoutTicks, conf.Link.TimeoutTicks)

	nc := conf.NodeConfig()
	require.Equal(t, 8, nc.QueueCapacity)
	require.Equal(t, 115200, nc.TargetBaud)
	require.Equal(t, 9600, nc.ConfiguredBaud)
}

func TestLoadKeepsFlags(t *testing.T) {
	conf := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	conf.SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-c", writeConfig(t), "--id", "fm1", "--queue", "4"}))
	require.NoError(t, conf.Load(fs))
	require.Equal(t, "bench", conf.Node.Type)
	require.Equal(t, "fm1", conf.Node.ID)
	require.Equal(t, 4, conf.Link.QueueCapacity)
	require.Equal(t, 100*time.Millisecond, conf.Link.Interval)

	conf.File = filepath.Join(t.TempDir(), "missing.yaml")
	require.Error(t, conf.Load(fs))
}

func TestNewRegistrar(t *testing.T) {
	conf := NewConfig()
	conf.Node = Identity{Type: "sim", ID: "1"}

	conf.GroundURL = ""
	reg, err := conf.NewRegistrar()
	require.NoError(t, err)
	require.Nil(t, reg)

	conf.GroundURL = "tcp://127.0.0.1:0"
	reg, err = conf.NewRegistrar()
	require.NoError(t, err)
	require.IsType(t, &stream.Server{}, reg)
	reg.(*stream.Server).Listener.Close()

	conf.GroundURL = "ws://127.0.0.1:0/link"
	reg, err = conf.NewRegistrar()
	require.NoError(t, err)
	require.Equal(t, "/link", reg.(*websocket.Server).Path)
	reg.(*websocket.Server).Listener.Close()

	conf.GroundURL = "tcp://127.0.0.1:0, ws://127.0.0.1:0"
	reg, err = conf.NewRegistrar()
	require.NoError(t, err)
	mux := reg.(*comm.RegistrarMux)
	require.Len(t, mux.Registrars, 2)
	mux.Registrars[0].(*stream.Server).Listener.Close()
	ws := mux.Registrars[1].(*websocket.Server)
	require.Equal(t, websocket.DefaultPath, ws.Path)
	ws.Listener.Close()

	conf.GroundURL = "tcp://127.0.0.1:0,udp://127.0.0.1:0"
	_, err = conf.NewRegistrar()
	require.Error(t, err)

	conf.GroundURL = "udp://127.0.0.1:0"
	_, err = conf.NewRegistrar()
	require.Error(t, err)
	_, err = conf.NewConnector()
	require.Error(t, err)
}

func TestMachineID(t *testing.T) {
	require.NotEmpty(t, MachineID())
}
