package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/canbus"
	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l1/env"
	"github.com/robotalks/obc.go/pkg/obc"
	"github.com/robotalks/obc.go/pkg/sim"
	"github.com/robotalks/obc.go/pkg/sim/report"
	"github.com/robotalks/obc.go/pkg/sim/transceiver"
)

// exitReset tells the supervisor to start the daemon again.
const exitReset = 3

var (
	simulate    bool
	reportState bool
	resetDelay  = time.Second
)

// restarter stops the daemon once the reply of RESET_SUBSYS had a chance
// to go out.
type restarter struct {
	runner *fx.Runner
}

func (r restarter) Reset() {
	r.runner.Restart(resetDelay)
}

func main() {
	conf := env.NewConfig()
	conf.SetupFlags(pflag.CommandLine)
	pflag.BoolVar(&simulate, "sim", simulate, "Simulate the transceiver and the EPS and PAY boards.")
	pflag.BoolVar(&reportState, "report", reportState, "Print simulated state changes as JSON lines.")
	pflag.DurationVar(&resetDelay, "reset-delay", resetDelay, "Delay before exit on reset.")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	conf.MustLoad(pflag.CommandLine)

	runner := fx.NewRunner().HandleSignals()

	nc := conf.NodeConfig()
	nc.Clock = sim.NewClock(time.Time{})
	mem := sim.NewMemory()
	nc.Memory = mem
	nc.Resetter = restarter{runner: runner}
	nc.Restart = obc.RestartInfo{Time: time.Now()}
	nc.Registrar = conf.MustNewRegistrar()

	loop := fx.NewLoop()
	loop.Interval = conf.Link.Interval
	var trx *transceiver.Transceiver
	if simulate {
		link := canbus.NewLoopback()
		defer link.Close()
		eps := sim.NewBoard(obc.SubsysEPS, link)
		pay := sim.NewBoard(obc.SubsysPAY, link)
		trx = transceiver.New()
		nc.CAN, nc.UART = link, trx.Port()
		if reportState {
			loop.Add(report.NewAdapter().Subscribe(mem, eps, pay))
		}
		loop.AddRunnable(fx.NamedRun("air", fx.RunnableFunc(func(ctx context.Context) error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case frame := <-trx.Air:
					glog.Infof("air: % x", frame)
				}
			}
		})))
	} else {
		port, err := conf.OpenSerial()
		if err != nil {
			log.Fatalln(err)
		}
		if port != nil {
			defer port.Close()
			nc.UART, nc.UARTTimeout = port, true
		}
		bus, err := conf.OpenCAN()
		if err != nil {
			log.Fatalln(err)
		}
		if bus != nil {
			nc.CAN = bus
		}
	}

	node := obc.NewNode(nc)
	if trx != nil {
		// ground uplinks take the air path through the simulated transceiver
		node.Ground.Frames = comm.HandleFrameFunc(func(_ context.Context, frame []byte) {
			trx.Uplink(frame)
		})
	}
	loop.Add(node)
	glog.Infof("node %s starting", conf.Ref().Name())

	err := runner.Go(loop).Wait()
	glog.Flush()
	if errors.Is(err, fx.ErrRestartRequested) {
		os.Exit(exitReset)
	}
	if err != nil {
		log.Fatalln(err)
	}
}
