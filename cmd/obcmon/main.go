package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	obccmds "github.com/robotalks/obc.go/pkg/cli/cmds/obc"
	"github.com/robotalks/obc.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/obc.go/pkg/l1/env"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

var topic = "#"

func main() {
	conf := env.NewConfig()
	pflag.StringVarP(&conf.GroundURL, "ground", "g", conf.GroundURL, "MQTT broker URL.")
	pflag.StringVar(&topic, "topic", topic, "Topic filter under the prefix.")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(conf.GroundURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			if len(payload) == 0 {
				log.Printf("%s: offline", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, msgs.Name(msg), obccmds.FormatEvent(msg))
	}))
	if err := q.ConnectWait(mqtt.DefaultConnectTimeout); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
