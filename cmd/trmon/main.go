package main

import (
	"flag"
	"log"
	"strings"

	"github.com/robotalks/trspi/pkg/bridge/mqtt"
	"github.com/robotalks/trspi/pkg/bridge/msgs"
	"github.com/robotalks/trspi/pkg/cli/sh"
	"github.com/robotalks/trspi/pkg/env"
	fx "github.com/robotalks/trspi/pkg/framework"
)

var target string

func init() {
	env.SetupFlags()
	flag.StringVar(&target, "connect", "", "Watch events of a ws:// or tcp:// endpoint instead of the MQTT broker.")
}

func watchBroker(conf *env.Config) {
	q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
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
		log.Printf("%s: #%d %s", topic, typed.Sequence, sh.FormatMsg(msg))
	}))
	<-(chan struct{})(nil)
}

func watchPeer(conf *env.Config) {
	client, runners, err := conf.Dial(target)
	if err != nil {
		log.Fatalln(err)
	}
	client.OnEvent = func(msg fx.Message) {
		log.Printf("%s: %s", target, sh.FormatMsg(msg))
	}
	runner := fx.NewRunner().HandleSignals()
	if err := runner.Go(runners...).Wait(); err != nil {
		log.Fatalln(err)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.NewConfig()
	if target != "" {
		watchPeer(conf)
		return
	}
	watchBroker(conf)
}
