package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/bridge"
	fx "github.com/robotalks/trspi/pkg/framework"
)

// Meta is the retained description of a bridged device.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Module      string            `json:"module,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Endpoint publishes a bridge under a device id on the broker.
type Endpoint struct {
	Queue    *Queue
	DeviceID string
	Meta     Meta

	rw       *ReadWriter
	metaJSON []byte
}

// NewEndpoint creates an Endpoint. The meta topic is cleared by the
// broker when the connection drops.
func NewEndpoint(brokerURL, deviceID string, meta Meta) (*Endpoint, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := deviceID + "/" + TopicMeta
	opts.SetBinaryWill(topicPrefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("trspi:" + deviceID)
	}
	e := &Endpoint{
		Queue:    NewQueue(opts, topicPrefix),
		DeviceID: deviceID,
		Meta:     meta,
		metaJSON: metaJSON,
	}
	e.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic, e.metaJSON, 1, true)
	}
	e.rw = NewPacketReadWriter(e.Queue).ForDevice(deviceID)
	return e, nil
}

// ReadWriter returns the packet read/writer of the device topics.
func (e *Endpoint) ReadWriter() *ReadWriter {
	return e.rw
}

// AddTo adds the endpoint runners to the loop serving the bridge.
func (e *Endpoint) AddTo(loop *fx.Loop, b *bridge.Bridge) {
	loop.AddRunnable(
		fx.NamedRun("mqtt", e),
		fx.NamedRun("mqtt-sub", e.rw),
		fx.NamedRun("mqtt-pipe", b.Serve(e.rw)),
	)
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	token := e.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Warningf("MQTT connect: %v", err)
	}
	<-ctx.Done()
	e.Queue.PubWith(e.DeviceID+"/"+TopicMeta, nil, 1, true).WaitTimeout(time.Second)
	e.Queue.Close()
	return ctx.Err()
}

// DeviceInfo is a device found by Discover.
type DeviceInfo struct {
	ID   string
	Meta Meta
}

// Discover collects devices publishing meta within timeout.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) ([]DeviceInfo, error) {
	resCh := make(chan DeviceInfo, 16)
	sub := q.Sub("+/"+TopicMeta, func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		info := DeviceInfo{ID: strings.TrimSuffix(topic, "/"+TopicMeta)}
		if err := json.Unmarshal(payload, &info.Meta); err != nil {
			glog.Warningf("meta of %s: %v", info.ID, err)
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	var res []DeviceInfo
	expire := time.After(timeout)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-expire:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}
