//go:build integration

package integration

import (
	"bytes"
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mountainsensing/msfetch/protocol"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	coapnet "github.com/plgd-dev/go-coap/v3/net"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/pkg/runner/periodic"
	"github.com/plgd-dev/go-coap/v3/udp"
	"github.com/plgd-dev/go-coap/v3/udp/server"
)

// VirtualNode serves the resources of a sensor node on loopback.
type VirtualNode struct {
	mu       sync.Mutex
	samples  []*protocol.Message
	config   []byte
	epoch    int64
	uptime   int64
	routes   string
	reboots  int
	requests []string

	server   *server.Server
	listener *coapnet.UDPConn
	port     int
	done     chan struct{}
	stop     chan struct{}
}

func StartVirtualNode() (*VirtualNode, error) {
	n := &VirtualNode{done: make(chan struct{}), stop: make(chan struct{}), epoch: time.Now().Unix()}

	r := mux.NewRouter()
	r.DefaultHandleFunc(n.handle)
	l, err := coapnet.NewListenUDP("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	n.listener = l
	n.port = l.LocalAddr().(*net.UDPAddr).Port
	n.server = udp.NewServer(options.WithMux(r),
		options.WithPeriodicRunner(periodic.New(n.stop, time.Second)),
		options.WithErrors(func(error) {}))
	go func() {
		defer close(n.done)
		_ = n.server.Serve(l)
	}()
	return n, nil
}

func (n *VirtualNode) Port() int {
	return n.port
}

// Stop shuts the server down and waits for its goroutines to exit.
func (n *VirtualNode) Stop() {
	n.server.Stop()
	<-n.done
	_ = n.listener.Close()
	close(n.stop)
}

// AddSample queues a sample, the last one added is the latest.
func (n *VirtualNode) AddSample(id uint32, epoch uint32) {
	s := protocol.SampleSchema.New()
	s.SetUint32(protocol.SampleTime, epoch)
	s.SetFloat(protocol.SampleBatt, 3.6)
	s.SetUint32(protocol.SampleID, id)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.samples = append(n.samples, s)
}

func (n *VirtualNode) SampleCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.samples)
}

func (n *VirtualNode) SetConfig(cfg *protocol.Message) error {
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.config = data
	return nil
}

func (n *VirtualNode) Config() (*protocol.Message, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return protocol.ConfigSchema.Decode(n.config)
}

func (n *VirtualNode) SetRoutes(routes string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = routes
}

func (n *VirtualNode) Epoch() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.epoch
}

func (n *VirtualNode) Reboots() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reboots
}

// Requests returns "METHOD /path" for every request served.
func (n *VirtualNode) Requests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.requests)
}

var errNotFound = errors.New("not found")

func (n *VirtualNode) handle(w mux.ResponseWriter, r *mux.Message) {
	path, err := r.Path()
	if err != nil {
		_ = w.SetResponse(codes.BadRequest, message.TextPlain, nil)
		return
	}
	var body []byte
	if r.Body() != nil {
		body, _ = r.ReadBody()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, r.Code().String()+" "+path)

	code, payload := n.serve(r.Code(), strings.Split(strings.Trim(path, "/"), "/"), body)
	var rd *bytes.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	if rd == nil {
		_ = w.SetResponse(code, message.TextPlain, nil)
		return
	}
	_ = w.SetResponse(code, message.AppOctets, rd)
}

func (n *VirtualNode) serve(method codes.Code, path []string, body []byte) (codes.Code, []byte) {
	switch {
	case path[0] == "sample" && method == codes.GET:
		s, _, err := n.sample(path)
		if err != nil {
			return codes.NotFound, nil
		}
		data, err := s.Encode()
		if err != nil {
			return codes.InternalServerError, nil
		}
		return codes.Content, data
	case path[0] == "sample" && method == codes.DELETE:
		_, idx, err := n.sample(path)
		if err != nil {
			return codes.NotFound, nil
		}
		n.samples = slices.Delete(n.samples, idx, idx+1)
		return codes.Deleted, nil
	case path[0] == "config" && method == codes.GET:
		if n.config == nil {
			return codes.NotFound, nil
		}
		return codes.Content, n.config
	case path[0] == "config" && method == codes.POST:
		if _, err := protocol.ConfigSchema.Decode(body); err != nil {
			return codes.BadRequest, nil
		}
		n.config = body
		return codes.Changed, nil
	case path[0] == "date" && method == codes.GET:
		return codes.Content, []byte(strconv.FormatInt(n.epoch, 10))
	case path[0] == "date" && method == codes.POST:
		epoch, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return codes.BadRequest, nil
		}
		n.epoch = epoch
		return codes.Changed, nil
	case path[0] == "uptime" && method == codes.GET:
		return codes.Content, []byte(strconv.FormatInt(n.uptime, 10))
	case path[0] == "routes" && method == codes.GET:
		return codes.Content, []byte(n.routes)
	case path[0] == "reboot" && method == codes.GET:
		return codes.Content, []byte(strconv.Itoa(n.reboots))
	case path[0] == "reboot" && method == codes.POST:
		n.reboots++
		return codes.Changed, nil
	}
	return codes.NotFound, nil
}

// sample finds the sample a path refers to, the latest one for "sample".
func (n *VirtualNode) sample(path []string) (*protocol.Message, int, error) {
	if len(n.samples) == 0 {
		return nil, 0, errNotFound
	}
	if len(path) == 1 {
		return n.samples[len(n.samples)-1], len(n.samples) - 1, nil
	}
	id, err := strconv.ParseUint(path[1], 10, 32)
	if err != nil {
		return nil, 0, err
	}
	for i, s := range n.samples {
		if s.Uint32(protocol.SampleID) == uint32(id) {
			return s, i, nil
		}
	}
	return nil, 0, errNotFound
}
