package osc

import (
	"context"
	"net"

	"github.com/hypebeast/go-osc/osc"
)

// HandlerFunc receives one control message: an OSC address and its first
// numeric argument.
type HandlerFunc func(address string, value float64)

// dispatcher routes incoming OSC packets to a HandlerFunc. Bundles are
// flattened; messages without a usable numeric first argument are dropped
// silently, matching the control plane's best-effort semantics.
type dispatcher struct {
	handler HandlerFunc
}

func (d dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.dispatchMessage(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			d.dispatchMessage(msg)
		}
		for _, bundle := range p.Bundles {
			d.Dispatch(bundle)
		}
	}
}

func (d dispatcher) dispatchMessage(msg *osc.Message) {
	if msg == nil || len(msg.Arguments) == 0 {
		return
	}
	value, ok := numericArgument(msg.Arguments[0])
	if !ok {
		return
	}
	d.handler(msg.Address, value)
}

// numericArgument converts any numeric OSC argument type to float64.
func numericArgument(arg interface{}) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Server receives control messages over UDP and forwards them to the
// handler. Each datagram is dispatched synchronously; concurrent peers may
// overlap, which the bridge's output state is built to tolerate.
type Server struct {
	addr    string
	handler HandlerFunc
}

// NewServer creates a server listening on the given UDP address, e.g.
// "0.0.0.0:7000".
func NewServer(addr string, handler HandlerFunc) *Server {
	return &Server{addr: addr, handler: handler}
}

// ListenAndServe serves control messages until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return err
	}

	server := &osc.Server{
		Addr:       s.addr,
		Dispatcher: dispatcher{handler: s.handler},
	}

	// Closing the connection is the only way to unblock Serve.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := server.Serve(conn); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}
