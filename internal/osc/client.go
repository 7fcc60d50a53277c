// Package osc wraps the go-osc UDP client and server behind the small
// sender/handler surfaces the bridge engine consumes, keeping OSC wire
// details out of the protocol core.
package osc

import (
	"github.com/hypebeast/go-osc/osc"
)

// Client sends telemetry messages to a single OSC listener over UDP.
type Client struct {
	client *osc.Client
}

// NewClient creates a client sending to the given host and port.
func NewClient(host string, port int) *Client {
	return &Client{client: osc.NewClient(host, port)}
}

// Send emits one single-float OSC message. OSC floats are 32-bit on the
// wire (type tag "f"), so the value is narrowed here.
func (c *Client) Send(address string, value float64) error {
	msg := osc.NewMessage(address)
	msg.Append(float32(value))
	return c.client.Send(msg)
}
