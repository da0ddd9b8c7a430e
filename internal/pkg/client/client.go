package client

import (
	"context"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client drives one side of an ext_proc processing stream. It exists
// for demos and integration tests; it is not part of the serving path.
type Client struct {
	target  string
	conn    *grpc.ClientConn
	channel extprocv3.ExternalProcessor_ProcessClient
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithTarget sets the server address to connect to.
func WithTarget(target string) Cfg {
	return func(c *Client) error {
		c.target = target
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if client.target == "" {
		return nil, errors.New("no target configured")
	}
	return client, nil
}

// Connect dials the plaintext listener and opens a processing stream.
func (c *Client) Connect(ctx context.Context) error {
	var err error
	c.conn, err = grpc.DialContext(ctx,
		c.target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.target)
	}
	c.channel, err = extprocv3.NewExternalProcessorClient(c.conn).Process(ctx)
	if err != nil {
		return errors.Wrap(err, "open processing stream failed")
	}
	return nil
}

// Close half-closes the stream and tears down the connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.CloseSend(); err != nil {
			return errors.Wrap(err, "close send failed")
		}
	}
	if c.conn != nil {
		return errors.Wrap(c.conn.Close(), "close client connection failed")
	}
	return nil
}

// RoundTrip sends one processing request and waits for its response.
func (c *Client) RoundTrip(req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	if c.channel == nil {
		return nil, ErrNotConnected
	}
	if err := c.channel.Send(req); err != nil {
		return nil, errors.Wrap(err, "send request failed")
	}
	resp, err := c.channel.Recv()
	if err != nil {
		return nil, errors.Wrap(err, "receive response failed")
	}
	return resp, nil
}

// RequestHeaders submits a request-headers phase message.
func (c *Client) RequestHeaders(headers map[string]string) (*extprocv3.ProcessingResponse, error) {
	return c.RoundTrip(NewRequestHeaders(headers))
}

// ResponseHeaders submits a response-headers phase message.
func (c *Client) ResponseHeaders(headers map[string]string) (*extprocv3.ProcessingResponse, error) {
	return c.RoundTrip(NewResponseHeaders(headers))
}

// RequestBody submits a request-body phase message.
func (c *Client) RequestBody(body []byte, endOfStream bool) (*extprocv3.ProcessingResponse, error) {
	return c.RoundTrip(NewRequestBody(body, endOfStream))
}

// ResponseBody submits a response-body phase message.
func (c *Client) ResponseBody(body []byte, endOfStream bool) (*extprocv3.ProcessingResponse, error) {
	return c.RoundTrip(NewResponseBody(body, endOfStream))
}
