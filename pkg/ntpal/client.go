package ntpal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/metrics"
	"github.com/AndrewLester/ntpal-client/internal/ntp"
	"github.com/jonboulle/clockwork"
)

type (
	Packet      = ntp.Packet
	Version     = ntp.Version
	ReferenceID = ntp.ReferenceID
)

const (
	Version3    = ntp.Version3
	Version4    = ntp.Version4
	DefaultPort = ntp.DefaultPort
)

var (
	ErrInvalidArgument = ntp.ErrInvalidArgument
	ErrMalformedPacket = ntp.ErrMalformedPacket
)

// Dialer opens the datagram endpoint for one exchange. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type ClientConfig struct {
	Logger *slog.Logger
	Dialer Dialer
	Clock  clockwork.Clock

	// StampTransmit sends the local clock as the transmit timestamp, which
	// enables the offset and delay in Result.
	StampTransmit bool

	// AllowExtensions accepts replies longer than 48 bytes and keeps the
	// trailing extension, key and digest bytes.
	AllowExtensions bool
}

func (c *ClientConfig) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
}

type Client struct {
	log *slog.Logger
	cfg ClientConfig
}

func NewClient(cfg *ClientConfig) *Client {
	config := ClientConfig{}
	if cfg != nil {
		config = *cfg
	}
	config.setDefaults()

	return &Client{log: config.Logger, cfg: config}
}

var defaultClient = NewClient(nil)

type Result struct {
	Time        time.Time // server transmit time
	Packet      *Packet
	Destination time.Time // local clock when the reply was read

	// Set only when the request carried a transmit timestamp.
	Stamped bool
	Offset  time.Duration
	Delay   time.Duration
}

// BuildRequest returns the 48 byte client request for version.
func BuildRequest(version Version) ([]byte, error) {
	return ntp.EncodeRequest(version)
}

// ParseResponse decodes a 48 byte server reply.
func ParseResponse(encoded []byte) (*Packet, error) {
	return ntp.DecodeResponse(encoded)
}

// RequestTime performs one exchange with host:port using a client with
// default settings. Port 0 means 123.
func RequestTime(ctx context.Context, host string, port int, version Version) (*Result, error) {
	return defaultClient.RequestTime(ctx, host, port, version)
}

func requestAddress(host string, port int) (string, error) {
	if strings.TrimSpace(host) == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidArgument)
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", ErrInvalidArgument, port)
	}
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// RequestTime sends one request datagram and decodes exactly one reply.
// There is no retry and no timeout besides the context: cancellation or a
// context deadline unblocks the read. Errors from the dialer or socket are
// returned as they are.
func (c *Client) RequestTime(ctx context.Context, host string, port int, version Version) (*Result, error) {
	start := c.cfg.Clock.Now()

	address, err := requestAddress(host, port)
	if err != nil {
		metrics.Requests.WithLabelValues(metrics.ResultInvalidArgument).Inc()
		return nil, err
	}

	var xmt ntp.TimestampEncoded
	if c.cfg.StampTransmit {
		xmt = ntp.TimeToNTPTimestamp(start)
	}
	request, err := ntp.EncodeRequestAt(version, xmt)
	if err != nil {
		metrics.Requests.WithLabelValues(metrics.ResultInvalidArgument).Inc()
		return nil, err
	}

	c.log.Debug("ntp request", "address", address, "version", version)

	encoded, err := c.exchange(ctx, address, request)
	if err != nil {
		if ctx.Err() != nil {
			metrics.Requests.WithLabelValues(metrics.ResultCanceled).Inc()
			c.log.Debug("ntp request abandoned", "address", address, "error", ctx.Err())
			return nil, ctx.Err()
		}
		metrics.Requests.WithLabelValues(metrics.ResultTransport).Inc()
		c.log.Debug("ntp transport failure", "address", address, "error", err)
		return nil, err
	}
	dst := c.cfg.Clock.Now()

	decode := ntp.DecodeResponse
	if c.cfg.AllowExtensions {
		decode = ntp.DecodeResponseExtended
	}
	packet, err := decode(encoded)
	if err != nil {
		metrics.Requests.WithLabelValues(metrics.ResultMalformed).Inc()
		c.log.Debug("ntp reply rejected", "address", address, "length", len(encoded), "error", err)
		return nil, err
	}

	result := &Result{
		Time:        packet.TransmitTime,
		Packet:      packet,
		Destination: dst,
	}
	if c.cfg.StampTransmit {
		dstEncoded := ntp.TimeToNTPTimestamp(dst)
		result.Stamped = true
		result.Offset = ntp.Offset(xmt, packet.Header.ReceiveTime, packet.Header.TransmitTime, dstEncoded)
		result.Delay = ntp.Delay(xmt, packet.Header.ReceiveTime, packet.Header.TransmitTime, dstEncoded)
	}

	metrics.Requests.WithLabelValues(metrics.ResultOK).Inc()
	metrics.RequestDuration.Observe(dst.Sub(start).Seconds())
	metrics.ServerStratum.WithLabelValues(address).Set(float64(packet.Stratum))
	c.log.Debug("ntp reply", "address", address, "stratum", packet.Stratum, "mode", packet.Mode, "time", result.Time)

	return result, nil
}

// exchange owns the endpoint: it is closed on every return path.
func (c *Client) exchange(ctx context.Context, address string, request []byte) ([]byte, error) {
	conn, err := c.cfg.Dialer.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Expire the socket once ctx is done so a pending read returns. ctx.Err()
	// is already set by then, which is how RequestTime tells it apart.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(request); err != nil {
		return nil, err
	}

	buffer := make([]byte, ntp.MTU)
	n, err := conn.Read(buffer)
	if err != nil {
		return nil, err
	}
	return buffer[:n], nil
}

// IsTransportError reports whether err came from the network rather than
// from argument validation or decoding.
func IsTransportError(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrInvalidArgument) &&
		!errors.Is(err, ErrMalformedPacket) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
