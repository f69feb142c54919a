package ntpal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/ntp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// startServer runs a loopback UDP responder. reply may return nil to stay silent.
func startServer(t *testing.T, reply func(request []byte) []byte) (string, int, <-chan []byte) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	requests := make(chan []byte, 8)
	go func() {
		buffer := make([]byte, ntp.MTU)
		for {
			n, addr, err := conn.ReadFrom(buffer)
			if err != nil {
				return
			}
			request := bytes.Clone(buffer[:n])
			select {
			case requests <- request:
			default:
			}
			if encoded := reply(request); encoded != nil {
				conn.WriteTo(encoded, addr)
			}
		}
	}()

	return "127.0.0.1", conn.LocalAddr().(*net.UDPAddr).Port, requests
}

func serverReply(request []byte) ntp.Header {
	return ntp.Header{
		Settings:       0<<6 | 4<<3 | byte(ntp.SERVER),
		Stratum:        2,
		Poll:           6,
		Precision:      -25,
		RootDelay:      26214,
		RootDispersion: 1638,
		ReferenceID:    134744072,
		ReferenceTime:  0xE8C7224000000000,
		OriginTime:     binary.BigEndian.Uint64(request[40:48]),
		ReceiveTime:    0xE8C7224C80000000,
		TransmitTime:   0xE8C7224C90000000,
	}
}

func staticServer(request []byte) []byte {
	return ntp.EncodeHeader(serverReply(request))
}

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

type trackingDialer struct {
	net.Dialer

	mu    sync.Mutex
	conns []*trackedConn
}

func (d *trackingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	tracked := &trackedConn{Conn: conn}

	d.mu.Lock()
	d.conns = append(d.conns, tracked)
	d.mu.Unlock()

	return tracked, nil
}

func (d *trackingDialer) requireAllClosed(t *testing.T, expected int) {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.conns, expected)
	for _, conn := range d.conns {
		require.True(t, conn.closed.Load())
	}
}

type failingDialer struct {
	calls atomic.Int32
	err   error
}

func (d *failingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls.Add(1)
	return nil, d.err
}

type writeFailConn struct {
	net.Conn
	err error
}

func (c *writeFailConn) Write([]byte) (int, error) { return 0, c.err }
func (c *writeFailConn) Close() error              { return nil }

type connDialer struct {
	conn net.Conn
}

func (d *connDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return d.conn, nil
}

func TestClient_RequestTime(t *testing.T) {
	t.Parallel()

	host, port, requests := startServer(t, staticServer)
	dialer := &trackingDialer{}
	client := NewClient(&ClientConfig{Dialer: dialer})

	result, err := client.RequestTime(context.Background(), host, port, Version4)
	require.NoError(t, err)

	request := <-requests
	require.Len(t, request, ntp.PacketLength)
	require.Equal(t, byte(0x23), request[0])
	require.Equal(t, make([]byte, 47), request[1:])

	require.Equal(t, int64(1696375756562), result.Time.UnixMilli())
	require.Equal(t, result.Time, result.Packet.TransmitTime)
	require.Equal(t, ntp.SERVER, result.Packet.Mode)
	require.Equal(t, uint8(2), result.Packet.Stratum)
	require.Equal(t, uint8(6), result.Packet.Poll)
	require.Equal(t, int8(-25), result.Packet.Precision)
	require.Equal(t, ntp.ShortEncoded(26214), result.Packet.RootDelay)
	require.Equal(t, ntp.ShortEncoded(1638), result.Packet.RootDispersion)
	require.Equal(t, ReferenceID(134744072), result.Packet.ReferenceID)
	require.Equal(t, int64(0), result.Packet.OriginTime.UnixMilli())
	require.False(t, result.Stamped)
	require.Zero(t, result.Offset)

	dialer.requireAllClosed(t, 1)
}

func TestClient_RequestTime_VersionIsReadFromWire(t *testing.T) {
	t.Parallel()

	host, port, requests := startServer(t, staticServer)

	result, err := NewClient(nil).RequestTime(context.Background(), host, port, Version3)
	require.NoError(t, err)
	require.Equal(t, byte(0x1B), (<-requests)[0])
	require.Equal(t, Version4, result.Packet.Version)
}

func TestRequestTime_DefaultClient(t *testing.T) {
	t.Parallel()

	host, port, _ := startServer(t, staticServer)

	result, err := RequestTime(context.Background(), host, port, Version4)
	require.NoError(t, err)
	require.Equal(t, "8.8.8.8", result.Packet.Reference())
}

func TestClient_RequestTime_InvalidArgumentsDoNoIO(t *testing.T) {
	t.Parallel()

	dialer := &failingDialer{err: errors.New("should not dial")}
	client := NewClient(&ClientConfig{Dialer: dialer})

	gold := []struct {
		host    string
		port    int
		version Version
	}{
		{"", 123, Version4},
		{"   ", 123, Version4},
		{"localhost", -1, Version4},
		{"localhost", 65536, Version4},
		{"localhost", 123, 2},
		{"localhost", 123, 5},
		{"localhost", 123, 0},
	}

	for _, p := range gold {
		result, err := client.RequestTime(context.Background(), p.host, p.port, p.version)
		require.Nil(t, result)
		require.ErrorIs(t, err, ErrInvalidArgument, "%+v", p)
		require.False(t, IsTransportError(err))
	}
	require.Zero(t, dialer.calls.Load())
}

func TestClient_RequestTime_ZeroPortMeansDefault(t *testing.T) {
	t.Parallel()

	var dialed string
	dialer := &failingDialer{err: errors.New("offline")}
	client := NewClient(&ClientConfig{Dialer: dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		dialed = network + " " + address
		return dialer.DialContext(ctx, network, address)
	})})

	_, err := client.RequestTime(context.Background(), "time.example.com", 0, Version4)
	require.Error(t, err)
	require.Equal(t, "udp time.example.com:123", dialed)
}

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

func TestClient_RequestTime_TransportErrorsAreUnchanged(t *testing.T) {
	t.Parallel()

	errDial := errors.New("dial failed")
	result, err := NewClient(&ClientConfig{Dialer: &failingDialer{err: errDial}}).
		RequestTime(context.Background(), "localhost", 123, Version4)
	require.Nil(t, result)
	require.True(t, err == errDial)
	require.True(t, IsTransportError(err))

	errWrite := errors.New("write failed")
	result, err = NewClient(&ClientConfig{Dialer: &connDialer{conn: &writeFailConn{err: errWrite}}}).
		RequestTime(context.Background(), "localhost", 123, Version4)
	require.Nil(t, result)
	require.True(t, err == errWrite)
	require.False(t, errors.Is(err, ErrMalformedPacket))
}

func TestClient_RequestTime_MalformedReply(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 47, 49, 68} {
		length := length
		host, port, _ := startServer(t, func([]byte) []byte { return make([]byte, length) })
		dialer := &trackingDialer{}

		result, err := NewClient(&ClientConfig{Dialer: dialer}).RequestTime(context.Background(), host, port, Version4)
		require.Nil(t, result)
		require.ErrorIs(t, err, ErrMalformedPacket, "length %d", length)
		require.ErrorContains(t, err, "invalid length")
		require.False(t, IsTransportError(err))
		dialer.requireAllClosed(t, 1)
	}
}

func TestClient_RequestTime_AllowExtensions(t *testing.T) {
	t.Parallel()

	host, port, _ := startServer(t, func(request []byte) []byte {
		reply := staticServer(request)
		reply = append(reply, 0, 0, 0, 0, 0, 0, 0, 0)
		reply = append(reply, 0, 0, 0, 7)
		return append(reply, bytes.Repeat([]byte{0xD1}, 16)...)
	})

	result, err := NewClient(&ClientConfig{AllowExtensions: true}).RequestTime(context.Background(), host, port, Version4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 7}, result.Packet.KeyIdentifier)
	require.Equal(t, bytes.Repeat([]byte{0xD1}, 16), result.Packet.Digest)

	_, err = NewClient(nil).RequestTime(context.Background(), host, port, Version4)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestClient_RequestTime_CancelReleasesEndpoint(t *testing.T) {
	t.Parallel()

	host, port, requests := startServer(t, func([]byte) []byte { return nil })
	dialer := &trackingDialer{}
	client := NewClient(&ClientConfig{Dialer: dialer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-requests
		cancel()
	}()

	result, err := client.RequestTime(ctx, host, port, Version4)
	require.Nil(t, result)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsTransportError(err))
	dialer.requireAllClosed(t, 1)
}

func TestClient_RequestTime_DeadlineReleasesEndpoint(t *testing.T) {
	t.Parallel()

	host, port, _ := startServer(t, func([]byte) []byte { return nil })
	dialer := &trackingDialer{}
	client := NewClient(&ClientConfig{Dialer: dialer})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := client.RequestTime(ctx, host, port, Version4)
	require.Nil(t, result)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	dialer.requireAllClosed(t, 1)
}

func TestClient_RequestTime_StampTransmit(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.UnixMilli(1696375756000))
	host, port, requests := startServer(t, func(request []byte) []byte {
		header := serverReply(request)
		header.ReceiveTime = header.OriginTime + 2<<32
		header.TransmitTime = header.ReceiveTime
		return ntp.EncodeHeader(header)
	})

	client := NewClient(&ClientConfig{Clock: clock, StampTransmit: true})
	result, err := client.RequestTime(context.Background(), host, port, Version4)
	require.NoError(t, err)

	request := <-requests
	require.Equal(t, ntp.TimeToNTPTimestamp(clock.Now()), binary.BigEndian.Uint64(request[40:48]))

	require.True(t, result.Stamped)
	require.Equal(t, clock.Now().UnixMilli(), result.Packet.OriginTime.UnixMilli())
	require.Equal(t, clock.Now(), result.Destination)
	require.Equal(t, 2*time.Second, result.Offset)
	require.Equal(t, time.Duration(0), result.Delay)
	require.Equal(t, int64(1696375758000), result.Time.UnixMilli())
}

func TestBuildRequestParseResponse(t *testing.T) {
	t.Parallel()

	request, err := BuildRequest(Version4)
	require.NoError(t, err)
	require.Len(t, request, 48)

	packet, err := ParseResponse(request)
	require.NoError(t, err)
	require.Equal(t, Version4, packet.Version)
	require.Equal(t, ntp.CLIENT, packet.Mode)
	require.Equal(t, ntp.LEAP_NONE, packet.Leap)
	require.Equal(t, int64(0), packet.TransmitTime.UnixMilli())

	_, err = BuildRequest(6)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseResponse(request[:47])
	require.ErrorIs(t, err, ErrMalformedPacket)
}
