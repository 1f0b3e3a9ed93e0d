// Package telnet is a minimal line-oriented telnet client for MUD sessions.
//
// It refuses every option the server offers, strips protocol commands from
// the data stream and converts between the wire charset and UTF-8.
package telnet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrIdle means the read timeout passed with no data buffered.
	ErrIdle = errors.New("telnet: no data before read timeout")
	// ErrClosed means the remote side closed the connection or it failed.
	ErrClosed = errors.New("telnet: connection closed")
)

const writeTimeout = 10 * time.Second

// Options configures Dial.
type Options struct {
	// Encoding is a WHATWG charset label such as "gbk" or "utf-8".
	// Empty means UTF-8.
	Encoding    string
	DialTimeout time.Duration
}

// Conn is a telnet connection. ReadLine must be called from one goroutine;
// Send and SendRaw may be called concurrently with it.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	enc  encoding.Encoding
	wmu  sync.Mutex
}

// Dial connects to addr ("host:port").
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	d := net.Dialer{Timeout: opts.DialTimeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(c, enc), nil
}

// NewConn wraps an established connection.
func NewConn(c net.Conn, enc encoding.Encoding) *Conn {
	tc := &Conn{conn: c, enc: enc}
	tc.r = bufio.NewReader(&filter{src: c, reply: tc.write})
	return tc
}

// LookupEncoding resolves a WHATWG charset label.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// ReadLine returns the next line without its terminator. If timeout passes
// with a partial line buffered (a prompt), the partial line is returned; with
// nothing buffered it returns ErrIdle. Any other failure wraps ErrClosed.
func (c *Conn) ReadLine(timeout time.Duration) (string, error) {
	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	raw, err := c.r.ReadBytes('\n')
	if err == nil {
		return c.decode(raw), nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if len(raw) == 0 {
			return "", ErrIdle
		}
		return c.decode(raw), nil
	}
	if len(raw) > 0 {
		// Deliver the tail now; the next call reports the failure again.
		return c.decode(raw), nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return "", ErrClosed
	}
	return "", fmt.Errorf("%w: %v", ErrClosed, err)
}

// Send writes msg with each ';'-separated segment on its own line.
func (c *Conn) Send(msg string) error {
	var buf bytes.Buffer
	for _, seg := range strings.Split(msg, ";") {
		buf.Write(c.encode(seg))
		buf.WriteString("\r\n")
	}
	return c.write(buf.Bytes())
}

// SendRaw writes line verbatim as a single line.
func (c *Conn) SendRaw(line string) error {
	return c.write(append(c.encode(line), '\r', '\n'))
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (c *Conn) decode(raw []byte) string {
	raw = bytes.TrimRight(raw, "\r\n")
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func (c *Conn) encode(s string) []byte {
	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		out = []byte(s)
	}
	// A data byte 0xFF must be doubled on the wire.
	return bytes.ReplaceAll(out, []byte{iac}, []byte{iac, iac})
}
