package telnet_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/gyaneshwarpardhi/mudbot/internal/telnet"
)

// pair dials a loopback listener and returns both ends.
func pair(t *testing.T, enc string) (*telnet.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := telnet.Dial(context.Background(), ln.Addr().String(), telnet.Options{Encoding: enc, DialTimeout: time.Second})
	require.NoError(t, err)
	var server net.Conn
	select {
	case server = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("accept timed out")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// readLine retries through idle timeouts.
func readLine(t *testing.T, c *telnet.Conn) string {
	t.Helper()
	for i := 0; i < 20; i++ {
		line, err := c.ReadLine(250 * time.Millisecond)
		if errors.Is(err, telnet.ErrIdle) {
			continue
		}
		require.NoError(t, err)
		return line
	}
	t.Fatal("no line received")
	return ""
}

func readN(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, n)
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)
	return buf
}

func TestReadLine_StripsNegotiation(t *testing.T) {
	client, server := pair(t, "utf-8")

	// IAC WILL ECHO, IAC DO NAWS, a TTYPE subnegotiation and an escaped
	// 0xFF data byte.
	stream := []byte("hello\r\n")
	stream = append(stream, 255, 251, 1, 255, 253, 31)
	stream = append(stream, []byte("wor")...)
	stream = append(stream, 255, 250, 24, 1, 255, 240)
	stream = append(stream, []byte("ld ")...)
	stream = append(stream, 255, 255)
	stream = append(stream, []byte("\r\n")...)
	_, err := server.Write(stream)
	require.NoError(t, err)

	assert.Equal(t, "hello", readLine(t, client))
	line := readLine(t, client)
	assert.True(t, len(line) >= 6 && line[:6] == "world ", "got %q", line)

	assert.Equal(t, []byte{255, 254, 1, 255, 252, 31}, readN(t, server, 6), "WILL is refused with DONT, DO with WONT")
}

func TestReadLine_PromptAndIdle(t *testing.T) {
	client, server := pair(t, "")

	_, err := client.ReadLine(50 * time.Millisecond)
	assert.ErrorIs(t, err, telnet.ErrIdle)

	_, err = server.Write([]byte("HP:100> "))
	require.NoError(t, err)
	assert.Equal(t, "HP:100> ", readLine(t, client), "a prompt without newline is delivered on timeout")
}

func TestReadLine_Closed(t *testing.T) {
	client, server := pair(t, "")
	_, err := server.Write([]byte("bye"))
	require.NoError(t, err)
	require.NoError(t, server.Close())

	assert.Equal(t, "bye", readLine(t, client))
	_, err = client.ReadLine(time.Second)
	assert.ErrorIs(t, err, telnet.ErrClosed)
}

func TestSend_SplitsSegments(t *testing.T) {
	client, server := pair(t, "")
	require.NoError(t, client.Send("get all;wield sword"))
	assert.Equal(t, "get all\r\nwield sword\r\n", string(readN(t, server, 22)))

	require.NoError(t, client.SendRaw("say a;b"))
	assert.Equal(t, "say a;b\r\n", string(readN(t, server, 9)), "raw input is not split")
}

func TestGBK(t *testing.T) {
	client, server := pair(t, "gbk")
	enc := simplifiedchinese.GBK

	wire, err := enc.NewEncoder().Bytes([]byte("你渴了。\r\n"))
	require.NoError(t, err)
	_, err = server.Write(wire)
	require.NoError(t, err)
	assert.Equal(t, "你渴了。", readLine(t, client))

	require.NoError(t, client.Send("喝水"))
	want, err := enc.NewEncoder().Bytes([]byte("喝水\r\n"))
	require.NoError(t, err)
	assert.Equal(t, want, readN(t, server, len(want)))
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "gbk", "GB18030", "big5"} {
		_, err := telnet.LookupEncoding(name)
		assert.NoError(t, err, name)
	}
	_, err := telnet.LookupEncoding("klingon")
	assert.Error(t, err)
}
