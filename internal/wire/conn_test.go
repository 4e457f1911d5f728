package wire

import (
	"net"
	"testing"

	"gitlab.com/yawning/angelwhisper.git/frame"
)

func TestFrameConnRoundTrip(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	client := NewFrameConn(clientRaw, 0)
	server := NewFrameConn(serverRaw, 0)

	want := &frame.Frame{Kind: frame.KindMessage, Payload: []byte("hello")}
	errc := make(chan error, 1)
	go func() { errc <- client.WriteFrame(want) }()

	got, err := server.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if got.Kind != want.Kind || string(got.Payload) != string(want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFrameConnReadFragmented(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	client := NewFrameConn(clientRaw, 0)
	server := NewFrameConn(serverRaw, 0)

	want := &frame.Frame{Kind: frame.KindHello, Payload: make([]byte, 256)}
	encoded := frame.Encode(want)

	go func() {
		for _, b := range encoded {
			_, _ = clientRaw.Write([]byte{b})
		}
	}()

	got, err := server.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got.Kind != want.Kind || len(got.Payload) != len(want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	_ = client
}

func TestFrameConnCloseIdempotent(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer serverRaw.Close()
	client := NewFrameConn(clientRaw, 0)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
