package angelwhisper

import (
	"context"
	"net"
	"testing"
	"time"

	"gitlab.com/yawning/angelwhisper.git/auth"
	"gitlab.com/yawning/angelwhisper.git/clientengine"
	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/dispatch"
)

func TestSystemServesOverTCP(t *testing.T) {
	serverLT, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	clientLT, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	sys, err := NewSystem(Config{
		LongTerm:      serverLT,
		Authenticator: auth.NewWhitelist(clientLT.Public),
		Handler: dispatch.HandlerFunc(func(_ dispatch.Services, _ dispatch.SessionHandle, message []byte) ([]byte, error) {
			return append([]byte("echo: "), message...), nil
		}),
	})
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go sys.RunReaper(ctx)
	go sys.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	engine := clientengine.New(clientengine.Config{
		Conn:             conn,
		ServerLongTermPK: serverLT.Public,
		OurLongTerm:      clientLT,
	})
	if err := engine.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	reply, err := engine.Request(ctx, []byte("ping"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(reply) != "echo: ping" {
		t.Fatalf("got %q, want %q", reply, "echo: ping")
	}
}

func TestSystemRejectsUnauthorisedClient(t *testing.T) {
	serverLT, _ := crypto.GenerateKeyPair()
	clientLT, _ := crypto.GenerateKeyPair()

	sys, err := NewSystem(Config{
		LongTerm:      serverLT,
		Authenticator: auth.NewWhitelist(), // nobody
		Handler: dispatch.HandlerFunc(func(_ dispatch.Services, _ dispatch.SessionHandle, message []byte) ([]byte, error) {
			return message, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go sys.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	engine := clientengine.New(clientengine.Config{
		Conn:             conn,
		ServerLongTermPK: serverLT.Public,
		OurLongTerm:      clientLT,
	})
	if err := engine.Authenticate(ctx); err == nil {
		t.Fatal("Authenticate should fail against a server that authenticates nobody")
	}
}
