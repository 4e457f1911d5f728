package dispatch

import (
	"context"
	"testing"

	"gitlab.com/yawning/angelwhisper.git/auth"
	"gitlab.com/yawning/angelwhisper.git/crypto"
	"gitlab.com/yawning/angelwhisper.git/errs"
	"gitlab.com/yawning/angelwhisper.git/frame"
	"gitlab.com/yawning/angelwhisper.git/registry"
	"gitlab.com/yawning/angelwhisper.git/session"
)

func echoHandler() Handler {
	return HandlerFunc(func(_ Services, _ SessionHandle, message []byte) ([]byte, error) {
		if string(message) != "ping" {
			return nil, errs.NewError(errs.KindInvalidRoute, "unexpected message")
		}
		return []byte("pong"), nil
	})
}

func newTestDispatcher(t *testing.T, authn auth.Authenticator, h Handler) (*Dispatcher, crypto.KeyPair) {
	t.Helper()
	serverLT, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	d := New(Config{
		Store:          registry.New(),
		Authenticator:  authn,
		Handler:        h,
		ServerLongTerm: serverLT,
	})
	return d, serverLT
}

func TestHandshakeAndPingPong(t *testing.T) {
	clientLT, _ := crypto.GenerateKeyPair()
	whitelist := auth.NewWhitelist(clientLT.Public)
	d, serverLT := newTestDispatcher(t, whitelist, echoHandler())

	client, err := session.NewClient(serverLT.Public, clientLT)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	hello, err := client.MakeHello()
	if err != nil {
		t.Fatalf("MakeHello failed: %v", err)
	}
	welcome, err := d.Dispatch(context.Background(), hello)
	if err != nil {
		t.Fatalf("Dispatch(Hello) failed: %v", err)
	}

	initiate, err := client.MakeInitiate(welcome)
	if err != nil {
		t.Fatalf("MakeInitiate failed: %v", err)
	}
	ready, err := d.Dispatch(context.Background(), initiate)
	if err != nil {
		t.Fatalf("Dispatch(Initiate) failed: %v", err)
	}

	if err := client.ReadReady(ready); err != nil {
		t.Fatalf("ReadReady failed: %v", err)
	}

	msg, err := client.MakeMessage([]byte("ping"))
	if err != nil {
		t.Fatalf("MakeMessage failed: %v", err)
	}
	reply, err := d.Dispatch(context.Background(), msg)
	if err != nil {
		t.Fatalf("Dispatch(Message) failed: %v", err)
	}
	got, err := client.ReadMsg(reply)
	if err != nil {
		t.Fatalf("ReadMsg failed: %v", err)
	}
	if string(got) != "pong" {
		t.Fatalf("got %q, want pong", got)
	}
}

func TestUnauthorisedClientNeverReachesReady(t *testing.T) {
	clientLT, _ := crypto.GenerateKeyPair()
	emptyWhitelist := auth.NewWhitelist() // nobody allowed
	d, serverLT := newTestDispatcher(t, emptyWhitelist, echoHandler())

	client, _ := session.NewClient(serverLT.Public, clientLT)
	hello, _ := client.MakeHello()
	welcome, err := d.Dispatch(context.Background(), hello)
	if err != nil {
		t.Fatalf("Dispatch(Hello) failed: %v", err)
	}
	initiate, err := client.MakeInitiate(welcome)
	if err != nil {
		t.Fatalf("MakeInitiate failed: %v", err)
	}

	if _, err := d.Dispatch(context.Background(), initiate); err == nil {
		t.Fatal("Dispatch(Initiate) should fail when the authenticator rejects the client")
	}
}

func TestReplayedHelloRejected(t *testing.T) {
	clientLT, _ := crypto.GenerateKeyPair()
	d, serverLT := newTestDispatcher(t, auth.AllowAll, echoHandler())

	client, _ := session.NewClient(serverLT.Public, clientLT)
	hello, _ := client.MakeHello()

	if _, err := d.Dispatch(context.Background(), hello); err != nil {
		t.Fatalf("first Dispatch(Hello) failed: %v", err)
	}
	if _, err := d.Dispatch(context.Background(), hello); err == nil {
		t.Fatal("replayed Hello with the same short-term key should be rejected")
	}
}

func TestMessageBeforeReadyRejected(t *testing.T) {
	clientLT, _ := crypto.GenerateKeyPair()
	d, serverLT := newTestDispatcher(t, auth.AllowAll, echoHandler())

	client, _ := session.NewClient(serverLT.Public, clientLT)
	hello, _ := client.MakeHello()
	if _, err := d.Dispatch(context.Background(), hello); err != nil {
		t.Fatalf("Dispatch(Hello) failed: %v", err)
	}

	// The session exists (Fresh) but Ready hasn't happened; a Message
	// can't even be produced without CanSend(), so build a bogus one.
	bogus, err := session.NewClient(serverLT.Public, clientLT)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_ = bogus
	if _, err := client.MakeMessage([]byte("too soon")); err == nil {
		t.Fatal("client should not be able to build a Message before Ready")
	}
	bogusMsg := &frame.Frame{ID: hello.ID, Kind: frame.KindMessage, Payload: make([]byte, 32)}
	if _, err := d.Dispatch(context.Background(), bogusMsg); err == nil {
		t.Fatal("Dispatch(Message) should fail for a session that never reached Ready")
	}
}

func TestInitiateWithNoSessionRejected(t *testing.T) {
	clientLT, _ := crypto.GenerateKeyPair()
	d, serverLT := newTestDispatcher(t, auth.AllowAll, echoHandler())

	client, _ := session.NewClient(serverLT.Public, clientLT)
	hello, _ := client.MakeHello()
	welcome, err := d.Dispatch(context.Background(), hello)
	if err != nil {
		t.Fatalf("Dispatch(Hello) failed: %v", err)
	}
	initiate, err := client.MakeInitiate(welcome)
	if err != nil {
		t.Fatalf("MakeInitiate failed: %v", err)
	}

	// Fresh dispatcher: no Hello was ever sent to it.
	d2, _ := newTestDispatcher(t, auth.AllowAll, echoHandler())
	if _, err := d2.Dispatch(context.Background(), initiate); err == nil {
		t.Fatal("Initiate for a nonexistent session should be rejected")
	}
}

func TestWelcomeReadyTerminationUnreachableAtServer(t *testing.T) {
	d, _ := newTestDispatcher(t, auth.AllowAll, echoHandler())
	for _, k := range []frame.Kind{frame.KindWelcome, frame.KindReady, frame.KindTermination} {
		f := &frame.Frame{Kind: k}
		if _, err := d.Dispatch(context.Background(), f); err == nil {
			t.Fatalf("Dispatch should reject kind %d arriving at the server", k)
		}
	}
}
