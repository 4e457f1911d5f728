package dispatch

import (
	"testing"

	"gitlab.com/yawning/angelwhisper.git/errs"
)

func TestRouteKeyIsDeterministic(t *testing.T) {
	a := RouteKey("echo")
	b := RouteKey("echo")
	if a != b {
		t.Fatalf("RouteKey(%q) not deterministic: %d != %d", "echo", a, b)
	}
}

func TestRouteKeyDiffersByTag(t *testing.T) {
	if RouteKey("echo") == RouteKey("ping") {
		t.Fatal("distinct tags collided on the same route key")
	}
}

func TestParseRouteRejectsShortPayload(t *testing.T) {
	_, _, err := ParseRoute([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("ParseRoute should reject a payload shorter than 8 bytes")
	}
	var ae *errs.Error
	if !errsAs(err, &ae) || ae.Kind != errs.KindInvalidRoute {
		t.Fatalf("want KindInvalidRoute, got %v", err)
	}
}

func TestParseRouteSplitsKeyAndBody(t *testing.T) {
	payload := append(encodeRouteKey(RouteKey("echo")), []byte("hello")...)
	key, body, err := ParseRoute(payload)
	if err != nil {
		t.Fatalf("ParseRoute failed: %v", err)
	}
	if key != RouteKey("echo") {
		t.Fatalf("got key %d, want %d", key, RouteKey("echo"))
	}
	if string(body) != "hello" {
		t.Fatalf("got body %q, want %q", body, "hello")
	}
}

func TestRouterDispatchesByTag(t *testing.T) {
	r := NewRouter()
	r.Register("echo", HandlerFunc(func(_ Services, _ SessionHandle, message []byte) ([]byte, error) {
		return message, nil
	}))

	payload := append(encodeRouteKey(RouteKey("echo")), []byte("ping")...)
	out, err := r.Handle(nil, nil, payload)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if string(out) != "ping" {
		t.Fatalf("got %q, want ping", out)
	}
}

func TestRouterRejectsUnknownRoute(t *testing.T) {
	r := NewRouter()
	payload := append(encodeRouteKey(RouteKey("nope")), []byte("x")...)
	if _, err := r.Handle(nil, nil, payload); err == nil {
		t.Fatal("Handle should fail for an unregistered route key")
	}
}

func TestRouterRejectsShortMessage(t *testing.T) {
	r := NewRouter()
	r.Register("echo", HandlerFunc(func(_ Services, _ SessionHandle, message []byte) ([]byte, error) {
		return message, nil
	}))
	if _, err := r.Handle(nil, nil, []byte{1, 2, 3}); err == nil {
		t.Fatal("Handle should fail for a Message shorter than the 8-byte route prefix")
	}
}

func TestRouterRegisterPanicsOnDuplicateTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Register should panic on a duplicate tag")
		}
	}()
	r := NewRouter()
	noop := HandlerFunc(func(_ Services, _ SessionHandle, message []byte) ([]byte, error) { return message, nil })
	r.Register("echo", noop)
	r.Register("echo", noop)
}

// encodeRouteKey mirrors ParseRoute's big-endian 8-byte prefix encoding for
// test payload construction.
func encodeRouteKey(key uint64) []byte {
	b := make([]byte, routeKeyLen)
	for i := 0; i < routeKeyLen; i++ {
		b[routeKeyLen-1-i] = byte(key)
		key >>= 8
	}
	return b
}

func errsAs(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
