package frame

import (
	"bytes"
	"testing"
)

func sampleFrame() *Frame {
	f := &Frame{Kind: KindHello}
	for i := range f.ID {
		f.ID[i] = byte(i)
	}
	for i := range f.Nonce {
		f.Nonce[i] = byte(i + 1)
	}
	f.Payload = bytes.Repeat([]byte{0x42}, 256)
	return f
}

func TestRoundTrip(t *testing.T) {
	f := sampleFrame()
	encoded := Encode(f)

	d := NewDecoder(0)
	d.Feed(encoded)
	got, err := d.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ID != f.ID || got.Nonce != f.Nonce || got.Kind != f.Kind {
		t.Fatalf("decoded header mismatch: %+v vs %+v", got, f)
	}
	if !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("decoded payload mismatch")
	}
}

func TestDecodeNeedsFourBytes(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte{0, 0, 0})
	if _, err := d.Decode(); err != ErrIncomplete {
		t.Fatalf("Decode() err = %v, want ErrIncomplete", err)
	}
}

func TestDecodeNeedsFullFrame(t *testing.T) {
	encoded := Encode(sampleFrame())
	d := NewDecoder(0)
	d.Feed(encoded[:len(encoded)-1])
	if _, err := d.Decode(); err != ErrIncomplete {
		t.Fatalf("Decode() err = %v, want ErrIncomplete", err)
	}
}

func TestDecodeRejectsBadKind(t *testing.T) {
	f := sampleFrame()
	f.Kind = 0
	encoded := f.Pack()
	// Hand-roll the big-endian length prefix around the packed frame.
	out := make([]byte, 4+len(encoded))
	out[2] = byte(len(encoded) >> 8)
	out[3] = byte(len(encoded))
	copy(out[4:], encoded)

	d := NewDecoder(0)
	d.Feed(out)
	_, err := d.Decode()
	var bad *BadFrameError
	if err == nil {
		t.Fatal("Decode() succeeded on kind=0")
	}
	if !isBadFrame(err, &bad) {
		t.Fatalf("Decode() err = %v, want *BadFrameError", err)
	}
}

func TestDecodeRejectsKindSeven(t *testing.T) {
	f := sampleFrame()
	f.Kind = 7
	encoded := f.Pack()
	out := make([]byte, 4+len(encoded))
	out[3] = byte(len(encoded))
	copy(out[4:], encoded)

	d := NewDecoder(0)
	d.Feed(out)
	if _, err := d.Decode(); err == nil {
		t.Fatal("Decode() succeeded on kind=7")
	}
}

func TestDecodeRejectsShortLength(t *testing.T) {
	out := make([]byte, 4+10)
	out[3] = 10 // L=10 < HeaderSize(57)
	d := NewDecoder(0)
	d.Feed(out)
	if _, err := d.Decode(); err == nil {
		t.Fatal("Decode() succeeded on L < HeaderSize")
	}
}

func TestDecodeRejectsOversizeLength(t *testing.T) {
	d := NewDecoder(100)
	prefix := make([]byte, 4)
	prefix[0] = 0xff // huge length
	d.Feed(prefix)
	if _, err := d.Decode(); err == nil {
		t.Fatal("Decode() succeeded on length exceeding policy maximum")
	}
}

func TestFragmentedStreamOneByteAtATime(t *testing.T) {
	encoded := Encode(sampleFrame())
	d := NewDecoder(0)

	var got *Frame
	for i, b := range encoded {
		d.Feed([]byte{b})
		f, err := d.Decode()
		if err == ErrIncomplete {
			if i == len(encoded)-1 {
				t.Fatal("expected a frame after the final byte")
			}
			continue
		}
		if err != nil {
			t.Fatalf("Decode failed mid-stream: %v", err)
		}
		if i != len(encoded)-1 {
			t.Fatalf("frame decoded early, after byte %d of %d", i, len(encoded))
		}
		got = f
	}
	if got == nil {
		t.Fatal("never decoded a frame")
	}
}

func TestTwoFramesInOneBuffer(t *testing.T) {
	f1 := sampleFrame()
	f2 := sampleFrame()
	f2.Kind = KindInitiate

	buf := append(Encode(f1), Encode(f2)...)
	d := NewDecoder(0)
	d.Feed(buf)

	got1, err := d.Decode()
	if err != nil {
		t.Fatalf("decode frame 1: %v", err)
	}
	got2, err := d.Decode()
	if err != nil {
		t.Fatalf("decode frame 2: %v", err)
	}
	if got1.Kind != KindHello || got2.Kind != KindInitiate {
		t.Fatalf("frames decoded out of order: %v, %v", got1.Kind, got2.Kind)
	}
	if _, err := d.Decode(); err != ErrIncomplete {
		t.Fatalf("expected ErrIncomplete after draining both frames, got %v", err)
	}
}

func isBadFrame(err error, target **BadFrameError) bool {
	b, ok := err.(*BadFrameError)
	if ok {
		*target = b
	}
	return ok
}
