package hostsys

import "testing"

func TestDeviceName(t *testing.T) {
	h := New()
	if h.DeviceName() != "" {
		t.Fatalf("DeviceName() = %q, want empty", h.DeviceName())
	}
	h.SetDeviceName("bench-01")
	if h.DeviceName() != "bench-01" {
		t.Fatalf("DeviceName() = %q, want bench-01", h.DeviceName())
	}
}

func TestCurrentMicrosecondsMonotonic(t *testing.T) {
	h := New()
	first := h.CurrentMicroseconds()
	second := h.CurrentMicroseconds()
	if second < first {
		t.Fatalf("CurrentMicroseconds went backwards: %d then %d", first, second)
	}
}

func TestUnsupportedSurfacesFail(t *testing.T) {
	h := New()
	if h.FileSystem().Mount() {
		t.Fatal("Mount() should fail on a host with no storage")
	}
	if h.GPIO().DigitalRead(0) {
		t.Fatal("DigitalRead() should report false with no pins")
	}
	if _, err := h.CreateTCP(nil, 80, [4]byte{}); err != ErrNotSupported {
		t.Fatalf("CreateTCP err = %v, want ErrNotSupported", err)
	}
	if _, err := h.CreateUDP(nil, 53); err != ErrNotSupported {
		t.Fatalf("CreateUDP err = %v, want ErrNotSupported", err)
	}
}
