package transport

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/tbrandon/mbserver"

	"github.com/edgeclimate/acbridge/hub"
)

// startServer brings up an in-process Modbus TCP slave on the given port with
// the supported register block preloaded.
func startServer(t *testing.T, port int) *mbserver.Server {
	t.Helper()
	serv := mbserver.NewServer()
	serv.HoldingRegisters[1033] = 1
	serv.HoldingRegisters[1034] = 0
	serv.HoldingRegisters[1041] = 2
	serv.HoldingRegisters[1168] = 1

	addr := "127.0.0.1:" + strconv.Itoa(port)
	if err := serv.ListenTCP(addr); err != nil {
		t.Fatalf("ListenTCP(%s): %v", addr, err)
	}
	t.Cleanup(serv.Close)
	return serv
}

func newTestTCP(t *testing.T, port int) *TCP {
	t.Helper()
	tr := NewTCP("127.0.0.1", port, time.Second, 1)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestReadHoldingRegisters(t *testing.T) {
	startServer(t, 15502)
	tr := newTestTCP(t, 15502)

	regs, err := tr.ReadHoldingRegisters(context.Background(), 1033, 2)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters() error = %v", err)
	}
	if len(regs) != 2 || regs[0] != 1 || regs[1] != 0 {
		t.Errorf("ReadHoldingRegisters() = %v, want [1 0]", regs)
	}
}

func TestWriteSingleRegister(t *testing.T) {
	serv := startServer(t, 15503)
	tr := newTestTCP(t, 15503)
	ctx := context.Background()

	if err := tr.WriteSingleRegister(ctx, 1034, 1); err != nil {
		t.Fatalf("WriteSingleRegister() error = %v", err)
	}
	if got := serv.HoldingRegisters[1034]; got != 1 {
		t.Errorf("server register 1034 = %d, want 1", got)
	}

	regs, err := tr.ReadHoldingRegisters(ctx, 1034, 1)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters() error = %v", err)
	}
	if regs[0] != 1 {
		t.Errorf("readback = %d, want 1", regs[0])
	}
}

func TestConnectRefused(t *testing.T) {
	// Nothing listens on this port.
	tr := NewTCP("127.0.0.1", 15504, 200*time.Millisecond, 1)
	if err := tr.Connect(context.Background()); err == nil {
		tr.Close()
		t.Fatal("Connect() expected error, got nil")
	}
}

func TestCallHonorsContext(t *testing.T) {
	startServer(t, 15505)
	tr := newTestTCP(t, 15505)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.ReadHoldingRegisters(ctx, 1033, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadHoldingRegisters() error = %v, want context.Canceled", err)
	}
}

func TestHubWithTCPTransport(t *testing.T) {
	serv := startServer(t, 15506)

	h, err := hub.New("127.0.0.1",
		hub.WithPort(15506),
		hub.WithTimeout(time.Second),
		hub.WithTransportFactory(Factory()),
	)
	if err != nil {
		t.Fatalf("hub.New() error = %v", err)
	}
	defer h.Disconnect()
	ctx := context.Background()

	// Connect runs the probe read against the power register.
	if err := h.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	v, err := h.ReadRegister(ctx, 1041)
	if err != nil {
		t.Fatalf("ReadRegister() error = %v", err)
	}
	if v != 2 {
		t.Errorf("ReadRegister(1041) = %d, want 2", v)
	}

	if err := h.WriteRegister(ctx, 1168, 0, hub.WriteWithVerify()); err != nil {
		t.Fatalf("WriteRegister() error = %v", err)
	}
	if got := serv.HoldingRegisters[1168]; got != 0 {
		t.Errorf("server register 1168 = %d, want 0", got)
	}
}

func TestDecodeRegisters(t *testing.T) {
	regs := decodeRegisters([]byte{0x00, 0x01, 0x04, 0x11, 0xFF, 0xFF})
	want := []uint16{1, 0x0411, 0xFFFF}
	for i, v := range want {
		if regs[i] != v {
			t.Errorf("decodeRegisters()[%d] = %d, want %d", i, regs[i], v)
		}
	}
}
