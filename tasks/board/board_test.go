package board

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ringos/hal"
	"ringos/kernel"
	"ringos/proto"
)

type manualClock struct{ ms uint32 }

func (c *manualClock) Millis() uint32 { return c.ms }

type fixture struct {
	k    *kernel.Kernel
	h    *hal.Host
	task *Task
	clk  *manualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, err := hal.NewHost(hal.HostOptions{Out: io.Discard, Width: 160, Height: 80})
	if err != nil {
		t.Fatalf("NewHost() = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	f := &fixture{
		k:   kernel.New(kernel.Config{MaxMessageID: proto.MaxID, MaxMessagesPerTick: 8}),
		h:   h,
		clk: &manualClock{},
	}
	f.task, err = New(f.k, h.Display().Framebuffer(), f.clk, 500*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := f.task.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	return f
}

func (f *fixture) pixel(x, y int) rgb {
	fb := f.h.Display().Framebuffer()
	snap := make([]byte, len(fb.Buffer()))
	f.h.SnapshotFramebuffer(snap)
	i := y*fb.StrideBytes() + x*2
	r, g, b := hal.RGB888From565(uint16(snap[i]) | uint16(snap[i+1])<<8)
	return rgb{r, g, b}
}

func (f *fixture) post(id kernel.ID, payload any) {
	_ = f.k.Queue().Post(id, payload, kernel.CallerOwns, kernel.TaskContext)
}

func TestLEDLamp(t *testing.T) {
	f := newFixture(t)
	lampX, lampY := margin+lamp/2, margin+lamp/2

	f.k.Step()
	if f.pixel(lampX, lampY) == colLEDOn {
		t.Fatal("lamp lit before any LED change")
	}

	f.post(proto.MsgLEDChanged, true)
	f.k.Step()
	if got := f.pixel(lampX, lampY); got != colLEDOn {
		t.Fatalf("lamp = %v, want %v", got, colLEDOn)
	}

	f.post(proto.MsgLEDChanged, false)
	f.k.Step()
	if f.pixel(lampX, lampY) == colLEDOn {
		t.Fatal("lamp still lit after LED off")
	}
}

func TestButtonFlashExpires(t *testing.T) {
	f := newFixture(t)
	bx, by := 2*margin+lamp+1, margin+1

	f.post(proto.MsgButton, nil)
	f.k.Step()
	if got := f.pixel(bx, by); got != colButton {
		t.Fatalf("button lamp = %v, want %v", got, colButton)
	}

	f.clk.ms = 201
	f.k.Step()
	if f.pixel(bx, by) == colButton {
		t.Fatal("button lamp still lit after flash")
	}
}

func TestLogCells(t *testing.T) {
	f := newFixture(t)
	y := 2*margin + lamp + 1
	cellX := func(i int) int { return margin + i*(cell+cellGap) + 1 }

	for i := 0; i < 2; i++ {
		f.post(proto.MsgLogLine, &proto.Line{Text: "x"})
	}
	f.k.Step()

	if f.task.Lines() != 2 {
		t.Fatalf("Lines() = %d, want 2", f.task.Lines())
	}
	if got := f.pixel(cellX(0), y); got != colLog {
		t.Fatalf("cell 0 = %v, want %v", got, colLog)
	}
	if got := f.pixel(cellX(1), y); got != colLogRecent {
		t.Fatalf("cell 1 = %v, want %v", got, colLogRecent)
	}
	if got := f.pixel(cellX(2), y); got == colLog || got == colLogRecent {
		t.Fatalf("cell 2 = %v, want idle", got)
	}
}

func TestPeriodBar(t *testing.T) {
	f := newFixture(t)
	y := 3*margin + lamp + cell + 1

	f.k.Step()
	// 500ms at 5ms per pixel.
	if got := f.pixel(margin+99, y); got != colPeriod {
		t.Fatalf("bar pixel 99 = %v, want %v", got, colPeriod)
	}
	if got := f.pixel(margin+100, y); got == colPeriod {
		t.Fatal("bar longer than 100px for 500ms")
	}

	f.post(proto.MsgPeriodChanged, 2*time.Second)
	f.k.Step()
	if got := f.pixel(160-margin-1, y); got != colPeriod {
		t.Fatalf("clamped bar end = %v, want %v", got, colPeriod)
	}
	if got := f.pixel(160-margin, y); got == colPeriod {
		t.Fatal("bar ran into the right margin")
	}

	f.post(proto.MsgPeriodChanged, 250*time.Millisecond)
	f.k.Step()
	if got := f.pixel(margin+49, y); got != colPeriod {
		t.Fatalf("bar pixel 49 = %v, want %v", got, colPeriod)
	}
	if got := f.pixel(margin+51, y); got == colPeriod {
		t.Fatal("bar longer than 50px for 250ms")
	}
}
