package notify

import (
	"strings"
	"testing"
)

func TestZeroValueCenter(t *testing.T) {
	var c Center
	cmd := c.Notify("saved", Success)
	if cmd == nil {
		t.Fatal("expected an expiry command")
	}
	toasts := c.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("got %d toasts, want 1", len(toasts))
	}
	if toasts[0].Message != "saved" || toasts[0].Kind != Success {
		t.Errorf("toast = %+v", toasts[0])
	}
	if toasts[0].ID == "" {
		t.Error("toast has no id")
	}
}

func TestNilCenterIsSafe(t *testing.T) {
	var c *Center
	if cmd := c.Notify("x", Error); cmd != nil {
		t.Error("nil center should return nil cmd")
	}
	if c.Dismiss("nope") {
		t.Error("nil center dismissed something")
	}
	if c.View() != "" {
		t.Error("nil center rendered output")
	}
}

func TestUnknownKindFallsBackToInfo(t *testing.T) {
	var c Center
	c.Notify("hello", Kind("loud"))
	if got := c.Toasts()[0].Kind; got != Info {
		t.Errorf("Kind = %q, want info", got)
	}
}

func TestExpiredMsgRemovesToast(t *testing.T) {
	var c Center
	c.Notify("first", Info)
	c.Notify("second", Warning)
	id := c.Toasts()[0].ID

	if _, ok := c.Update(ExpiredMsg{ID: id}); !ok {
		t.Fatal("ExpiredMsg not handled")
	}
	toasts := c.Toasts()
	if len(toasts) != 1 || toasts[0].Message != "second" {
		t.Errorf("toasts = %+v", toasts)
	}

	// Expiring twice is harmless.
	c.Update(ExpiredMsg{ID: id})
	if len(c.Toasts()) != 1 {
		t.Error("second expiry removed another toast")
	}
}

func TestMsgRoutesIntoCenter(t *testing.T) {
	var c Center
	cmd, ok := c.Update(Msg{Message: "this role is already added", Kind: Warning})
	if !ok || cmd == nil {
		t.Fatal("Msg not handled")
	}
	if !strings.Contains(c.View(), "this role is already added") {
		t.Errorf("view = %q", c.View())
	}
}

func TestDismissNewest(t *testing.T) {
	var c Center
	c.Notify("a", Info)
	c.Notify("b", Info)
	if !c.DismissNewest() {
		t.Fatal("nothing dismissed")
	}
	if toasts := c.Toasts(); len(toasts) != 1 || toasts[0].Message != "a" {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestSendProducesMsg(t *testing.T) {
	msg := Send("hi", Error)()
	m, ok := msg.(Msg)
	if !ok {
		t.Fatalf("got %T", msg)
	}
	if m.Message != "hi" || m.Kind != Error {
		t.Errorf("msg = %+v", m)
	}
}
