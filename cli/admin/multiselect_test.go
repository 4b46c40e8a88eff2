package admin

import (
	"reflect"
	"strings"
	"testing"
)

func TestMultiSelect(t *testing.T) {
	var m MultiSelect
	m.SetOptions([]Option{{ID: 1, Label: "admin"}, {ID: 2, Label: "user"}, {ID: 3, Label: "guest"}})
	m.Set([]int{2, 2, 3})

	if got := m.Chosen(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("chosen = %v", got)
	}
	if m.Add(3) {
		t.Error("duplicate added")
	}
	if !m.Add(1) {
		t.Error("new id rejected")
	}
	if got := m.ChosenLabels(); !reflect.DeepEqual(got, []string{"user", "guest", "admin"}) {
		t.Errorf("labels = %v", got)
	}

	chosen := m.Chosen()
	chosen[0] = 99
	if m.Has(99) {
		t.Error("Chosen leaked internal slice")
	}

	m.Remove(3)
	m.Remove(42)
	if got := m.Chosen(); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Errorf("after remove = %v", got)
	}
}

func TestMultiSelectCursor(t *testing.T) {
	var m MultiSelect
	if _, ok := m.Current(); ok {
		t.Error("empty select has a current option")
	}
	m.SetOptions([]Option{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}})
	m.Up()
	if cur, _ := m.Current(); cur.ID != 1 {
		t.Errorf("current = %+v", cur)
	}
	m.Down()
	m.Down()
	if cur, _ := m.Current(); cur.ID != 2 {
		t.Errorf("current = %+v", cur)
	}

	m.SetOptions([]Option{{ID: 7, Label: "only"}})
	if cur, _ := m.Current(); cur.ID != 7 {
		t.Errorf("cursor not reset: %+v", cur)
	}
	if !strings.Contains(m.View(true), "only") {
		t.Error("option not rendered")
	}
}

func TestPopoverExpiry(t *testing.T) {
	p := Popover{name: "x"}
	p.Show("first", []string{"a"})
	stale := p.gen
	p.Show("second", []string{"b"})

	p.Update(popoverExpiredMsg{name: "x", gen: stale})
	if !p.Open() {
		t.Error("stale expiry closed the newer popover")
	}
	p.Update(popoverExpiredMsg{name: "y", gen: p.gen})
	if !p.Open() {
		t.Error("expiry for another popover closed this one")
	}
	p.Update(popoverExpiredMsg{name: "x", gen: p.gen})
	if p.Open() || p.View() != "" {
		t.Error("popover still open")
	}
}
