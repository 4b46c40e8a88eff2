package model

import (
	"encoding/json"
	"testing"
)

func TestUsageKeepsOrder(t *testing.T) {
	in := Interaction{
		Description: "adds numbers",
		Usage:       Usage{{Name: "z", Prompt: "last letter"}, {Name: "a", Prompt: "first \"letter\""}},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"description":"adds numbers","usage":{"z":"last letter","a":"first \"letter\""}}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestEmptyUsage(t *testing.T) {
	data, err := json.Marshal(Interaction{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"description":"","usage":{}}` {
		t.Errorf("got %s", data)
	}
}
