package cell

import (
	"reflect"
	"testing"
)

func TestDecodeSplitsTasksAndNote(t *testing.T) {
	content := Decode("Feed goats, Clean barn\nBring gloves")
	if !reflect.DeepEqual(content.Tasks, []string{"Feed goats", "Clean barn"}) {
		t.Fatalf("unexpected tasks: %#v", content.Tasks)
	}
	if content.Note != "Bring gloves" {
		t.Fatalf("unexpected note: %q", content.Note)
	}
}

func TestDecodeToleratesLegacyValues(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		tasks []string
		note  string
	}{
		{name: "empty", raw: "", tasks: nil, note: ""},
		{name: "whitespace only", raw: "   ", tasks: nil, note: ""},
		{name: "trailing comma", raw: "Feed goats,", tasks: []string{"Feed goats"}, note: ""},
		{name: "double comma", raw: "Feed goats,, Clean barn", tasks: []string{"Feed goats", "Clean barn"}, note: ""},
		{name: "day-off dash", raw: "-", tasks: nil, note: ""},
		{name: "dash among tasks", raw: "Feed goats, -, Clean barn", tasks: []string{"Feed goats", "Clean barn"}, note: ""},
		{name: "note only", raw: "\nSee Ana first", tasks: nil, note: "See Ana first"},
		{name: "multi-line note", raw: "Feed goats\nFirst line\nSecond line", tasks: []string{"Feed goats"}, note: "First line\nSecond line"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := Decode(tc.raw)
			if !reflect.DeepEqual(content.Tasks, tc.tasks) {
				t.Fatalf("tasks = %#v, want %#v", content.Tasks, tc.tasks)
			}
			if content.Note != tc.note {
				t.Fatalf("note = %q, want %q", content.Note, tc.note)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Content{
		{Tasks: []string{"Feed goats"}},
		{Tasks: []string{"Feed goats", "Clean barn"}},
		{Tasks: []string{"Feed goats", "Clean barn"}, Note: "Watch the gate"},
		{Note: "Day off next week"},
		{},
	}
	for _, original := range cases {
		raw := Encode(original)
		decoded := Decode(raw)
		if !sameTasks(decoded.Tasks, original.Tasks) {
			t.Fatalf("round trip tasks: got %#v, want %#v (raw %q)", decoded.Tasks, original.Tasks, raw)
		}
		if decoded.Note != original.Note {
			t.Fatalf("round trip note: got %q, want %q (raw %q)", decoded.Note, original.Note, raw)
		}
	}
}

func sameTasks(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBaseName(t *testing.T) {
	if got := BaseName("Feed goats"); got != "Feed goats" {
		t.Fatalf("got %q", got)
	}
	if got := BaseName("Feed goats\nextra detail about the goats"); got != "Feed goats" {
		t.Fatalf("got %q", got)
	}
	if got := BaseName("  Feed goats  "); got != "Feed goats" {
		t.Fatalf("got %q", got)
	}
}

func TestSignatureIgnoresOrderCaseAndNote(t *testing.T) {
	a := Signature(Content{Tasks: []string{"Feed goats", "Clean barn"}, Note: "early"})
	b := Signature(Content{Tasks: []string{"clean barn", "FEED GOATS"}})
	if a == "" || a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
}

func TestSignatureUsesBaseNames(t *testing.T) {
	a := Signature(Content{Tasks: []string{"Feed goats\nwith details"}})
	b := Signature(Content{Tasks: []string{"Feed goats"}})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
}

func TestEmptySignaturesNeverEqual(t *testing.T) {
	if Signature(Content{}) != "" {
		t.Fatal("empty content should have empty signature")
	}
	if SignaturesEqual("", "") {
		t.Fatal("empty signatures must not compare equal")
	}
	if !SignaturesEqual("feed goats", "feed goats") {
		t.Fatal("matching non-empty signatures should compare equal")
	}
	if SignaturesEqual("feed goats", "clean barn") {
		t.Fatal("different signatures should not compare equal")
	}
}
