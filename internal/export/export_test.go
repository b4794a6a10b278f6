package export

import (
	"strings"
	"testing"

	"shiftboard/api/internal/grid"
	"shiftboard/api/internal/store"
)

func sampleLayout() grid.Layout {
	return grid.Layout{
		People: []string{"Ana", "Bo"},
		Slots: []store.Slot{
			{ID: "AM", Label: "Morning", TimeRange: "08:00-12:00"},
			{ID: "LU", Label: "Lunch", IsMeal: true},
		},
		Blocks: []grid.Block{
			{
				Row: 0, Col: 0, RowSpan: 2, ColSpan: 1,
				Raw: "Feed goats",
				Tasks: []grid.TaskItem{
					{Ref: "Feed goats", Base: "feed goats", Assignees: []string{"Ana", "Bo"}},
				},
			},
			{
				Row: 0, Col: 1, RowSpan: 1, ColSpan: 1,
				Raw:   "Set tables\nvegetarian day",
				Tasks: []grid.TaskItem{{Ref: "Set tables", Base: "set tables", Assignees: []string{"Ana"}}},
				Note:  "vegetarian day",
			},
			{Row: 1, Col: 1, RowSpan: 1, ColSpan: 1},
		},
	}
}

func TestBuildTemplateDataGroupsBlocksByRow(t *testing.T) {
	data := buildTemplateData(sampleLayout(), "Week 34")

	if data.Title != "Week 34" {
		t.Fatalf("unexpected title %q", data.Title)
	}
	if len(data.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(data.Rows))
	}
	// The first row anchors both the merged block and its own lunch cell;
	// the second row only its lunch cell, since the rowspan covers it.
	if len(data.Rows[0].Cells) != 2 {
		t.Fatalf("expected 2 anchored cells in row 0, got %d", len(data.Rows[0].Cells))
	}
	if len(data.Rows[1].Cells) != 1 {
		t.Fatalf("expected 1 anchored cell in row 1, got %d", len(data.Rows[1].Cells))
	}
	if data.Rows[0].Cells[0].RowSpan != 2 {
		t.Fatalf("expected rowspan 2, got %d", data.Rows[0].Cells[0].RowSpan)
	}
	if got := data.Rows[0].Cells[0].Tasks[0].Shared; got != "Ana, Bo" {
		t.Fatalf("shared block must list all assignees, got %q", got)
	}
	if got := data.Rows[0].Cells[1].Tasks[0].Shared; got != "" {
		t.Fatalf("single-person cell must not list assignees, got %q", got)
	}
	if got := data.Rows[0].Cells[1].Note; got != "vegetarian day" {
		t.Fatalf("note should carry through, got %q", got)
	}
}

func TestRenderScheduleHTML(t *testing.T) {
	html, err := RenderScheduleHTML(buildTemplateData(sampleLayout(), "Week 34"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		`rowspan="2"`,
		"Feed goats",
		"(Ana, Bo)",
		"vegetarian day",
		`class="meal"`,
		"08:00-12:00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
	if strings.Contains(html, `rowspan="1"`) {
		t.Error("unmerged cells should not carry a rowspan attribute")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Week 34 Schedule", "Week-34-Schedule"},
		{"kitchen/crew: week 1", "kitchencrew-week-1"},
		{"", "schedule"},
		{"///", "schedule"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b+c")
	if got != "a%20b%2Bc" {
		t.Errorf("unexpected encoding: %q", got)
	}
	if strings.Contains(percentEncodeForDataURL("hello world"), "+") {
		t.Error("spaces must encode as %20, never +")
	}
}
