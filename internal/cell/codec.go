// Package cell encodes and decodes the raw string stored in one matrix cell.
//
// A cell holds an ordered list of task references plus an optional free-text
// note. The first line of the raw value is a comma-separated task list; any
// text after the first newline is the note. Decoding is total: malformed or
// hand-edited values never fail, they just decode to less content.
package cell

import (
	"sort"
	"strings"
)

// dayOffPlaceholder marks an intentionally empty day-off cell upstream and is
// dropped on decode.
const dayOffPlaceholder = "-"

// signatureSeparator joins sorted base names into a signature.
const signatureSeparator = "||"

// Content is the decoded form of a raw cell value. Task order is display
// order and duplicates are allowed.
type Content struct {
	Tasks []string
	Note  string
}

// IsEmpty reports whether the content carries no tasks and no note.
func (c Content) IsEmpty() bool {
	return len(c.Tasks) == 0 && c.Note == ""
}

// Decode parses a raw cell value. The first line is split on commas, each
// segment trimmed, with empties and the day-off placeholder dropped. The
// remainder after the first newline becomes the trimmed note.
func Decode(raw string) Content {
	firstLine := raw
	note := ""
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		firstLine = raw[:idx]
		note = strings.TrimSpace(raw[idx+1:])
	}

	var tasks []string
	for _, segment := range strings.Split(firstLine, ",") {
		task := strings.TrimSpace(segment)
		if task == "" || task == dayOffPlaceholder {
			continue
		}
		tasks = append(tasks, task)
	}
	return Content{Tasks: tasks, Note: note}
}

// Encode is the inverse of Decode. Decode(Encode(c)) == c holds for any
// content whose task base names contain no embedded commas or newlines; that
// constraint is documented, not enforced.
func Encode(c Content) string {
	line := strings.Join(c.Tasks, ", ")
	if c.Note == "" {
		return line
	}
	return line + "\n" + c.Note
}

// BaseName returns a task reference's first line, trimmed. Anything after an
// embedded line break is extra detail attached to that one task.
func BaseName(ref string) string {
	if idx := strings.IndexByte(ref, '\n'); idx >= 0 {
		ref = ref[:idx]
	}
	return strings.TrimSpace(ref)
}

// Signature derives an order-independent fingerprint of the content's task
// set: lowercased base names, empties removed, sorted, joined. Empty tasks
// yield the empty string, which never counts as equal to anything (empty
// cells do not merge). Note, task order, and letter case are deliberately
// excluded; they affect what is displayed, not whether cells merge.
func Signature(c Content) string {
	if len(c.Tasks) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.Tasks))
	for _, task := range c.Tasks {
		name := strings.ToLower(BaseName(task))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return strings.Join(names, signatureSeparator)
}

// SignatureOf is shorthand for Signature(Decode(raw)).
func SignatureOf(raw string) string {
	return Signature(Decode(raw))
}

// SignaturesEqual reports whether two signatures are equal and non-empty.
func SignaturesEqual(a, b string) bool {
	return a != "" && a == b
}
