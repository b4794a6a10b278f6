package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiftboard/api/internal/grid"
	"shiftboard/api/internal/store"
)

// MatrixSource supplies the current schedule snapshot. The editor's manager
// satisfies this, so exports always reflect the optimistic local state.
type MatrixSource interface {
	Matrix() store.Snapshot
}

// Service provides schedule export functionality
type Service struct {
	source MatrixSource
}

// NewService creates a new export service
func NewService(source MatrixSource) *Service {
	return &Service{source: source}
}

// Export consolidates the current schedule and renders it in the requested
// format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	snap := s.source.Matrix()
	layout := grid.Consolidate(snap, req.Viewer)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Shift Schedule"
	}

	html, err := RenderScheduleHTML(buildTemplateData(layout, title))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(ctx, html, title)
	case FormatDOCX:
		return exportDOCX(ctx, html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// buildTemplateData regroups the consolidated layout's row-major blocks into
// one slice of anchor cells per visible table row, the shape an HTML table
// with rowspan/colspan wants.
func buildTemplateData(layout grid.Layout, title string) TemplateData {
	data := TemplateData{
		Title:       title,
		GeneratedAt: time.Now(),
	}
	for _, slot := range layout.Slots {
		data.Slots = append(data.Slots, TemplateSlot{
			Label:     slot.Label,
			TimeRange: slot.TimeRange,
			IsMeal:    slot.IsMeal,
		})
	}

	rows := make([][]TemplateCell, len(layout.People))
	for _, block := range layout.Blocks {
		cell := TemplateCell{
			RowSpan: block.RowSpan,
			ColSpan: block.ColSpan,
			Note:    block.Note,
		}
		for _, task := range block.Tasks {
			shared := ""
			if len(task.Assignees) > 1 {
				shared = strings.Join(task.Assignees, ", ")
			}
			cell.Tasks = append(cell.Tasks, TemplateTask{
				Ref:    task.Ref,
				Shared: shared,
			})
		}
		rows[block.Row] = append(rows[block.Row], cell)
	}
	for i, person := range layout.People {
		data.Rows = append(data.Rows, TemplateRow{
			Person: person,
			Cells:  rows[i],
		})
	}
	return data
}
