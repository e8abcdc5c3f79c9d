// Package report renders end-of-run summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fpang/card-batch-uploader/internal/rotate"
	"github.com/fpang/card-batch-uploader/internal/workflow"
)

// Upload renders one row per folder with its terminal status.
func Upload(w io.Writer, summaries []workflow.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Folder", "Batch ID", "Images", "Status", "Last Step", "Elapsed", "Error"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Folder,
			s.BatchID,
			s.Images,
			s.Status.String(),
			s.LastStep,
			s.Elapsed.Round(time.Millisecond),
			s.Err,
		})
	}
	t.Render()
}

// Rotation renders the per-folder orientation rewrite counters.
func Rotation(w io.Writer, folder string, r *rotate.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(folder)
	t.AppendRows([]table.Row{
		{"Front images rotated", r.Front},
		{"Back images rotated", r.Back},
		{"Unclassified (skipped)", r.Skipped},
		{"Errors", len(r.Errors)},
		{"Total discovered", r.Discovered()},
		{"Elapsed", r.Elapsed.Round(time.Millisecond)},
	})
	t.Render()

	for _, fe := range r.Errors {
		fmt.Fprintf(w, "  %s: %v\n", fe.Path, fe.Err)
	}
}

// Inspection renders one row per image with its metadata.
func Inspection(w io.Writer, infos []rotate.Info) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"File", "Dimensions", "Orientation", "Camera", "Taken"})
	for _, info := range infos {
		camera := info.CameraMake
		if info.CameraModel != "" {
			if camera != "" {
				camera += " "
			}
			camera += info.CameraModel
		}
		taken := ""
		if !info.DateTaken.IsZero() {
			taken = info.DateTaken.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			info.Name(),
			fmt.Sprintf("%dx%d", info.Width, info.Height),
			info.OrientationLabel(),
			camera,
			taken,
		})
	}
	t.Render()
}
