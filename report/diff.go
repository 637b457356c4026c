package report

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

// Diff returns a unified diff between two texts, or "" when they are equal.
func Diff(fromName string, toName string, from string, to string) string {
	if from == to {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(fromName), from, to)
	return fmt.Sprint(gotextdiff.ToUnified(fromName, toName, from, edits))
}

// DiffSnapshots diffs the compact reports of two snapshots. A nil previous
// snapshot diffs against an empty report.
func DiffSnapshots(previous *models.Snapshot, current *models.Snapshot) string {
	var from, to string
	fromName, toName := "empty", "empty"
	if previous != nil {
		from = RenderCompact(previous.Root)
		fromName = previous.ID
	}
	if current != nil {
		to = RenderCompact(current.Root)
		toName = current.ID
	}
	return Diff(fromName, toName, from, to)
}
