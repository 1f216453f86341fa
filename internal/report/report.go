// Package report renders a registry as a table, one row per path with
// descendants listed under their ancestors.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jpdna/utils/internal/timer"
	"github.com/jpdna/utils/internal/timing"
)

// Row is one rendered bucket.
type Row struct {
	Path  *timing.Path
	Label string
	Stats timer.Snapshot
	Known bool // false when the bucket's timer is not a *timer.Timer
}

// Rows returns the registry's buckets ancestors first. Labels are the leaf
// key indented by depth; a non-zero sequence id is appended as #n and
// classified keys are marked with a trailing *.
func Rows(reg *timing.Registry) []Row {
	paths := reg.Paths()
	rows := make([]Row, 0, len(paths))
	for _, p := range paths {
		row := Row{Path: p, Label: label(p)}
		if tm, ok := reg.Timer(p); ok {
			if t, ok := tm.(*timer.Timer); ok {
				row.Stats = t.Snapshot()
				row.Known = true
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func label(p *timing.Path) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("· ", p.Depth()))
	b.WriteString(p.Name())
	if p.SequenceID() != 0 {
		b.WriteString("#")
		b.WriteString(strconv.Itoa(p.SequenceID()))
	}
	if p.Classified() {
		b.WriteString("*")
	}
	return b.String()
}

// Render writes the table for reg to w.
func Render(w io.Writer, reg *timing.Registry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Path", "Count", "Total", "Mean", "Min", "Max")
	for _, r := range Rows(reg) {
		if !r.Known {
			if err := table.Append(r.Label, "-", "-", "-", "-", "-"); err != nil {
				return fmt.Errorf("append row %s: %w", r.Path, err)
			}
			continue
		}
		s := r.Stats
		if err := table.Append(
			r.Label,
			strconv.FormatInt(s.Count, 10),
			formatDuration(s.Total()),
			formatDuration(s.Mean()),
			formatDuration(s.Min()),
			formatDuration(s.Max()),
		); err != nil {
			return fmt.Errorf("append row %s: %w", r.Path, err)
		}
	}
	return table.Render()
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
