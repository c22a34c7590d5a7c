package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
	"mipwatch/internal/tracker/service"
)

// printer renders results as text. Colour is dropped automatically when w is not
// a terminal.
type printer struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	muted    lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:        w,
		renderer: r,
		title:    r.NewStyle().Bold(true),
		muted:    r.NewStyle().Faint(true),
	}
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// status colours a raw or normalized status with its palette colour.
func (p *printer) status(raw string) string {
	color := status.Color(status.Normalize(raw))
	return p.renderer.NewStyle().Foreground(lipgloss.Color(color)).Render(raw)
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return models.FormatPublishDate(t)
}

func keyLabel(k models.EntityKey) string {
	parts := []string{k.Name}
	if k.Vendor != "" {
		parts = append(parts, k.Vendor)
	}
	if k.Standard != "" {
		parts = append(parts, k.Standard)
	}
	return strings.Join(parts, " | ")
}

func (p *printer) ingest(r *service.IngestResult) {
	p.line("%s %s: %d rows", p.title.Render("Ingested"), day(r.PublishDate), r.Rows)
	if r.Duplicates > 0 {
		p.line("%s", p.muted.Render(fmt.Sprintf("%d duplicate rows, last row kept", r.Duplicates)))
	}
	p.changes(r.Changes)
}

func (p *printer) changes(c analysis.Changes) {
	if !c.HasPrevious() {
		p.line("%s", p.muted.Render("No earlier snapshot to compare "+day(c.Current)+" against."))
		return
	}
	p.line("%s %s vs %s: %d added, %d removed, %d changed, %d unchanged",
		p.title.Render("Changes"), day(c.Current), day(c.Previous),
		len(c.Added), len(c.Removed), len(c.Changed), c.Unchanged)
	for _, a := range c.Added {
		p.line("  + %s  %s", keyLabel(a.Key), p.status(a.Status))
	}
	for _, r := range c.Removed {
		p.line("  - %s  %s", keyLabel(r.Key), p.status(r.Status))
	}
	for _, ch := range c.Changed {
		p.line("  ~ %s  %s -> %s", keyLabel(ch.Key), p.status(ch.OldStatus), p.status(ch.NewStatus))
	}
}

func (p *printer) report(r *service.Report) {
	p.line("%s %s (%d modules)", p.title.Render("Modules In Process"), day(r.LatestDate), r.Summary.Total)
	for _, b := range r.Summary.Buckets {
		p.line("  %-16s %5d", p.status(b.Status), b.Count)
	}
	p.line("")
	p.changes(r.Changes)

	if len(r.Roster) > 0 {
		p.line("")
		p.line("%s", p.title.Render("Time in status"))
		for _, e := range r.Roster {
			p.line("  %4d days  %s  since %s", e.DaysInStatus, keyLabel(e.Key), day(e.Since))
		}
	}

	if len(r.Disappearances) > 0 {
		p.line("")
		p.disappearances(r.Disappearances)
	}

	if len(r.Vendors) > 0 {
		p.line("")
		p.line("%s", p.title.Render("Top vendors"))
		for _, v := range r.Vendors {
			p.line("  %4d  %s", v.Count, v.Vendor)
		}
	}

	if len(r.Tallies) > 0 {
		p.line("")
		p.line("%s %s to %s", p.title.Render("Tallies"), day(r.Tallies[0].Date), day(r.Tallies[len(r.Tallies)-1].Date))
		for _, t := range r.Tallies {
			counts := make([]string, 0, len(t.Counts))
			for _, b := range t.Buckets() {
				counts = append(counts, fmt.Sprintf("%s=%d", b.Status, b.Count))
			}
			p.line("  %-10s %5d  %s", day(t.Date), t.Total, strings.Join(counts, " "))
		}
	}
	if r.Duplicates > 0 {
		p.line("")
		p.line("%s", p.muted.Render(fmt.Sprintf("%d duplicate rows absorbed", r.Duplicates)))
	}
}

func (p *printer) history(h *service.KeyHistory) {
	p.line("%s %s", p.title.Render("History"), keyLabel(h.Key))
	p.line("  in current status since %s", day(h.StatusSince))
	for _, run := range h.Runs {
		p.line("  %s to %s  %s (%d snapshots)", day(run.Start), day(run.End), p.status(run.Status), len(run.Dates))
	}
}

func (p *printer) disappearances(found []analysis.Disappearance) {
	p.line("%s (%d)", p.title.Render("Disappeared before finalization"), len(found))
	for _, d := range found {
		p.line("  %-10s %s  %s", day(d.LastSeen), keyLabel(d.Key), p.status(d.LastStatus))
	}
}

func (p *printer) merged(copied []time.Time) {
	p.line("%s %d snapshots", p.title.Render("Merged"), len(copied))
	for _, d := range copied {
		p.line("  %s", day(d))
	}
}
