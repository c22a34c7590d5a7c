package handler

import (
	"time"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/tracker/service"
)

// Dates are written as YYYY-MM-DD; the NIST M/D/YYYY form is accepted on input only.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.ISODateLayout)
}

type KeyResponse struct {
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Standard string `json:"standard"`
}

type KeyedStatusResponse struct {
	KeyResponse
	Status string `json:"status"`
}

type StatusChangeResponse struct {
	KeyResponse
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// ChangesResponse is a diff between a publish date and its predecessor.
// PreviousDate is empty when the date has no predecessor.
type ChangesResponse struct {
	PublishDate  string                 `json:"publish_date"`
	PreviousDate string                 `json:"previous_date,omitempty"`
	Added        []KeyedStatusResponse  `json:"added"`
	Removed      []KeyedStatusResponse  `json:"removed"`
	Changed      []StatusChangeResponse `json:"changed"`
	Unchanged    int                    `json:"unchanged"`
}

type IngestResponse struct {
	PublishDate string          `json:"publish_date"`
	Rows        int             `json:"rows"`
	Duplicates  int             `json:"duplicates"`
	Events      int             `json:"events"`
	Changes     ChangesResponse `json:"changes"`
}

type HistoryEntryResponse struct {
	Date         string `json:"date"`
	Status       string `json:"status"`
	RawStatus    string `json:"raw_status"`
	EmbeddedDate string `json:"embedded_date,omitempty"`
}

type RunResponse struct {
	Status       string `json:"status"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Observations int    `json:"observations"`
}

type HistoryResponse struct {
	KeyResponse
	StatusSince string                 `json:"status_since"`
	Entries     []HistoryEntryResponse `json:"entries"`
	Runs        []RunResponse          `json:"runs"`
	DisplayRuns []RunResponse          `json:"display_runs"`
}

type DisappearanceResponse struct {
	KeyResponse
	LastSeen   string `json:"last_seen"`
	LastStatus string `json:"last_status"`
}

type DisappearancesResponse struct {
	Disappearances []DisappearanceResponse `json:"disappearances"`
}

type TallyResponse struct {
	Date    string                 `json:"date"`
	Total   int                    `json:"total"`
	Buckets []analysis.StatusCount `json:"buckets"`
}

type TalliesResponse struct {
	Tallies []TallyResponse `json:"tallies"`
}

type RosterEntryResponse struct {
	KeyResponse
	Status       string `json:"status"`
	RawStatus    string `json:"raw_status"`
	Since        string `json:"since"`
	DaysInStatus int    `json:"days_in_status"`
}

// ReportResponse is the full report for the latest publish date. Histories is keyed
// by name||vendor||standard.
type ReportResponse struct {
	GeneratedAt    time.Time                  `json:"generated_at"`
	LatestDate     string                     `json:"latest_date"`
	Duplicates     int                        `json:"duplicates"`
	Summary        TallyResponse              `json:"summary"`
	Changes        ChangesResponse            `json:"changes"`
	Tallies        []TallyResponse            `json:"tallies"`
	Roster         []RosterEntryResponse      `json:"roster"`
	Disappearances []DisappearanceResponse    `json:"disappearances"`
	Vendors        []analysis.VendorCount     `json:"vendors"`
	Histories      map[string]HistoryResponse `json:"histories"`
}

func toKeyResponse(k models.EntityKey) KeyResponse {
	return KeyResponse{Name: k.Name, Vendor: k.Vendor, Standard: k.Standard}
}

func toChangesResponse(c analysis.Changes) ChangesResponse {
	resp := ChangesResponse{
		PublishDate:  formatDate(c.Current),
		PreviousDate: formatDate(c.Previous),
		Added:        make([]KeyedStatusResponse, 0, len(c.Added)),
		Removed:      make([]KeyedStatusResponse, 0, len(c.Removed)),
		Changed:      make([]StatusChangeResponse, 0, len(c.Changed)),
		Unchanged:    c.Unchanged,
	}
	for _, a := range c.Added {
		resp.Added = append(resp.Added, KeyedStatusResponse{KeyResponse: toKeyResponse(a.Key), Status: a.Status})
	}
	for _, r := range c.Removed {
		resp.Removed = append(resp.Removed, KeyedStatusResponse{KeyResponse: toKeyResponse(r.Key), Status: r.Status})
	}
	for _, ch := range c.Changed {
		resp.Changed = append(resp.Changed, StatusChangeResponse{
			KeyResponse: toKeyResponse(ch.Key),
			OldStatus:   ch.OldStatus,
			NewStatus:   ch.NewStatus,
		})
	}
	return resp
}

func toIngestResponse(r *service.IngestResult) IngestResponse {
	return IngestResponse{
		PublishDate: formatDate(r.PublishDate),
		Rows:        r.Rows,
		Duplicates:  r.Duplicates,
		Events:      r.Events,
		Changes:     toChangesResponse(r.Changes),
	}
}

func toRunResponses(runs []analysis.Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunResponse{
			Status:       run.Status,
			Start:        formatDate(run.Start),
			End:          formatDate(run.End),
			Observations: len(run.Dates),
		})
	}
	return out
}

func toHistoryResponse(h service.KeyHistory) HistoryResponse {
	entries := make([]HistoryEntryResponse, 0, len(h.Entries))
	for _, e := range h.Entries {
		entries = append(entries, HistoryEntryResponse{
			Date:         formatDate(e.Date),
			Status:       e.Status,
			RawStatus:    e.RawStatus,
			EmbeddedDate: formatDate(e.EmbeddedDate),
		})
	}
	return HistoryResponse{
		KeyResponse: toKeyResponse(h.Key),
		StatusSince: formatDate(h.StatusSince),
		Entries:     entries,
		Runs:        toRunResponses(h.Runs),
		DisplayRuns: toRunResponses(h.DisplayRuns),
	}
}

func toDisappearanceResponses(found []analysis.Disappearance) []DisappearanceResponse {
	out := make([]DisappearanceResponse, 0, len(found))
	for _, d := range found {
		out = append(out, DisappearanceResponse{
			KeyResponse: toKeyResponse(d.Key),
			LastSeen:    formatDate(d.LastSeen),
			LastStatus:  d.LastStatus,
		})
	}
	return out
}

func toTallyResponse(t analysis.DateTally) TallyResponse {
	return TallyResponse{Date: formatDate(t.Date), Total: t.Total, Buckets: t.Buckets()}
}

func toTallyResponses(tallies []analysis.DateTally) []TallyResponse {
	out := make([]TallyResponse, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, toTallyResponse(t))
	}
	return out
}

func toReportResponse(r *service.Report) ReportResponse {
	roster := make([]RosterEntryResponse, 0, len(r.Roster))
	for _, e := range r.Roster {
		roster = append(roster, RosterEntryResponse{
			KeyResponse:  toKeyResponse(e.Key),
			Status:       e.Status,
			RawStatus:    e.RawStatus,
			Since:        formatDate(e.Since),
			DaysInStatus: e.DaysInStatus,
		})
	}
	histories := make(map[string]HistoryResponse, len(r.Histories))
	for k, h := range r.Histories {
		histories[k] = toHistoryResponse(h)
	}
	vendors := r.Vendors
	if vendors == nil {
		vendors = []analysis.VendorCount{}
	}
	return ReportResponse{
		GeneratedAt: r.GeneratedAt,
		LatestDate:  formatDate(r.LatestDate),
		Duplicates:  r.Duplicates,
		Summary: TallyResponse{
			Date:    formatDate(r.Summary.Date),
			Total:   r.Summary.Total,
			Buckets: r.Summary.Buckets,
		},
		Changes:        toChangesResponse(r.Changes),
		Tallies:        toTallyResponses(r.Tallies),
		Roster:         roster,
		Disappearances: toDisappearanceResponses(r.Disappearances),
		Vendors:        vendors,
		Histories:      histories,
	}
}
