package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/tracker/service"
	dErrors "mipwatch/pkg/domain-errors"
	pstrings "mipwatch/pkg/platform/strings"
)

// IngestRequest is the body of POST /snapshots.
type IngestRequest struct {
	PublishDate  string       `json:"publish_date"`
	NotDisplayed int          `json:"not_displayed"`
	Rows         []RowRequest `json:"rows"`

	// Parsed values (populated by Validate)
	parsedDate time.Time
}

// RowRequest is one module row of a snapshot.
type RowRequest struct {
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Standard string `json:"standard"`
	Status   string `json:"status"`
}

// Normalize trims the date and key fields. Statuses are kept verbatim; the raw
// label is what gets stored.
func (r *IngestRequest) Normalize() {
	if r == nil {
		return
	}
	r.PublishDate = strings.TrimSpace(r.PublishDate)
	for i := range r.Rows {
		r.Rows[i].Name = strings.TrimSpace(r.Rows[i].Name)
		r.Rows[i].Vendor = strings.TrimSpace(r.Rows[i].Vendor)
		r.Rows[i].Standard = strings.TrimSpace(r.Rows[i].Standard)
	}
}

// Validate parses the publish date and checks every row has a name.
func (r *IngestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.PublishDate == "" {
		return dErrors.New(dErrors.CodeValidation, "publish_date is required")
	}
	date, err := models.ParsePublishDate(r.PublishDate)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "publish_date must be M/D/YYYY or YYYY-MM-DD")
	}
	r.parsedDate = date

	if r.NotDisplayed < 0 {
		return dErrors.New(dErrors.CodeValidation, "not_displayed must not be negative")
	}
	for i, row := range r.Rows {
		if row.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "rows["+strconv.Itoa(i)+"].name is required")
		}
	}
	return nil
}

// Snapshot converts a validated request into the stored form.
func (r *IngestRequest) Snapshot() models.Snapshot {
	entries := make([]models.Entry, 0, len(r.Rows))
	for _, row := range r.Rows {
		entries = append(entries, models.Entry{
			Key:       models.EntityKey{Name: row.Name, Vendor: row.Vendor, Standard: row.Standard},
			RawStatus: row.Status,
		})
	}
	return models.Snapshot{
		PublishDate:  r.parsedDate,
		Entries:      entries,
		NotDisplayed: r.NotDisplayed,
	}
}

// reportOptionsFromQuery reads window_months, all, roster and vendors.
func reportOptionsFromQuery(r *http.Request) (service.ReportOptions, error) {
	q := r.URL.Query()
	var opts service.ReportOptions

	if raw := q.Get("window_months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, dErrors.New(dErrors.CodeBadRequest, "window_months must be a non-negative integer")
		}
		opts.WindowMonths = n
	}
	if raw := q.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, dErrors.New(dErrors.CodeBadRequest, "all must be a boolean")
		}
		opts.AllDates = all
	}
	opts.RosterStatuses = pstrings.SplitList(q.Get("roster"))
	if raw := q.Get("vendors"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, dErrors.New(dErrors.CodeBadRequest, "vendors must be a non-negative integer")
		}
		opts.TopVendors = n
	}
	return opts, nil
}

// keyFromQuery reads the name, vendor and standard of one module.
func keyFromQuery(r *http.Request) (models.EntityKey, error) {
	q := r.URL.Query()
	key := models.EntityKey{
		Name:     q.Get("name"),
		Vendor:   q.Get("vendor"),
		Standard: q.Get("standard"),
	}
	if strings.TrimSpace(key.Name) == "" {
		return key, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return key, nil
}

func parseDate(raw string) (time.Time, error) {
	date, err := models.ParsePublishDate(raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "date must be M/D/YYYY or YYYY-MM-DD")
	}
	return date, nil
}
