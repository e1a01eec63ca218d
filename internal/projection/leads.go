package projection

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/lalith-99/echocrm/internal/dates"
	"github.com/lalith-99/echocrm/internal/models"
)

// LeadSort is a lead table ordering.
type LeadSort string

const (
	SortNewest        LeadSort = "newest"
	SortOldest        LeadSort = "oldest"
	SortName          LeadSort = "name"
	SortLastContacted LeadSort = "last-contacted"
)

// LeadParams are the lead table controls.
type LeadParams struct {
	Search string   `form:"search" json:"search"`
	Status string   `form:"status" json:"status"`
	Sort   LeadSort `form:"sort" json:"sort"`
}

// LeadRow is one rendered table row.
type LeadRow struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Company          string   `json:"company"`
	Status           string   `json:"status"`
	StatusClass      string   `json:"status_class"`
	Source           string   `json:"source"`
	Tags             []string `json:"tags"`
	LastContactLabel string   `json:"last_contact_label"`
	CreatedLabel     string   `json:"created_label"`
	WhatsAppURL      string   `json:"whatsapp_url,omitempty"`
	MailtoURL        string   `json:"mailto_url,omitempty"`
	Actions          []Action `json:"actions"`
}

// LeadStats are computed over the whole replica, not the filtered rows.
type LeadStats struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Closed         int            `json:"closed"`
	ByStatus       map[string]int `json:"by_status"`
	ConversionRate int            `json:"conversion_rate"`
}

type LeadView struct {
	Rows    []LeadRow `json:"rows"`
	Visible int       `json:"visible"`
	Stats   LeadStats `json:"stats"`
}

// ProjectLeads filters, sorts and renders leads. Unknown sort keys fall
// back to newest first.
func ProjectLeads(leads []models.Lead, p LeadParams, now time.Time) LeadView {
	visible := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if !showAll(p.Status) && string(l.Status) != p.Status {
			continue
		}
		if !matchesSearch(p.Search, l.Name, l.Email, l.Company, l.Notes) {
			continue
		}
		visible = append(visible, l)
	}

	slices.SortStableFunc(visible, leadOrder(p.Sort))

	rows := make([]LeadRow, 0, len(visible))
	for _, l := range visible {
		rows = append(rows, leadRow(l, now))
	}
	return LeadView{Rows: rows, Visible: len(rows), Stats: ComputeLeadStats(leads)}
}

// leadOrder returns the comparator for a sort key. Ties always fall through
// to newest first, then id.
func leadOrder(key LeadSort) func(a, b models.Lead) int {
	tieBreak := func(a, b models.Lead) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}

	switch key {
	case SortOldest:
		return func(a, b models.Lead) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		}
	case SortName:
		return func(a, b models.Lead) int {
			if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
				return c
			}
			return tieBreak(a, b)
		}
	case SortLastContacted:
		return func(a, b models.Lead) int {
			switch {
			case a.LastContacted == nil && b.LastContacted == nil:
				return tieBreak(a, b)
			case a.LastContacted == nil:
				return 1
			case b.LastContacted == nil:
				return -1
			}
			if c := b.LastContacted.Compare(*a.LastContacted); c != 0 {
				return c
			}
			return tieBreak(a, b)
		}
	default:
		return tieBreak
	}
}

func leadRow(l models.Lead, now time.Time) LeadRow {
	status := orDefault(string(l.Status), string(models.DefaultLeadStatus))
	row := LeadRow{
		ID:               l.ID,
		Name:             orDefault(l.Name, "No Name"),
		Email:            l.Email,
		Phone:            l.Phone,
		Company:          l.Company,
		Status:           status,
		StatusClass:      "status-" + strings.ToLower(status),
		Source:           orDefault(l.Source, "N/A"),
		Tags:             l.Tags,
		LastContactLabel: "Never",
		CreatedLabel:     dates.RelativeLabel(l.CreatedAt, now),
		Actions: []Action{
			{Name: "edit", Enabled: true},
			{Name: "delete", Enabled: true},
			{Name: "log-contact", Enabled: true},
		},
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if l.LastContacted != nil {
		row.LastContactLabel = dates.RelativeLabel(*l.LastContacted, now)
	}
	if digits := phoneDigits(l.Phone); digits != "" {
		row.WhatsAppURL = "https://wa.me/" + digits
	}
	if l.Email != "" {
		row.MailtoURL = "mailto:" + l.Email
	}
	return row
}

func phoneDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// ComputeLeadStats counts leads by status. Active is everything not Closed.
func ComputeLeadStats(leads []models.Lead) LeadStats {
	stats := LeadStats{ByStatus: make(map[string]int, len(models.LeadStatuses))}
	for _, s := range models.LeadStatuses {
		stats.ByStatus[string(s)] = 0
	}
	for _, l := range leads {
		stats.Total++
		stats.ByStatus[string(l.Status)]++
		if l.Status == models.LeadClosed {
			stats.Closed++
		} else {
			stats.Active++
		}
	}
	stats.ConversionRate = ConversionRate(stats.Closed, stats.Total)
	return stats
}

// Option is a <select> entry.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LeadOptions lists the leads a reminder can be attached to: everything
// not Closed, labelled "Name (Company)" or just "Name", in replica order.
func LeadOptions(leads []models.Lead) []Option {
	opts := make([]Option, 0, len(leads))
	for _, l := range leads {
		if l.Status == models.LeadClosed {
			continue
		}
		label := orDefault(l.Name, "No Name")
		if l.Company != "" {
			label += " (" + l.Company + ")"
		}
		opts = append(opts, Option{Value: l.ID, Label: label})
	}
	return opts
}
