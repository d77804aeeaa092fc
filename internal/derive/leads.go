package derive

import (
	"strings"

	"academydesk/internal/domain"
)

// LeadStages is the admission pipeline in funnel order.
var LeadStages = []string{"new", "contacted", "visited", "admitted", "dropped"}

type FunnelStage struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Funnel struct {
	Stages []FunnelStage `json:"stages"`
	Total  int           `json:"total"`
	// ConversionRate is admitted over total, as a percentage.
	ConversionRate float64 `json:"conversion_rate"`
}

// LeadFunnel counts leads per stage. A blank status counts as new; unknown
// statuses are left out.
func LeadFunnel(leads []domain.Lead) Funnel {
	counts := make(map[string]int, len(LeadStages))
	for _, l := range leads {
		status := strings.ToLower(strings.TrimSpace(l.Status))
		if status == "" {
			status = "new"
		}
		counts[status]++
	}
	f := Funnel{Stages: make([]FunnelStage, 0, len(LeadStages))}
	for _, s := range LeadStages {
		f.Stages = append(f.Stages, FunnelStage{Status: s, Count: counts[s]})
		f.Total += counts[s]
	}
	f.ConversionRate = Percentage(float64(counts["admitted"]), float64(f.Total))
	return f
}
