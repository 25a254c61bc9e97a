// Package funnel reports lead counts and conversion rates over the
// population an actor is allowed to see.
package funnel

import (
	"strings"

	"github.com/angelmondragon/dealercrm-backend/pkg/contact"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

const unknownLabel = "unknown"

// Counts is the grouped and rate portion of a funnel report.
type Counts struct {
	Total               int            `json:"total"`
	LeadsBySource       map[string]int `json:"leads_by_source"`
	LeadsByAgent        map[string]int `json:"leads_by_agent"`
	LeadsByStatus       map[string]int `json:"leads_by_status"`
	EligibleUniqueLeads int            `json:"eligible_unique_leads"`
	Sets                int            `json:"sets"`
	Shows               int            `json:"shows"`
	Closes              int            `json:"closes"`
	SetRate             float64        `json:"set_rate"`
	ShowRate            float64        `json:"show_rate"`
	CloseRate           float64        `json:"close_rate"`
}

// Aggregate groups leads by source, agent and status and derives funnel
// rates over consenting leads, one per contact. A contact seen on several
// leads counts at the furthest stage any of them reached.
func Aggregate(leads []models.Lead) Counts {
	counts := Counts{
		Total:         len(leads),
		LeadsBySource: map[string]int{},
		LeadsByAgent:  map[string]int{},
		LeadsByStatus: make(map[string]int, len(enums.LeadStatuses())),
	}
	for _, status := range enums.LeadStatuses() {
		counts.LeadsByStatus[status.String()] = 0
	}

	furthest := map[string]enums.LeadStatus{}
	for i := range leads {
		lead := &leads[i]
		counts.LeadsBySource[label(lead.Source)]++
		counts.LeadsByAgent[label(lead.Agent)]++
		counts.LeadsByStatus[label(lead.Status.String())]++

		if !lead.Consent {
			continue
		}
		key := contact.IdentityKey(lead.Phone, lead.Email)
		if key == "" {
			key = "lead:" + lead.ID.String()
		}
		if current, ok := furthest[key]; !ok || lead.Status.Stage() > current.Stage() {
			furthest[key] = lead.Status
		}
	}

	counts.EligibleUniqueLeads = len(furthest)
	for _, status := range furthest {
		if status.Reached(enums.LeadStatusSet) {
			counts.Sets++
		}
		if status.Reached(enums.LeadStatusShow) {
			counts.Shows++
		}
		if status.Reached(enums.LeadStatusClose) {
			counts.Closes++
		}
	}
	counts.SetRate = rate(counts.Sets, counts.EligibleUniqueLeads)
	counts.ShowRate = rate(counts.Shows, counts.Sets)
	counts.CloseRate = rate(counts.Closes, counts.Shows)
	return counts
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownLabel
	}
	return value
}

func rate(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	r := float64(numerator) / float64(denominator)
	if r > 1 {
		return 1
	}
	return r
}
