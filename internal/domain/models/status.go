package models

import "strings"

// Status enumerates the supply chain stages a batch moves through.
type Status string

const (
	StatusHarvested     Status = "Harvested"
	StatusAtDistributor Status = "At Distributor"
	StatusInTransit     Status = "In Transit"
	StatusAtRetailer    Status = "At Retailer"
	StatusSold          Status = "Sold"
)

// Statuses lists every stage in supply chain order.
var Statuses = []Status{
	StatusHarvested,
	StatusAtDistributor,
	StatusInTransit,
	StatusAtRetailer,
	StatusSold,
}

// Transition describes the single legal move out of a status together with the
// default event recorded for it.
type Transition struct {
	From        Status `json:"from"`
	To          Status `json:"to"`
	Action      string `json:"action"`
	Actor       string `json:"actor"`
	Description string `json:"description"`
}

var transitions = map[Status]Transition{
	StatusHarvested: {
		From:        StatusHarvested,
		To:          StatusAtDistributor,
		Action:      "Transferred to Distributor",
		Actor:       "Farmer",
		Description: "Batch has been transferred to the distribution center",
	},
	StatusAtDistributor: {
		From:        StatusAtDistributor,
		To:          StatusInTransit,
		Action:      "Dispatched for Delivery",
		Actor:       "Distributor",
		Description: "Batch is now in transit to retailer",
	},
	StatusInTransit: {
		From:        StatusInTransit,
		To:          StatusAtRetailer,
		Action:      "Received at Retailer",
		Actor:       "Logistics",
		Description: "Batch has been delivered and received at retail location",
	},
	StatusAtRetailer: {
		From:        StatusAtRetailer,
		To:          StatusSold,
		Action:      "Sold to Consumer",
		Actor:       "Retailer",
		Description: "Batch has been sold to end consumer",
	},
}

// Valid reports whether s is one of the known stages.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of s in the supply chain, or -1 when unknown.
func (s Status) Rank() int {
	for i, known := range Statuses {
		if known == s {
			return i
		}
	}
	return -1
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	for _, known := range Statuses {
		if strings.EqualFold(string(known), trimmed) {
			return known, true
		}
	}
	return "", false
}

// NextStatus returns the status that legally follows current. Sold and unknown
// statuses have no successor.
func NextStatus(current Status) (Status, bool) {
	t, ok := transitions[current]
	if !ok {
		return "", false
	}
	return t.To, true
}

// TransitionFrom returns the transition leaving current, if any.
func TransitionFrom(current Status) (Transition, bool) {
	t, ok := transitions[current]
	return t, ok
}

// CanUpdate reports whether the batch can still advance.
func CanUpdate(batch Batch) bool {
	if batch.Status == StatusSold {
		return false
	}
	_, ok := NextStatus(batch.Status)
	return ok
}

var stageKeywords = []struct {
	status   Status
	keywords []string
}{
	{StatusAtDistributor, []string{"Distributor"}},
	{StatusInTransit, []string{"Dispatched", "Transit"}},
	{StatusAtRetailer, []string{"Retailer"}},
	{StatusSold, []string{"Sold"}},
}

// MatchStatuses returns every stage whose keywords appear in action, in
// supply-chain order.
func MatchStatuses(action string) []Status {
	var matches []Status
	for _, stage := range stageKeywords {
		for _, keyword := range stage.keywords {
			if strings.Contains(action, keyword) {
				matches = append(matches, stage.status)
				break
			}
		}
	}
	return matches
}

// InferStatus maps free-text event actions onto a status using the keyword
// vocabulary of legacy events. The checks run in a fixed order, so an action
// mentioning both a distributor and a retailer resolves to At Distributor.
func InferStatus(action string) (Status, bool) {
	matches := MatchStatuses(action)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// InferStatusFrom is InferStatus relative to current: when action names the
// stage after current among its matches, that stage wins, so "Sold by
// Retailer" sells a batch sitting At Retailer.
func InferStatusFrom(current Status, action string) (Status, bool) {
	matches := MatchStatuses(action)
	if len(matches) == 0 {
		return "", false
	}
	if next, ok := NextStatus(current); ok {
		for _, m := range matches {
			if m == next {
				return next, true
			}
		}
	}
	return matches[0], true
}
