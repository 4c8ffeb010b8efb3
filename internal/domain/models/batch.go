package models

import (
	"strings"
	"time"
)

// ProduceTypes lists the produce varieties a batch may be registered with.
var ProduceTypes = []string{
	"Rice",
	"Wheat",
	"Tomatoes",
	"Potatoes",
	"Onions",
	"Corn",
	"Soybeans",
	"Cotton",
	"Sugarcane",
	"Tea",
	"Coffee",
}

// CanonicalProduceType resolves a produce name case-insensitively against
// ProduceTypes and returns its canonical spelling.
func CanonicalProduceType(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	for _, known := range ProduceTypes {
		if strings.EqualFold(known, trimmed) {
			return known, true
		}
	}
	return "", false
}

// Event is a fact recorded against a batch. Once appended to a batch history it
// is never modified.
type Event struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Action    string    `json:"action" bson:"action"`
	Actor     string    `json:"actor" bson:"actor"`
	Details   string    `json:"details" bson:"details"`
	Status    Status    `json:"status,omitempty" bson:"status,omitempty"`
}

// Batch is a tracked unit of produce and its append-only event history.
type Batch struct {
	BatchID        string    `json:"batchID"`
	ProduceType    string    `json:"produceType"`
	Quantity       int       `json:"quantity"`
	HarvestDate    string    `json:"harvestDate"`
	Location       string    `json:"location"`
	FarmerID       string    `json:"farmerID"`
	Status         Status    `json:"status"`
	CertificateURL string    `json:"certificateUrl,omitempty"`
	History        []Event   `json:"history"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LatestEvent returns the most recent history entry.
func (b Batch) LatestEvent() (Event, bool) {
	if len(b.History) == 0 {
		return Event{}, false
	}
	return b.History[len(b.History)-1], true
}

// Clone returns a copy whose history slice does not alias the receiver's.
func (b Batch) Clone() Batch {
	out := b
	out.History = append([]Event(nil), b.History...)
	return out
}

// BatchForm carries the registration data submitted by a farmer.
type BatchForm struct {
	ProduceType string `json:"produceType" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	HarvestDate string `json:"harvestDate" binding:"required"`
	Location    string `json:"location" binding:"required"`
	// Certificate is the name of an uploaded certificate file, if any.
	Certificate string `json:"certificate"`
}

// EventInput is an event awaiting its timestamp. TargetStatus, when set, names
// the status the caller expects the batch to move to.
type EventInput struct {
	Action       string `json:"action"`
	Actor        string `json:"actor"`
	Details      string `json:"details"`
	TargetStatus Status `json:"targetStatus,omitempty"`
}
