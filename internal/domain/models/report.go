package models

import "time"

// DailyDigest is the periodic summary of the ledger archived by the scheduler.
type DailyDigest struct {
	Date           time.Time      `bson:"date" json:"date"`
	TotalBatches   int            `bson:"total_batches" json:"total_batches"`
	ActiveBatches  int            `bson:"active_batches" json:"active_batches"`
	TotalQuantity  int            `bson:"total_quantity_kg" json:"total_quantity_kg"`
	StatusCounts   map[Status]int `bson:"status_counts" json:"status_counts"`
	EventsRecorded int            `bson:"events_recorded" json:"events_recorded"`
	Text           string         `bson:"text" json:"text"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
}

// FarmerStats backs the farmer dashboard counters.
type FarmerStats struct {
	FarmerID      string         `json:"farmerID"`
	TotalBatches  int            `json:"totalBatches"`
	ActiveBatches int            `json:"activeBatches"`
	Updatable     int            `json:"updatable"`
	TotalQuantity int            `json:"totalQuantityKg"`
	StatusCounts  map[Status]int `json:"statusCounts"`
}
