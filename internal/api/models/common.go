// Package models holds the JSON request and response bodies of the Uyir
// Kavalan API. Field names follow the contract used by the boat app.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Point struct {
	Lat float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// Location is a GPS fix reported by a boat. Accuracy is the fix's radius in
// metres when the receiver reports one.
type Location struct {
	Lat       float64    `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon       float64    `json:"lon" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64   `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

type ListMeta struct {
	Count int `json:"count"`
}

type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time serialised as RFC 3339 in UTC. On input it also
// accepts fractional seconds and, for GPS units that only know epoch time,
// a JSON number of Unix milliseconds.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		*t = Timestamp(time.UnixMilli(millis).UTC())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be an RFC 3339 string or epoch milliseconds: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// TimestampPtr converts an optional time.
func TimestampPtr(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	ts := Timestamp(*t)
	return &ts
}
