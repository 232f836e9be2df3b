package model

import "time"

// BoardType selects the sector grouping a board belongs to.
type BoardType string

const (
	Industry BoardType = "industry"
	Concept  BoardType = "concept"
)

// BoardTypes lists every board type in display order.
var BoardTypes = []BoardType{Industry, Concept}

// Valid reports whether t is a known board type.
func (t BoardType) Valid() bool {
	return t == Industry || t == Concept
}

// Point is one timestamped sample of a tracked quantity.
// Label keeps the raw timestamp or trade date text used for axis labels.
type Point struct {
	TS    time.Time `json:"ts"`
	Label string    `json:"label"`
	Value float64   `json:"value"`
}

// Board is a sector/industry or concept grouping with its aggregate value.
type Board struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
	Price float64 `json:"price"`
}

// BoardList is the response of a board listing.
type BoardList struct {
	Rows     []Board `json:"rows"`
	FromLive bool    `json:"from_live"`
}

// Codes returns the non-empty board codes in order.
func (l BoardList) Codes() []string {
	out := make([]string, 0, len(l.Rows))
	for _, b := range l.Rows {
		if b.Code != "" {
			out = append(out, b.Code)
		}
	}
	return out
}
