package entities

import (
	"errors"
	"strings"
)

// Expert is a read-only projection of an advisor profile. Metrics are owned
// by the expert directory and only consulted here for allocation.
type Expert struct {
	ExpertID                 string
	Name                     string
	Specializations          []Domain
	AccuracyScore            float64
	ModeratorAcceptanceRate  float64
	PeerVotesReceived        int
	ConsistencyScore         float64
	AverageResponseTimeHours float64
}

func (e Expert) Specializes(domain Domain) bool {
	for _, item := range e.Specializations {
		if item == domain {
			return true
		}
	}
	return false
}

func (e Expert) Validate() error {
	if strings.TrimSpace(e.ExpertID) == "" {
		return errors.New("expert id is required")
	}
	if len(e.Specializations) == 0 {
		return errors.New("expert needs at least one specialization")
	}
	for _, item := range e.Specializations {
		if !item.Valid() {
			return errors.New("unknown specialization " + string(item))
		}
	}
	if !percentage(e.AccuracyScore) || !percentage(e.ModeratorAcceptanceRate) || !percentage(e.ConsistencyScore) {
		return errors.New("expert percentages must be within 0..100")
	}
	if e.PeerVotesReceived < 0 {
		return errors.New("peer votes received must be non-negative")
	}
	if e.AverageResponseTimeHours < 0 {
		return errors.New("average response time must be non-negative")
	}
	return nil
}

func percentage(value float64) bool {
	return value >= 0 && value <= 100
}
