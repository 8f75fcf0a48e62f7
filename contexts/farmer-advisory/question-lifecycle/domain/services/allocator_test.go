package services

import (
	"math"
	"reflect"
	"testing"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

func TestScoreExpertWeightedFormula(t *testing.T) {
	score := ScoreExpert(entities.Expert{
		AccuracyScore:            90,
		ModeratorAcceptanceRate:  80,
		PeerVotesReceived:        20,
		ConsistencyScore:         70,
		AverageResponseTimeHours: 2,
	})
	if math.Abs(score-61.1) > 1e-9 {
		t.Fatalf("expected score 61.1, got %f", score)
	}
}

func TestScoreExpertAllowsNegativeResponseTerm(t *testing.T) {
	score := ScoreExpert(entities.Expert{AverageResponseTimeHours: 20})
	if math.Abs(score-(-2)) > 1e-9 {
		t.Fatalf("expected unclamped score -2, got %f", score)
	}
}

func TestAllocateRanksFiltersAndCaps(t *testing.T) {
	pool := []entities.Expert{
		expert("p-low", 40, entities.DomainPest),
		expert("d-top", 100, entities.DomainDisease),
		expert("p-mid", 60, entities.DomainPest, entities.DomainSoil),
		expert("p-top", 95, entities.DomainPest),
		expert("p-excluded", 99, entities.DomainPest),
		expert("p-high", 80, entities.DomainPest),
	}
	got := Allocate(entities.DomainPest, pool, ExcludeSet([]string{"p-excluded"}))
	want := []string{"p-top", "p-high", "p-mid"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAllocateKeepsPoolOrderOnTies(t *testing.T) {
	pool := []entities.Expert{
		expert("first", 70, entities.DomainSoil),
		expert("second", 70, entities.DomainSoil),
	}
	got := Allocate(entities.DomainSoil, pool, nil)
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Fatalf("expected stable order, got %v", got)
	}
}

func TestAllocateEmptyWhenNobodyQualifies(t *testing.T) {
	pool := []entities.Expert{expert("only", 90, entities.DomainSubsidy)}
	got := Allocate(entities.DomainSubsidy, pool, ExcludeSet([]string{"only"}))
	if len(got) != 0 {
		t.Fatalf("expected empty allocation, got %v", got)
	}
	if got := Allocate(entities.DomainMachinery, pool, nil); len(got) != 0 {
		t.Fatalf("expected no machinery experts, got %v", got)
	}
}
