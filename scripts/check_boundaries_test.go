package main

import (
	"os"
	"path/filepath"
	"testing"
)

const testPrefix = "agrivote/contexts/farmer-advisory/question-lifecycle"

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.go")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write source failed: %v", err)
	}
	return path
}

func TestDomainRejectsThirdPartyAndInfrastructure(t *testing.T) {
	path := writeSource(t, `package services

import (
	"strings"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/internal/platform/config"
	"github.com/google/uuid"
)
`)
	violations := validateFile(path, "domain/services/file.go", "domain", testPrefix)
	if len(violations) != 3 {
		t.Fatalf("expected 3 violations, got %+v", violations)
	}
	if violations[0].Import != "agrivote/internal/platform/config" {
		t.Fatalf("unexpected first violation %+v", violations[0])
	}
	if violations[2].Rule != "domain must only use the standard library" {
		t.Fatalf("unexpected rule %q", violations[2].Rule)
	}
}

func TestApplicationAllowsPortsAndContracts(t *testing.T) {
	path := writeSource(t, `package commands

import (
	"context"

	contractsv1 "agrivote/contracts/gen/events/v1"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)
`)
	if violations := validateFile(path, "application/commands/file.go", "application", testPrefix); len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}

func TestApplicationRejectsAdaptersAndOtherModules(t *testing.T) {
	path := writeSource(t, `package commands

import (
	"agrivote/contexts/farmer-advisory/question-lifecycle/adapters/memory"
	"agrivote/contexts/farmer-advisory/expert-directory/ports"
)
`)
	violations := validateFile(path, "application/commands/file.go", "application", testPrefix)
	rules := map[string]bool{}
	for _, v := range violations {
		rules[v.Rule] = true
	}
	if !rules["application must not import adapters"] || !rules["cross-module imports are forbidden"] {
		t.Fatalf("missing expected rules in %+v", violations)
	}
}

func TestAdaptersAreUnrestricted(t *testing.T) {
	path := writeSource(t, `package postgresadapter

import (
	"gorm.io/gorm"

	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)
`)
	if violations := validateFile(path, "adapters/postgres/file.go", "adapters", testPrefix); len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}
