package deps_test

import (
	"testing"

	"lathe/internal/deps"
	"lathe/internal/testsupport"
)

func TestCheckBinariesReportsStubbedTool(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithToolBinary("fake-recon"),
		testsupport.WithStubbedTool("#!/bin/sh\nexit 0\n"),
	)

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) != 1 {
		t.Fatalf("expected one requirement, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("stubbed tool reported unavailable: %+v", statuses[0])
	}
}

func TestCheckBinariesReportsMissingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithToolBinary("definitely-not-installed-tool"))

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if statuses[0].Available {
		t.Fatal("missing tool reported available")
	}
	if statuses[0].Detail == "" {
		t.Fatal("expected detail for missing tool")
	}
}

func TestCheckBinariesHandlesEmptyCommand(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{{Name: "tool"}})
	if statuses[0].Available {
		t.Fatal("empty command reported available")
	}
}
