package monorepo

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func samplePackages() ([]string, map[string]DiscoveredPackage, map[string]VersionBump) {
	pkgs := map[string]DiscoveredPackage{
		"core":     {Name: "core", Path: "/core", WorkspaceDeps: nil},
		"utils":    {Name: "utils", Path: "/utils", WorkspaceDeps: []string{"core"}},
		"cli":      {Name: "cli", Path: "/cli", WorkspaceDeps: []string{"core", "utils"}},
		"internal": {Name: "internal", Path: "/internal", Private: true},
	}
	order, err := Build([]DiscoveredPackage{pkgs["core"], pkgs["utils"], pkgs["cli"], pkgs["internal"]}).Sorted()
	if err != nil {
		panic(err)
	}
	bumps := map[string]VersionBump{
		"core":  {Package: "core", Current: "1.0.0", New: "1.1.0", ReleaseKind: ReleaseMinor},
		"utils": {Package: "utils", Current: "1.0.0", New: "1.1.0", ReleaseKind: ReleaseMinor},
		"cli":   {Package: "cli", Current: "1.0.0", New: "1.1.0", ReleaseKind: ReleaseMinor},
	}
	return order, pkgs, bumps
}

func TestPlanTopologicalOrder(t *testing.T) {
	order, pkgs, bumps := samplePackages()
	plan := Plan(order, pkgs, bumps, PlanOptions{})

	if len(plan.Packages) != 3 {
		t.Fatalf("expected 3 planned packages, got %d", len(plan.Packages))
	}
	var names []string
	for _, p := range plan.Packages {
		names = append(names, p.Name)
	}
	want := []string{"core", "utils", "cli"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("planned order = %v, want %v", names, want)
		}
	}

	if len(plan.Skipped) != 1 || plan.Skipped[0].Name != "internal" || plan.Skipped[0].Reason.Kind != "Private" {
		t.Fatalf("expected internal skipped for Private, got %+v", plan.Skipped)
	}
}

func TestExecuteStopOnFailurePropagation(t *testing.T) {
	order, pkgs, bumps := samplePackages()
	plan := Plan(order, pkgs, bumps, PlanOptions{})

	publish := func(ctx context.Context, path, version string, opts PublishOptions) (string, error) {
		if path == "/core" {
			return "", fmt.Errorf("boom")
		}
		return "https://registry/example", nil
	}

	result := Execute(context.Background(), plan, publish, PublishOptions{FailureStrategy: StopOnFailure}, nil)

	if result.Success {
		t.Fatal("expected overall failure")
	}
	if result.Packages["core"].Success {
		t.Fatal("expected core to fail")
	}
	skippedNames := map[string]bool{}
	for _, s := range result.SkippedAtRuntime {
		skippedNames[s.Name] = true
	}
	if !skippedNames["utils"] || !skippedNames["cli"] {
		t.Fatalf("expected utils and cli runtime-skipped, got %+v", result.SkippedAtRuntime)
	}
	if _, attempted := result.Packages["utils"]; attempted {
		t.Fatal("utils should not have been attempted after core failed under StopOnFailure")
	}
}

func TestExecuteRetryThenSucceed(t *testing.T) {
	order, pkgs, bumps := samplePackages()
	plan := Plan(order, pkgs, bumps, PlanOptions{Only: map[string]bool{"core": true}})

	attempts := 0
	publish := func(ctx context.Context, path, version string, opts PublishOptions) (string, error) {
		attempts++
		if attempts < 3 {
			return "", fmt.Errorf("transient")
		}
		return "ok", nil
	}

	opts := PublishOptions{FailureStrategy: StopOnFailure, RetryCount: 2, RetryDelay: 10 * time.Millisecond}
	result := Execute(context.Background(), plan, publish, opts, nil)

	if !result.Success {
		t.Fatal("expected overall success")
	}
	pr := result.Packages["core"]
	if !pr.Success {
		t.Fatal("expected core to succeed")
	}
	if pr.Duration < 2*opts.RetryDelay {
		t.Fatalf("expected duration >= 2*retryDelay, got %v", pr.Duration)
	}
}

func TestPlanExcludeAndOnly(t *testing.T) {
	order, pkgs, bumps := samplePackages()

	excludePlan := Plan(order, pkgs, bumps, PlanOptions{Exclude: map[string]bool{"utils": true}})
	if len(excludePlan.Packages) != 2 {
		t.Fatalf("expected 2 planned with exclude, got %d", len(excludePlan.Packages))
	}
	found := false
	for _, s := range excludePlan.Skipped {
		if s.Name == "utils" {
			found = true
			if s.Reason.Kind != "Excluded" {
				t.Fatalf("expected Excluded reason, got %v", s.Reason)
			}
		}
	}
	if !found {
		t.Fatal("expected utils in skipped list")
	}

	onlyPlan := Plan(order, pkgs, bumps, PlanOptions{Only: map[string]bool{"core": true}})
	if len(onlyPlan.Packages) != 1 || onlyPlan.Packages[0].Name != "core" {
		t.Fatalf("expected only core planned, got %+v", onlyPlan.Packages)
	}
	for _, s := range onlyPlan.Skipped {
		if s.Name == "utils" || s.Name == "cli" {
			t.Fatalf("utils/cli should appear in neither list under only=core, found in skipped: %v", s.Name)
		}
	}
}

func TestValidatePlanWarnsEmpty(t *testing.T) {
	warnings := ValidatePlan(PublishPlan{})
	if len(warnings) == 0 {
		t.Fatal("expected a warning for an empty plan")
	}
}
