package monorepo

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

// ReleaseKind classifies a VersionBump.
type ReleaseKind string

const (
	ReleaseMajor      ReleaseKind = "Major"
	ReleaseMinor      ReleaseKind = "Minor"
	ReleasePatch      ReleaseKind = "Patch"
	ReleasePrerelease ReleaseKind = "Prerelease"
)

// VersionBump names the version transition planned for one package.
type VersionBump struct {
	Package     string
	Current     string
	New         string
	ReleaseKind ReleaseKind
	Reason      string
}

// SkipReason names why a package was left out of a plan, or (for
// DependencyFailed) out of a run at execution time.
type SkipReason struct {
	Kind string // "Private", "AlreadyPublished", "NoChanges", "DependencyFailed", "Excluded"
	Dep  string // populated only for DependencyFailed
}

func (r SkipReason) String() string {
	if r.Kind == "DependencyFailed" && r.Dep != "" {
		return fmt.Sprintf("DependencyFailed(%s)", r.Dep)
	}
	return r.Kind
}

// SkippedPackage records a package left out of a plan, or skipped at
// runtime. A nil Reason (never produced by this implementation, but
// possible from a caller-supplied plan) must be treated as implicit
// DependencyFailed.
type SkippedPackage struct {
	Name   string
	Reason *SkipReason
}

// PlannedPublish is one package slated for publish, in topological order.
type PlannedPublish struct {
	Name        string
	Path        string
	NewVersion  string
	DepsInPlan  []string
	Order       int
}

// PublishPlan is the result of planning: which packages will be
// published, in what order, and which were left out and why.
type PublishPlan struct {
	Packages []PlannedPublish
	Skipped  []SkippedPackage
}

// FailureStrategy controls how a failed publish affects packages that
// depend on it later in the plan.
type FailureStrategy string

const (
	// StopOnFailure marks this package and every remaining package in
	// the plan as runtime-skipped, then stops the run.
	StopOnFailure FailureStrategy = "StopOnFailure"
	// SkipDependents marks a package as runtime-skipped when one of its
	// dependencies in the plan failed, and continues executing the rest
	// of the plan. A runtime-skipped package does not count as failed,
	// so its own dependents are still attempted.
	SkipDependents FailureStrategy = "SkipDependents"
	// ContinueAll attempts every planned package regardless of any
	// earlier failure.
	ContinueAll FailureStrategy = "ContinueAll"
)

// PlanOptions configures Plan.
type PlanOptions struct {
	Exclude map[string]bool
	Only    map[string]bool // if non-empty, only these names are planned or skipped; others are dropped
}

// Plan builds a PublishPlan from order (package names in the graph's
// topological order), packages and bumps (both by package name),
// applying PlanOptions.
func Plan(order []string, packages map[string]DiscoveredPackage, bumps map[string]VersionBump, opts PlanOptions) PublishPlan {
	var plan PublishPlan
	planned := make(map[string]bool)

	for _, name := range order {
		pkg, ok := packages[name]
		if !ok {
			continue
		}

		if opts.Exclude[name] {
			plan.Skipped = append(plan.Skipped, SkippedPackage{Name: name, Reason: &SkipReason{Kind: "Excluded"}})
			continue
		}
		if len(opts.Only) > 0 && !opts.Only[name] {
			continue
		}
		if pkg.Private {
			plan.Skipped = append(plan.Skipped, SkippedPackage{Name: name, Reason: &SkipReason{Kind: "Private"}})
			continue
		}
		bump, ok := bumps[name]
		if !ok {
			plan.Skipped = append(plan.Skipped, SkippedPackage{Name: name, Reason: &SkipReason{Kind: "NoChanges"}})
			continue
		}

		var depsInPlan []string
		for _, dep := range pkg.WorkspaceDeps {
			if _, hasBump := bumps[dep]; hasBump {
				depsInPlan = append(depsInPlan, dep)
			}
		}

		plan.Packages = append(plan.Packages, PlannedPublish{
			Name:       name,
			Path:       pkg.Path,
			NewVersion: bump.New,
			DepsInPlan: depsInPlan,
			Order:      len(plan.Packages),
		})
		planned[name] = true
	}

	return plan
}

// ValidatePlan returns warnings for an empty plan and for entries whose
// DepsInPlan reference a name not itself present in the plan.
func ValidatePlan(plan PublishPlan) []string {
	var warnings []string
	if len(plan.Packages) == 0 {
		warnings = append(warnings, "publish plan is empty")
	}

	inPlan := make(map[string]bool, len(plan.Packages))
	for _, p := range plan.Packages {
		inPlan[p.Name] = true
	}
	for _, p := range plan.Packages {
		for _, dep := range p.DepsInPlan {
			if !inPlan[dep] {
				warnings = append(warnings, fmt.Sprintf("package %s lists dependency %s not present in the plan", p.Name, dep))
			}
		}
	}
	return warnings
}

// PublishFunc performs the actual publish of one package (a shell-out to
// the language registry's CLI), returning an optional registry URL.
// Injected by the caller; the coordinator never performs publishing
// itself.
type PublishFunc func(ctx context.Context, path, version string, opts PublishOptions) (registryURL string, err error)

// PublishOptions configures one execution run.
type PublishOptions struct {
	FailureStrategy FailureStrategy
	RetryCount      int
	RetryDelay      time.Duration
	PublishDelay    time.Duration
	DryRun          bool
}

// PackageResult is the outcome of attempting to publish one planned package.
type PackageResult struct {
	Success     bool
	Error       error
	Duration    time.Duration
	RegistryURL string
}

// PublishResult is the full outcome of executing a PublishPlan.
type PublishResult struct {
	Success          bool
	Packages         map[string]PackageResult
	SkippedAtRuntime []SkippedPackage
}

// Callbacks are synchronously invoked by Execute's driver loop. Handlers
// must not block indefinitely or panic; they are responsible for their
// own off-loading.
type Callbacks struct {
	OnPublishStart    func(name string)
	OnPublishComplete func(name string, result PackageResult)
	OnSkip            func(skip SkippedPackage)
}

// CallbackRegistry fans a single Callbacks set out to any number of
// registered listeners. It intentionally exposes only these inherent
// Notify* methods and does NOT implement a PublishCallback-shaped
// interface itself — doing so would let a caller invoke the interface
// method, which a naively-written registry might implement by calling
// back into its own inherent method of the same name, recursing forever.
type CallbackRegistry struct {
	listeners []Callbacks
}

// NewCallbackRegistry creates an empty registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{}
}

// Register adds cb to the fan-out set.
func (r *CallbackRegistry) Register(cb Callbacks) {
	r.listeners = append(r.listeners, cb)
}

// NotifyPublishStart fans out to every registered OnPublishStart handler.
func (r *CallbackRegistry) NotifyPublishStart(name string) {
	for _, l := range r.listeners {
		if l.OnPublishStart != nil {
			l.OnPublishStart(name)
		}
	}
}

// NotifyPublishComplete fans out to every registered OnPublishComplete handler.
func (r *CallbackRegistry) NotifyPublishComplete(name string, result PackageResult) {
	for _, l := range r.listeners {
		if l.OnPublishComplete != nil {
			l.OnPublishComplete(name, result)
		}
	}
}

// NotifySkip fans out to every registered OnSkip handler.
func (r *CallbackRegistry) NotifySkip(skip SkippedPackage) {
	for _, l := range r.listeners {
		if l.OnSkip != nil {
			l.OnSkip(skip)
		}
	}
}

// Execute runs plan in topological order, sequentially: the driver loop
// is intentionally single-threaded, since parallel publish would both
// violate dependency ordering and trample per-registry rate limits.
// publish is nil-safe only in DryRun mode.
func Execute(ctx context.Context, plan PublishPlan, publish PublishFunc, opts PublishOptions, registry *CallbackRegistry) PublishResult {
	result := PublishResult{
		Success:  true,
		Packages: make(map[string]PackageResult, len(plan.Packages)),
	}
	failed := make(map[string]bool)
	firstFailedName := ""

	for i, pkg := range plan.Packages {
		dep, blocked := firstFailedDep(pkg, failed)
		if !blocked && opts.FailureStrategy == StopOnFailure && len(failed) > 0 {
			// Once any package has failed, StopOnFailure stops the whole
			// remaining plan outright — not just the failed package's
			// dependents. A later package with no dependency edge on the
			// failure is still blocked.
			dep, blocked = firstFailedName, true
		}
		if blocked {
			switch opts.FailureStrategy {
			case StopOnFailure:
				skip := SkippedPackage{Name: pkg.Name, Reason: &SkipReason{Kind: "DependencyFailed", Dep: dep}}
				result.SkippedAtRuntime = append(result.SkippedAtRuntime, skip)
				notifySkip(registry, skip)
				for _, rest := range plan.Packages[i+1:] {
					restSkip := SkippedPackage{Name: rest.Name, Reason: &SkipReason{Kind: "DependencyFailed", Dep: dep}}
					result.SkippedAtRuntime = append(result.SkippedAtRuntime, restSkip)
					notifySkip(registry, restSkip)
				}
				result.Success = false
				return result
			case SkipDependents:
				skip := SkippedPackage{Name: pkg.Name, Reason: &SkipReason{Kind: "DependencyFailed", Dep: dep}}
				result.SkippedAtRuntime = append(result.SkippedAtRuntime, skip)
				notifySkip(registry, skip)
				result.Success = false
				continue
			case ContinueAll:
				// fall through to attempt anyway
			}
		}

		notifyStart(registry, pkg.Name)

		var pr PackageResult
		if opts.DryRun {
			pr = PackageResult{Success: true, Duration: 0}
		} else {
			pr = attemptPublish(ctx, pkg, publish, opts)
		}

		result.Packages[pkg.Name] = pr
		notifyComplete(registry, pkg.Name, pr)

		if !pr.Success {
			failed[pkg.Name] = true
			if firstFailedName == "" {
				firstFailedName = pkg.Name
			}
			result.Success = false
		}

		if !opts.DryRun && opts.PublishDelay > 0 && i < len(plan.Packages)-1 {
			sleepOrDone(ctx, opts.PublishDelay)
		}
	}

	return result
}

func firstFailedDep(pkg PlannedPublish, failed map[string]bool) (string, bool) {
	for _, dep := range pkg.DepsInPlan {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

func attemptPublish(ctx context.Context, pkg PlannedPublish, publish PublishFunc, opts PublishOptions) PackageResult {
	start := time.Now()
	var lastErr error
	attempts := opts.RetryCount + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			sleepOrDone(ctx, opts.RetryDelay)
		}
		url, err := publish(ctx, pkg.Path, pkg.NewVersion, opts)
		if err == nil {
			return PackageResult{Success: true, Duration: time.Since(start), RegistryURL: url}
		}
		lastErr = err
	}

	return PackageResult{
		Success:  false,
		Error:    cerrors.Wrap(cerrors.UploadFailed, lastErr, fmt.Sprintf("publish %s failed after %d attempts", pkg.Name, attempts)),
		Duration: time.Since(start),
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func notifyStart(r *CallbackRegistry, name string) {
	if r != nil {
		r.NotifyPublishStart(name)
	}
}

func notifyComplete(r *CallbackRegistry, name string, result PackageResult) {
	if r != nil {
		r.NotifyPublishComplete(name, result)
	}
}

func notifySkip(r *CallbackRegistry, skip SkippedPackage) {
	if r != nil {
		r.NotifySkip(skip)
	}
}

// AggregateErrors collects every failed package's error into a single
// *multierror.Error for callers that want one combined diagnostic instead
// of walking PublishResult.Packages themselves.
func AggregateErrors(result PublishResult) error {
	var merr *multierror.Error
	for name, pr := range result.Packages {
		if !pr.Success && pr.Error != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", name, pr.Error))
		}
	}
	return merr.ErrorOrNil()
}
