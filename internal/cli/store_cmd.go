// Package cli handles command-line interface concerns.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lucasilverentand/canaveral/internal/artifact"
	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/fastlane"
	"github.com/lucasilverentand/canaveral/internal/metasync"
	"github.com/lucasilverentand/canaveral/internal/store"
	"github.com/lucasilverentand/canaveral/internal/store/apple"
	"github.com/lucasilverentand/canaveral/internal/store/firebase"
	"github.com/lucasilverentand/canaveral/internal/store/googleplay"
	"github.com/lucasilverentand/canaveral/internal/store/microsoft"
	"github.com/lucasilverentand/canaveral/internal/ui"
	"github.com/lucasilverentand/canaveral/internal/validate"
)

// RunStore dispatches `canaveral store <provider> <subcommand> ...`.
func RunStore(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "store: a provider is required")
	}
	provider, rest := args[0], args[1:]
	switch provider {
	case "apple":
		return runStoreApple(g, rest)
	case "google-play":
		return runStoreGooglePlay(g, rest)
	case "microsoft":
		return runStoreMicrosoft(g, rest)
	case "firebase":
		return runStoreFirebase(g, rest)
	case "notarize":
		return runStoreNotarize(g, rest)
	case "validate":
		return runStoreValidate(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "store: unknown provider %q", provider)
	}
}

// --- parseReleaseNotes ---

// parseReleaseNotes splits a "lang:text,lang:text" flag value into a
// locale->text map.
func parseReleaseNotes(raw string) map[string]string {
	notes := map[string]string{}
	if raw == "" {
		return notes
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		notes[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return notes
}

// --- Apple ---

func runStoreApple(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "store apple: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "upload":
		return runStoreAppleUpload(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "store apple: unknown subcommand %q", sub)
	}
}

func runStoreAppleUpload(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store apple upload", flag.ContinueOnError)
	notarize := fs.Bool("notarize", false, "submit for notarization after validation")
	staple := fs.Bool("staple", false, "staple the notarization ticket")
	validateMetadata := fs.Bool("validate-metadata", false, "validate fastlane metadata before uploading")
	requireValidMetadata := fs.Bool("require-valid-metadata", false, "fail the upload if metadata validation reports errors")
	syncMetadata := fs.Bool("sync-metadata", false, "push local metadata to App Store Connect first")
	metadataPath := fs.String("metadata-path", "fastlane/metadata", "fastlane metadata root")
	bundleID := fs.String("bundle-id", "", "bundle identifier (required with --sync-metadata/--validate-metadata)")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store apple upload: an artifact path is required")
	}
	artifactPath := fs.Arg(0)

	cfg, err := LoadAppleConfig()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := apple.NewClient(cfg)
	ctx := context.Background()

	if err := client.ValidateArtifact(ctx, artifactPath); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Validated", artifactPath)

	if *validateMetadata || *requireValidMetadata || *syncMetadata {
		if *bundleID == "" {
			return Fatalf(g.Format, g.Format == "json", "store apple upload: --bundle-id is required with --validate-metadata/--sync-metadata")
		}
		storage := fastlane.NewStorage(*metadataPath)
		local, err := storage.LoadApple(*bundleID)
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		result := validate.ValidateApple(local, validate.ApplePolicy{PrivacyPolicyRequired: true})
		if len(result.Errors()) > 0 {
			ui.PrintWarning(fmt.Sprintf("metadata validation reported %d error(s)", len(result.Errors())))
			for _, issue := range result.Errors() {
				ui.Status("Invalid", fmt.Sprintf("%s: %s", issue.Field, issue.Message))
			}
			if *requireValidMetadata {
				return PrintResult(g.Format, nil, cerrors.ValidationFailedError([]cerrors.ValidationIssue{{Field: "metadata", Message: "one or more locales failed validation"}}))
			}
		}

		if *syncMetadata && !g.DryRun {
			engine := metasync.NewEngine(storage, client, nil)
			pushResult, err := engine.PushApple(ctx, *bundleID, nil, false)
			if err != nil {
				return PrintResult(g.Format, nil, err)
			}
			ui.Status("Synced", fmt.Sprintf("%d metadata field(s) changed", len(pushResult.Diff)))
		}
	}

	if g.DryRun {
		ui.Status("Would upload", artifactPath)
		return ExitSuccess
	}

	uploadResult := map[string]any{"status": "validated"}
	if _, err := client.Upload(ctx, artifactPath, storeUploadOpts(g)); err != nil && !cerrors.Is(err, cerrors.InvalidArgument) {
		return PrintResult(g.Format, nil, err)
	}
	ui.PrintWarning("binary ingestion happens out-of-band via Transporter; use `canaveral testflight status` to poll the resulting build")

	if *notarize {
		submissionID, err := client.SubmitForNotarization(ctx, artifactPath)
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		uploadResult["notarization_submission_id"] = submissionID
		ui.Status("Submitted", fmt.Sprintf("notarization %s", submissionID))
	}
	if *staple {
		if err := apple.StapleTicket(artifactPath); err != nil {
			ui.PrintWarning(err.Error())
		}
	}

	if g.Format == "json" {
		return PrintResult(g.Format, uploadResult, nil)
	}
	ui.Status("Uploaded", artifactPath)
	return ExitSuccess
}

func storeUploadOpts(g GlobalFlags) store.UploadOptions {
	return store.UploadOptions{DryRun: g.DryRun}
}

// --- Google Play ---

func runStoreGooglePlay(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "store google-play: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "upload":
		return runStoreGooglePlayUpload(g, rest)
	case "rollout":
		return runStoreGooglePlayRollout(g, rest)
	case "promote":
		return runStoreGooglePlayPromote(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "store google-play: unknown subcommand %q", sub)
	}
}

func runStoreGooglePlayUpload(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store google-play upload", flag.ContinueOnError)
	packageName := fs.String("package-name", "", "Android package name")
	serviceAccount := fs.String("service-account", "", "service account JSON, path or content")
	track := fs.String("track", "", "release track (internal|alpha|beta|production)")
	rollout := fs.Float64("rollout", 1.0, "staged rollout fraction (0..1)")
	releaseNotes := fs.String("release-notes", "", "lang:text,lang:text")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store google-play upload: an artifact path is required")
	}
	if *packageName == "" || *track == "" {
		return Fatalf(g.Format, g.Format == "json", "store google-play upload: --package-name and --track are required")
	}
	artifactPath := fs.Arg(0)

	cfg, err := LoadGooglePlayConfig(*serviceAccount)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := googleplay.NewClient(cfg)
	ctx := context.Background()

	if err := client.ValidateArtifact(ctx, artifactPath); err != nil {
		return PrintResult(g.Format, nil, err)
	}

	if g.DryRun {
		ui.Status("Would upload", fmt.Sprintf("%s to %s/%s", artifactPath, *packageName, *track))
		return ExitSuccess
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return PrintResult(g.Format, nil, fmt.Errorf("read %s: %w", artifactPath, err))
	}

	result, err := client.UploadRelease(ctx, *packageName, *track, data, *rollout, parseReleaseNotes(*releaseNotes))
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.Status("Uploaded", fmt.Sprintf("version %s to %s/%s", result.BuildID, *packageName, *track))
	return ExitSuccess
}

func runStoreGooglePlayRollout(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store google-play rollout", flag.ContinueOnError)
	packageName := fs.String("package-name", "", "Android package name")
	track := fs.String("track", "", "release track")
	serviceAccount := fs.String("service-account", "", "service account JSON, path or content")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 2 {
		return Fatalf(g.Format, g.Format == "json", "store google-play rollout: <build-id> <fraction> are required")
	}
	if *packageName == "" || *track == "" {
		return Fatalf(g.Format, g.Format == "json", "store google-play rollout: --package-name and --track are required")
	}
	fraction, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		return Fatalf(g.Format, g.Format == "json", "store google-play rollout: invalid fraction %q", fs.Arg(1))
	}

	cfg, err := LoadGooglePlayConfig(*serviceAccount)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := googleplay.NewClient(cfg)
	if g.DryRun {
		ui.Status("Would update", fmt.Sprintf("rollout of %s to %.2f", fs.Arg(0), fraction))
		return ExitSuccess
	}
	if err := client.UpdateRollout(context.Background(), *packageName, *track, fs.Arg(0), fraction); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Updated", fmt.Sprintf("rollout of %s to %.2f", fs.Arg(0), fraction))
	return ExitSuccess
}

func runStoreGooglePlayPromote(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store google-play promote", flag.ContinueOnError)
	packageName := fs.String("package-name", "", "Android package name")
	from := fs.String("from", "", "source track")
	to := fs.String("to", "", "destination track")
	serviceAccount := fs.String("service-account", "", "service account JSON, path or content")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store google-play promote: a <build-id> is required")
	}
	if *packageName == "" || *from == "" || *to == "" {
		return Fatalf(g.Format, g.Format == "json", "store google-play promote: --package-name, --from, and --to are required")
	}

	cfg, err := LoadGooglePlayConfig(*serviceAccount)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := googleplay.NewClient(cfg)
	if g.DryRun {
		ui.Status("Would promote", fmt.Sprintf("%s from %s to %s", fs.Arg(0), *from, *to))
		return ExitSuccess
	}
	if err := client.PromoteBuild(context.Background(), *packageName, fs.Arg(0), *from, *to); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Promoted", fmt.Sprintf("%s from %s to %s", fs.Arg(0), *from, *to))
	return ExitSuccess
}

// --- Microsoft ---

func runStoreMicrosoft(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "store microsoft: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "upload":
		return runStoreMicrosoftUpload(g, rest)
	case "flights":
		return runStoreMicrosoftFlights(g, rest)
	case "status":
		return runStoreMicrosoftStatus(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "store microsoft: unknown subcommand %q", sub)
	}
}

func microsoftClient(tenantID, clientID, clientSecret string) (*microsoft.Client, error) {
	cfg, err := LoadMicrosoftConfig(tenantID, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	return microsoft.NewClient(cfg), nil
}

func runStoreMicrosoftUpload(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store microsoft upload", flag.ContinueOnError)
	tenantID := fs.String("tenant-id", "", "Azure AD tenant id")
	clientID := fs.String("client-id", "", "Azure AD application id")
	clientSecret := fs.String("client-secret", "", "Azure AD application secret")
	appID := fs.String("app-id", "", "Partner Center application id")
	flight := fs.String("flight", "", "flight id for a flighted submission")
	releaseNotes := fs.String("release-notes", "", "lang:text,lang:text")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store microsoft upload: an artifact path is required")
	}
	if *appID == "" {
		return Fatalf(g.Format, g.Format == "json", "store microsoft upload: --app-id is required")
	}
	artifactPath := fs.Arg(0)

	client, err := microsoftClient(*tenantID, *clientID, *clientSecret)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()

	if g.DryRun {
		ui.Status("Would upload", fmt.Sprintf("%s to app %s", artifactPath, *appID))
		return ExitSuccess
	}

	sub, err := client.CreateSubmission(ctx, *appID, *flight)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	filename := artifactPath
	if idx := strings.LastIndexByte(artifactPath, '/'); idx >= 0 {
		filename = artifactPath[idx+1:]
	}
	if err := client.UploadPackage(ctx, sub, artifactPath); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if err := client.PatchSubmission(ctx, *appID, sub, nil, filename, parseReleaseNotes(*releaseNotes)); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if err := client.CommitSubmission(ctx, *appID, sub.ID); err != nil {
		return PrintResult(g.Format, nil, err)
	}

	if g.Format == "json" {
		return PrintResult(g.Format, map[string]any{"submission_id": sub.ID}, nil)
	}
	ui.Status("Committed", fmt.Sprintf("submission %s", sub.ID))
	return ExitSuccess
}

func runStoreMicrosoftFlights(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store microsoft flights", flag.ContinueOnError)
	tenantID := fs.String("tenant-id", "", "Azure AD tenant id")
	clientID := fs.String("client-id", "", "Azure AD application id")
	clientSecret := fs.String("client-secret", "", "Azure AD application secret")
	appID := fs.String("app-id", "", "Partner Center application id")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if *appID == "" {
		return Fatalf(g.Format, g.Format == "json", "store microsoft flights: --app-id is required")
	}
	client, err := microsoftClient(*tenantID, *clientID, *clientSecret)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	tracks, err := client.ListTracks(context.Background(), *appID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, tracks, nil)
	}
	for _, t := range tracks {
		ui.Status("Flight", t.Name)
	}
	return ExitSuccess
}

func runStoreMicrosoftStatus(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store microsoft status", flag.ContinueOnError)
	tenantID := fs.String("tenant-id", "", "Azure AD tenant id")
	clientID := fs.String("client-id", "", "Azure AD application id")
	clientSecret := fs.String("client-secret", "", "Azure AD application secret")
	appID := fs.String("app-id", "", "Partner Center application id")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store microsoft status: a <submission-id> is required")
	}
	if *appID == "" {
		return Fatalf(g.Format, g.Format == "json", "store microsoft status: --app-id is required")
	}
	client, err := microsoftClient(*tenantID, *clientID, *clientSecret)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	state, err := client.GetSubmissionStatus(context.Background(), *appID, fs.Arg(0))
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, map[string]string{"state": string(state)}, nil)
	}
	ui.Status("Status", string(state))
	return ExitSuccess
}

// --- Firebase ---

func runStoreFirebase(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "store firebase: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "upload":
		return runStoreFirebaseUpload(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "store firebase: unknown subcommand %q", sub)
	}
}

func runStoreFirebaseUpload(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store firebase upload", flag.ContinueOnError)
	releaseNotes := fs.String("release-notes", "", "release notes text")
	testers := fs.String("testers", "", "comma-separated tester emails to distribute to")
	groups := fs.String("groups", "", "comma-separated group aliases to distribute to")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store firebase upload: an artifact path is required")
	}
	artifactPath := fs.Arg(0)

	cfg, err := LoadFirebaseConfig()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := firebase.NewClient(cfg)
	ctx := context.Background()

	if g.DryRun {
		ui.Status("Would upload", artifactPath)
		return ExitSuccess
	}

	releaseName, err := client.UploadBinary(ctx, artifactPath)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Uploaded", releaseName)

	if *releaseNotes != "" {
		if err := client.SetReleaseNotes(ctx, releaseName, *releaseNotes); err != nil {
			return PrintResult(g.Format, nil, err)
		}
	}

	testerEmails := splitNonEmpty(*testers)
	groupAliases := splitNonEmpty(*groups)
	if len(testerEmails) > 0 || len(groupAliases) > 0 {
		if err := client.Distribute(ctx, releaseName, testerEmails, groupAliases); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		ui.Status("Distributed", fmt.Sprintf("%d tester(s), %d group(s)", len(testerEmails), len(groupAliases)))
	}

	if g.Format == "json" {
		return PrintResult(g.Format, map[string]string{"release": releaseName}, nil)
	}
	return ExitSuccess
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// --- Common ---

func runStoreNotarize(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store notarize", flag.ContinueOnError)
	wait := fs.Bool("wait", false, "poll until the submission reaches a terminal state")
	staple := fs.Bool("staple", false, "staple the notarization ticket once accepted")
	timeoutSeconds := fs.Int("timeout", 600, "poll timeout in seconds")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store notarize: an artifact path is required")
	}
	artifactPath := fs.Arg(0)

	cfg, err := LoadAppleConfig()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	client := apple.NewClient(cfg)
	ctx := context.Background()

	if g.DryRun {
		ui.Status("Would submit", fmt.Sprintf("%s for notarization", artifactPath))
		return ExitSuccess
	}

	submissionID, err := client.SubmitForNotarization(ctx, artifactPath)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Submitted", fmt.Sprintf("notarization %s", submissionID))

	status := apple.NotarizationInProgress
	if *wait {
		deadline := time.Now().Add(time.Duration(*timeoutSeconds) * time.Second)
		for time.Now().Before(deadline) {
			status, err = client.GetNotarizationStatus(ctx, submissionID)
			if err != nil {
				return PrintResult(g.Format, nil, err)
			}
			if status.Terminal() {
				break
			}
			time.Sleep(5 * time.Second)
		}
	}

	if *staple {
		if status == apple.NotarizationAccepted || !*wait {
			if err := apple.StapleTicket(artifactPath); err != nil {
				ui.PrintWarning(err.Error())
			}
		} else {
			ui.PrintWarning("skipping staple: notarization did not reach Accepted")
		}
	}

	result := map[string]any{"submission_id": submissionID, "status": string(status)}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.Status("Status", string(status))
	if status == apple.NotarizationInvalid || status == apple.NotarizationRejected {
		return ExitValidationError
	}
	return ExitSuccess
}

func runStoreValidate(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("store validate", flag.ContinueOnError)
	storeName := fs.String("store", "", "apple|google-play|microsoft")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "store validate: an artifact path is required")
	}
	if *storeName == "" {
		return Fatalf(g.Format, g.Format == "json", "store validate: --store is required")
	}
	artifactPath := fs.Arg(0)
	ctx := context.Background()

	var describe map[string]any
	switch *storeName {
	case "apple":
		// Apple's artifact is an IPA, a zip shape artifact.Detect doesn't
		// model (it only distinguishes APK/MSIX among zips); Upload's own
		// ValidateArtifact already knows the IPA layout.
		if err := apple.NewClient(apple.Config{}).ValidateArtifact(ctx, artifactPath); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		describe = map[string]any{"store": "apple", "path": artifactPath}
	case "google-play":
		if err := googleplay.NewClient(googleplay.Config{}).ValidateArtifact(ctx, artifactPath); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		parsed, err := describeArtifact(artifactPath)
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		describe = map[string]any{"store": "google-play", "path": artifactPath, "mime_type": parsed.MIMEType, "is_apk": parsed.IsAPK()}
	case "microsoft":
		if err := microsoft.NewClient(microsoft.Config{}).ValidateArtifact(ctx, artifactPath); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		parsed, err := describeArtifact(artifactPath)
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		describe = map[string]any{"store": "microsoft", "path": artifactPath, "mime_type": parsed.MIMEType}
	default:
		return Fatalf(g.Format, g.Format == "json", "store validate: unknown --store %q", *storeName)
	}

	if g.Format == "json" {
		return PrintResult(g.Format, describe, nil)
	}
	ui.Status("Valid", artifactPath)
	return ExitSuccess
}

func describeArtifact(path string) (*artifact.AssetInfo, error) {
	parser, err := artifact.Detect(path)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ValidationFailed, err, "detect artifact format")
	}
	info, err := parser.Parse(path)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ValidationFailed, err, "parse artifact")
	}
	return info, nil
}
