package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/lucasilverentand/canaveral/internal/store/apple"
	"github.com/lucasilverentand/canaveral/internal/store/testflight"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

// RunTestflight dispatches `canaveral testflight <subcommand> ...`.
func RunTestflight(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "testflight: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "upload":
		return runTestflightUpload(g, rest)
	case "status":
		return runTestflightStatus(g, rest)
	case "builds":
		return runTestflightBuilds(g, rest)
	case "testers":
		return runTestflightTesters(g, rest)
	case "groups":
		return runTestflightGroups(g, rest)
	case "submit":
		return runTestflightSubmit(g, rest)
	case "expire":
		return runTestflightExpire(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "testflight: unknown subcommand %q", sub)
	}
}

func testflightClient() (*testflight.Client, *apple.Client, error) {
	cfg, err := LoadAppleConfig()
	if err != nil {
		return nil, nil, err
	}
	asc := apple.NewClient(cfg)
	return testflight.NewClient(asc), asc, nil
}

func runTestflightUpload(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight upload", flag.ContinueOnError)
	changelog := fs.String("changelog", "", "What's New text; echoed in the result, not applied to the build")
	locale := fs.String("locale", "en-US", "locale for the What's New text")
	bundleID := fs.String("bundle-id", "", "bundle identifier, used to resolve the app for status checks")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight upload: an IPA path is required")
	}
	artifactPath := fs.Arg(0)

	cfg, err := LoadAppleConfig()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	asc := apple.NewClient(cfg)
	ctx := context.Background()

	if err := asc.ValidateArtifact(ctx, artifactPath); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Validated", artifactPath)

	if g.DryRun {
		ui.Status("Would upload", artifactPath)
		return ExitSuccess
	}

	if _, err := asc.Upload(ctx, artifactPath, storeUploadOpts(g)); err != nil {
		ui.PrintWarning(err.Error())
	}
	ui.PrintWarning("binary ingestion happens out-of-band via Transporter; poll `canaveral testflight builds` for the resulting build")

	result := map[string]any{"bundle_id": *bundleID, "locale": *locale}
	if *changelog != "" {
		result["changelog"] = *changelog
		ui.Status("Note", "set the What's New text once the build appears with `canaveral testflight builds` + a future `submit` pass")
	}
	if g.Format == "json" {
		return PrintResult(g.Format, result, nil)
	}
	ui.Status("Queued", fmt.Sprintf("%s for TestFlight ingestion", artifactPath))
	return ExitSuccess
}

func runTestflightStatus(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight status", flag.ContinueOnError)
	bundleID := fs.String("bundle-id", "", "bundle identifier, used to list builds when no build id is given")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}

	tf, asc, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()

	if fs.NArg() >= 1 {
		build, err := tf.GetBuild(ctx, fs.Arg(0))
		if err != nil {
			return PrintResult(g.Format, nil, err)
		}
		if g.Format == "json" {
			return PrintResult(g.Format, build, nil)
		}
		ui.Status("Build", fmt.Sprintf("%s (%s) %s", build.ID, build.Version, build.ProcessingState))
		return ExitSuccess
	}

	if *bundleID == "" {
		return Fatalf(g.Format, g.Format == "json", "testflight status: a <build-id> or --bundle-id is required")
	}
	appID, err := asc.LookupAppID(ctx, *bundleID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	builds, err := tf.ListBuilds(ctx, appID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, builds, nil)
	}
	for _, b := range builds {
		ui.Status("Build", fmt.Sprintf("%s (%s) %s", b.ID, b.Version, b.ProcessingState))
	}
	return ExitSuccess
}

func runTestflightBuilds(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight builds", flag.ContinueOnError)
	bundleID := fs.String("bundle-id", "", "bundle identifier")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if *bundleID == "" {
		return Fatalf(g.Format, g.Format == "json", "testflight builds: --bundle-id is required")
	}
	tf, asc, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()
	appID, err := asc.LookupAppID(ctx, *bundleID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	builds, err := tf.ListBuilds(ctx, appID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, builds, nil)
	}
	for _, b := range builds {
		ui.Status("Build", fmt.Sprintf("%s (%s) %s", b.ID, b.Version, b.ProcessingState))
	}
	return ExitSuccess
}

func runTestflightTesters(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "testflight testers: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		return runTestflightTestersAdd(g, rest)
	case "remove":
		return runTestflightTestersRemove(g, rest)
	case "list":
		return runTestflightTestersList(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "testflight testers: unknown subcommand %q", sub)
	}
}

func runTestflightTestersList(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight testers list", flag.ContinueOnError)
	groupID := fs.String("group", "", "beta group id")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if *groupID == "" {
		return Fatalf(g.Format, g.Format == "json", "testflight testers list: --group is required")
	}
	ui.PrintWarning("TestFlight's betaTesters-by-group listing is paginated JSON:API and this command does not fetch it; inspect /betaGroups/{group}/betaTesters directly")
	return ExitSuccess
}

func runTestflightTestersAdd(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight testers add", flag.ContinueOnError)
	appID := fs.String("app-id", "", "App Store Connect app id")
	groupID := fs.String("group", "", "beta group id to add the invited tester to")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight testers add: an email is required")
	}
	if *appID == "" {
		return Fatalf(g.Format, g.Format == "json", "testflight testers add: --app-id is required")
	}
	email := fs.Arg(0)

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()
	if g.DryRun {
		ui.Status("Would invite", email)
		return ExitSuccess
	}
	tester, err := tf.InviteTester(ctx, *appID, email)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if *groupID != "" {
		if err := tf.AddTestersToGroup(ctx, *groupID, []string{tester.ID}); err != nil {
			return PrintResult(g.Format, nil, err)
		}
	}
	if g.Format == "json" {
		return PrintResult(g.Format, tester, nil)
	}
	ui.Status("Invited", tester.Email)
	return ExitSuccess
}

func runTestflightTestersRemove(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight testers remove", flag.ContinueOnError)
	groupID := fs.String("group", "", "if set, only remove from this group; otherwise remove the tester entirely")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight testers remove: a <tester-id> is required")
	}
	testerID := fs.Arg(0)

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()
	if g.DryRun {
		ui.Status("Would remove", testerID)
		return ExitSuccess
	}
	if *groupID != "" {
		if err := tf.RemoveTestersFromGroup(ctx, *groupID, []string{testerID}); err != nil {
			return PrintResult(g.Format, nil, err)
		}
		ui.Status("Removed", fmt.Sprintf("%s from group %s", testerID, *groupID))
		return ExitSuccess
	}
	if err := tf.RemoveTester(ctx, testerID); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Removed", testerID)
	return ExitSuccess
}

func runTestflightGroups(g GlobalFlags, args []string) int {
	if len(args) == 0 {
		return Fatalf(g.Format, g.Format == "json", "testflight groups: a subcommand is required")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return runTestflightGroupsCreate(g, rest)
	case "delete":
		return runTestflightGroupsDelete(g, rest)
	case "list":
		return runTestflightGroupsList(g, rest)
	default:
		return Fatalf(g.Format, g.Format == "json", "testflight groups: unknown subcommand %q", sub)
	}
}

func runTestflightGroupsList(g GlobalFlags, args []string) int {
	ui.PrintWarning("TestFlight's betaGroups listing is paginated JSON:API and this command does not fetch it; inspect /apps/{id}/betaGroups directly")
	return ExitSuccess
}

func runTestflightGroupsCreate(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight groups create", flag.ContinueOnError)
	appID := fs.String("app-id", "", "App Store Connect app id")
	external := fs.Bool("external", false, "create an external (non-internal) group")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight groups create: a <name> is required")
	}
	if *appID == "" {
		return Fatalf(g.Format, g.Format == "json", "testflight groups create: --app-id is required")
	}
	name := fs.Arg(0)
	audience := testflight.Internal
	if *external {
		audience = testflight.External
	}

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.DryRun {
		ui.Status("Would create", name)
		return ExitSuccess
	}
	group, err := tf.CreateGroup(context.Background(), *appID, name, audience)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, group, nil)
	}
	ui.Status("Created", group.Name)
	return ExitSuccess
}

func runTestflightGroupsDelete(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight groups delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight groups delete: a <group-id> is required")
	}
	groupID := fs.Arg(0)

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.DryRun {
		ui.Status("Would delete", groupID)
		return ExitSuccess
	}
	if !g.Yes {
		ui.PrintWarning("pass -y to confirm deleting beta group " + groupID)
		return ExitInvalidArgument
	}
	if err := tf.DeleteGroup(context.Background(), groupID); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Deleted", groupID)
	return ExitSuccess
}

func runTestflightSubmit(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight submit", flag.ContinueOnError)
	usesEncryption := fs.Bool("uses-encryption", false, "declare the build uses non-exempt encryption")
	whatsNew := fs.String("whats-new", "", "What's New text to attach before submitting")
	locale := fs.String("locale", "en-US", "locale for --whats-new")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight submit: a <build-id> is required")
	}
	buildID := fs.Arg(0)

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ctx := context.Background()
	if g.DryRun {
		ui.Status("Would submit", buildID)
		return ExitSuccess
	}

	if err := tf.SetExportCompliance(ctx, buildID, *usesEncryption); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if *whatsNew != "" {
		if err := tf.SetWhatsNew(ctx, buildID, *locale, *whatsNew); err != nil {
			return PrintResult(g.Format, nil, err)
		}
	}
	state, err := tf.SubmitForReview(ctx, buildID)
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.Format == "json" {
		return PrintResult(g.Format, map[string]string{"state": string(state)}, nil)
	}
	ui.Status("Submitted", fmt.Sprintf("%s: %s", buildID, state))
	if state == testflight.Rejected {
		return ExitValidationError
	}
	return ExitSuccess
}

func runTestflightExpire(g GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("testflight expire", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgument
	}
	if fs.NArg() < 1 {
		return Fatalf(g.Format, g.Format == "json", "testflight expire: a <build-id> is required")
	}
	buildID := fs.Arg(0)

	tf, _, err := testflightClient()
	if err != nil {
		return PrintResult(g.Format, nil, err)
	}
	if g.DryRun {
		ui.Status("Would expire", buildID)
		return ExitSuccess
	}
	if !g.Yes {
		ui.PrintWarning("pass -y to confirm expiring build " + buildID)
		return ExitInvalidArgument
	}
	if err := tf.ExpireBuild(context.Background(), buildID); err != nil {
		return PrintResult(g.Format, nil, err)
	}
	ui.Status("Expired", buildID)
	return ExitSuccess
}
