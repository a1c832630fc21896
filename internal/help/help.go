// Package help provides colorful CLI help output.
package help

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasilverentand/canaveral/internal/cli"
	"github.com/lucasilverentand/canaveral/internal/ui"
)

// Color palette: green, dark purple, greyscale
var (
	// Green tones
	green = lipgloss.Color("35") // Green

	// Purple tones
	purple = lipgloss.Color("54") // Dark purple

	// Greyscale
	grey     = lipgloss.Color("245")
	greyDark = lipgloss.Color("242")
	white    = lipgloss.Color("252")
)

// Render functions that don't add extra whitespace
func renderGreen(s string) string {
	return lipgloss.NewStyle().Foreground(green).Render(s)
}

func renderPurple(s string) string {
	return lipgloss.NewStyle().Foreground(purple).Render(s)
}

func renderPurpleBold(s string) string {
	return lipgloss.NewStyle().Foreground(purple).Bold(true).Render(s)
}

func renderGreenBold(s string) string {
	return lipgloss.NewStyle().Foreground(green).Bold(true).Render(s)
}

func renderWhite(s string) string {
	return lipgloss.NewStyle().Foreground(white).Render(s)
}

func renderGrey(s string) string {
	return lipgloss.NewStyle().Foreground(grey).Render(s)
}

func renderGreyDark(s string) string {
	return lipgloss.NewStyle().Foreground(greyDark).Render(s)
}

func renderURL(s string) string {
	return lipgloss.NewStyle().Foreground(green).Underline(true).Render(s)
}

// RootHelp returns the top-level --help output.
func RootHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderWhite("Sign, vault, and ship releases across app stores") + "\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("canaveral") + " <command> [options]\n\n")

	b.WriteString(renderPurpleBold("COMMANDS") + "\n")
	b.WriteString("  " + renderGreen("signing") + "      " + renderWhite("Code signing, team vault, and audit log") + "\n")
	b.WriteString("  " + renderGreen("store") + "        " + renderWhite("Upload, validate, and notarize to app stores") + "\n")
	b.WriteString("  " + renderGreen("testflight") + "   " + renderWhite("Manage TestFlight builds, testers, and groups") + "\n\n")

	b.WriteString(renderPurpleBold("EXAMPLES") + "\n")
	writeExample(&b, "canaveral signing team init acme --email=ci@acme.dev", "Create a new signing team vault")
	writeExample(&b, "canaveral signing sign app.app --identity=dev", "Sign an artifact with a vault identity")
	writeExample(&b, "canaveral store apple upload app.ipa --notarize", "Upload and notarize to App Store Connect")
	writeExample(&b, "canaveral store google-play upload --package-name=com.example.app --track=beta app.aab", "Upload to a Google Play track")
	writeExample(&b, "canaveral testflight upload app.ipa --changelog=notes.txt", "Upload a build to TestFlight")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("ENVIRONMENT") + "\n")
	b.WriteString("  " + renderPurple("CANAVERAL_SIGNING_KEY") + "          " + renderWhite("Vault authentication (private key)") + "\n")
	b.WriteString("  " + renderPurple("APP_STORE_CONNECT_API_KEY") + "      " + renderWhite("PEM content or path to .p8") + "\n")
	b.WriteString("  " + renderPurple("GOOGLE_PLAY_SERVICE_ACCOUNT_KEY") + " " + renderWhite("Path or JSON") + "\n")
	b.WriteString("  " + renderPurple("MS_TENANT_ID, MS_CLIENT_ID, ...") + "  " + renderWhite("Microsoft Partner Center credentials") + "\n\n")

	b.WriteString(renderPurpleBold("GLOBAL FLAGS") + "\n")
	b.WriteString("  " + renderGreen("-h, --help") + "      " + renderWhite("Show help") + "\n")
	b.WriteString("  " + renderGreen("-v, --version") + "   " + renderWhite("Show version") + "\n")
	b.WriteString("  " + renderGreen("--format=json") + "   " + renderWhite("Emit a stable JSON document for the command") + "\n")
	b.WriteString("  " + renderGreen("--verbose") + "       " + renderWhite("Debug output") + "\n")
	b.WriteString("  " + renderGreen("--no-color") + "      " + renderWhite("Disable colored output") + "\n\n")

	b.WriteString(renderPurpleBold("MORE INFO") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing --help") + "     " + renderWhite("Detailed signing/vault help") + "\n")
	b.WriteString("  " + renderGreen("canaveral store --help") + "       " + renderWhite("Detailed store upload help") + "\n")
	b.WriteString("  " + renderGreen("canaveral testflight --help") + "  " + renderWhite("Detailed TestFlight help") + "\n")
	b.WriteString("  " + renderURL("https://github.com/lucasilverentand/canaveral") + "\n")

	return b.String()
}

// SigningHelp returns colorful help for the signing subcommand.
func SigningHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderGreenBold("canaveral signing") + " " + renderWhite("- Code signing, team vault, and audit log") + "\n")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing") + " <subcommand> [options]\n\n")

	b.WriteString(renderPurpleBold("ARTIFACT SUBCOMMANDS") + "\n")
	writeFlag(&b, "list", "List signing identities [--provider=…] [--valid-only]")
	writeFlag(&b, "sign <artifact>", "Sign an artifact [--identity=…] [--entitlements=…]")
	b.WriteString("                            " + renderGreyDark("[--hardened-runtime] [--deep] [--force] [--timestamp|--no-timestamp]") + "\n")
	writeFlag(&b, "verify <artifact>", "Verify a signature [--deep] [--strict] [--check-notarization]")
	writeFlag(&b, "info <identity>", "Show details for one identity")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("TEAM VAULT SUBCOMMANDS") + "\n")
	writeFlag(&b, "team init <team>", "Create a vault --email=<addr> [--path=<dir>]")
	writeFlag(&b, "team keygen", "Generate a vault keypair [--output=<file>]")
	writeFlag(&b, "team status", "Show vault membership and identity summary")
	writeFlag(&b, "team member list", "List vault members and roles")
	writeFlag(&b, "team member add", "Add a member <email> <pubkey> --role=…")
	writeFlag(&b, "team member remove", "Remove a member <email>")
	writeFlag(&b, "team member role", "Change a member's role <email> <role>")
	writeFlag(&b, "team identity list", "List identities stored in the vault")
	writeFlag(&b, "team identity import", "Import an identity <id> <file> [--type=…] [--expires=…] [--tag=…]")
	writeFlag(&b, "team identity export", "Export an identity <id> [--output=…]")
	writeFlag(&b, "team identity delete", "Delete an identity <id>")
	writeFlag(&b, "team audit", "Show the audit log [--limit=N] [--actor=…] [--identity=…]")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("OTHER FLAGS") + "\n")
	writeFlag(&b, "-n, --dry-run", "Describe the action without performing it")
	writeFlag(&b, "--verbose", "Debug output")
	writeFlag(&b, "--no-color", "Disable colored output")
	writeFlag(&b, "-h, --help", "Show this help")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("EXAMPLES") + "\n\n")
	b.WriteString(renderGreyDark("  # Create a new team vault") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing team init acme --email=ci@acme.dev") + "\n\n")
	b.WriteString(renderGreyDark("  # Import a release keystore as a vault identity") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing team identity import release key.p12 --type=android-keystore") + "\n\n")
	b.WriteString(renderGreyDark("  # Sign an artifact with a vault identity") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing sign app.app --identity=release --hardened-runtime") + "\n\n")
	b.WriteString(renderGreyDark("  # Inspect the last 20 vault events") + "\n")
	b.WriteString("  " + renderGreen("canaveral signing team audit --limit=20") + "\n\n")

	return b.String()
}

// StoreHelp returns colorful help for the store subcommand.
func StoreHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderGreenBold("canaveral store") + " " + renderWhite("- Upload, validate, and notarize to app stores") + "\n")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("canaveral store") + " <provider> <subcommand> [options]\n\n")

	b.WriteString(renderPurpleBold("APPLE") + "\n")
	writeFlag(&b, "apple upload <artifact>", "[--notarize] [--staple] [--validate-metadata]")
	b.WriteString("                            " + renderGreyDark("[--sync-metadata] [--metadata-path=…] [--require-valid-metadata] [--dry-run]") + "\n")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("GOOGLE PLAY") + "\n")
	writeFlag(&b, "google-play upload <artifact>", "--package-name=… --service-account=… --track=…")
	b.WriteString("                            " + renderGreyDark("[--rollout=0..1] [--release-notes=lang:text,…]") + "\n")
	writeFlag(&b, "google-play rollout <id> <f>", "Update a staged rollout fraction --track=…")
	writeFlag(&b, "google-play promote <id>", "Promote a build --from=… --to=…")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("MICROSOFT") + "\n")
	writeFlag(&b, "microsoft upload <artifact>", "--tenant-id=… --client-id=… --client-secret=… --app-id=… [--flight=…]")
	writeFlag(&b, "microsoft flights", "List configured flights")
	writeFlag(&b, "microsoft status <id>", "Show submission status")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("FIREBASE") + "\n")
	writeFlag(&b, "firebase upload <artifact>", "[--release-notes=…] [--testers=…] [--groups=…]")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("COMMON") + "\n")
	writeFlag(&b, "notarize <artifact>", "[--wait] [--staple] [--timeout=s]")
	writeFlag(&b, "validate <artifact>", "--store=apple|google-play|microsoft")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("OTHER FLAGS") + "\n")
	writeFlag(&b, "--format=json", "Emit a stable JSON document")
	writeFlag(&b, "--verbose", "Debug output")
	writeFlag(&b, "--no-color", "Disable colored output")
	writeFlag(&b, "-h, --help", "Show this help")

	return b.String()
}

// TestflightHelp returns colorful help for the testflight subcommand.
func TestflightHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderGreenBold("canaveral testflight") + " " + renderWhite("- Manage TestFlight builds, testers, and groups") + "\n")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("canaveral testflight") + " <subcommand> [options]\n\n")

	b.WriteString(renderPurpleBold("SUBCOMMANDS") + "\n")
	writeFlag(&b, "upload <ipa>", "[--changelog=…] [--locale=en-US]")
	writeFlag(&b, "status [build-id]", "[--bundle-id=…]")
	writeFlag(&b, "builds", "--bundle-id=…")
	writeFlag(&b, "testers {list|add|remove}", "Manage external/internal testers")
	writeFlag(&b, "groups {list|create|delete}", "Manage beta groups")
	writeFlag(&b, "submit <build-id>", "Submit a build for beta review")
	writeFlag(&b, "expire <build-id>", "Expire a build [-y]")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("EXAMPLES") + "\n\n")
	b.WriteString(renderGreyDark("  # Upload a build and list its processing status") + "\n")
	b.WriteString("  " + renderGreen("canaveral testflight upload app.ipa --changelog=notes.txt") + "\n")
	b.WriteString("  " + renderGreen("canaveral testflight status --bundle-id=com.acme.app") + "\n\n")

	return b.String()
}

// HandleHelp processes help for a command.
func HandleHelp(cmd cli.Command, args []string) {
	// Show command-specific help
	switch cmd {
	case cli.CommandSigning:
		fmt.Fprint(os.Stdout, SigningHelp())
	case cli.CommandStore:
		fmt.Fprint(os.Stdout, StoreHelp())
	case cli.CommandTestflight:
		fmt.Fprint(os.Stdout, TestflightHelp())
	default:
		fmt.Fprint(os.Stdout, RootHelp())
	}
}

// Helper to write a flag line
func writeFlag(b *strings.Builder, flag, desc string) {
	b.WriteString("  " + renderGreen(flag))
	// Pad to align descriptions (min 1 space)
	padding := 30 - len(flag)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(renderWhite(desc) + "\n")
}

// Helper to write an example line
func writeExample(b *strings.Builder, cmd, desc string) {
	b.WriteString("  " + renderGreen(cmd))
	// Pad to align descriptions
	padding := 54 - len(cmd)
	if padding > 0 {
		b.WriteString(strings.Repeat(" ", padding))
	}
	b.WriteString(renderGrey(desc) + "\n")
}
