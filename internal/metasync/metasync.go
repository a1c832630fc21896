// Package metasync composes the Fastlane storage layer (internal/fastlane)
// with the per-store API clients (internal/store/apple,
// internal/store/googleplay) to pull, push, and diff store-listing
// metadata, optionally narrowed to a locale subset.
package metasync

import (
	"context"
	"fmt"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/fastlane"
	"github.com/lucasilverentand/canaveral/internal/locale"
	"github.com/lucasilverentand/canaveral/internal/metadata"
	"github.com/lucasilverentand/canaveral/internal/store/apple"
	"github.com/lucasilverentand/canaveral/internal/store/googleplay"
)

// Engine pulls, pushes, and diffs metadata between the local Fastlane
// tree and each configured store's API. Either store client may be nil
// when that store isn't configured for the current app; operations for
// the other store remain unaffected.
type Engine struct {
	storage    *fastlane.Storage
	apple      *apple.Client
	googlePlay *googleplay.Client
}

// NewEngine creates an Engine rooted at storage, wired to whichever
// store clients are configured.
func NewEngine(storage *fastlane.Storage, appleClient *apple.Client, googlePlayClient *googleplay.Client) *Engine {
	return &Engine{storage: storage, apple: appleClient, googlePlay: googlePlayClient}
}

func localeSet(tags []locale.Tag) map[locale.Tag]bool {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[locale.Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

// filterApple drops any localization not in locales. A nil/empty set
// means "every known locale" and is a no-op.
func filterApple(m *metadata.AppleMetadata, locales []locale.Tag) {
	set := localeSet(locales)
	if set == nil {
		return
	}
	for tag := range m.Localizations {
		if !set[tag] {
			delete(m.Localizations, tag)
		}
	}
}

func filterGooglePlay(m *metadata.GooglePlayMetadata, locales []locale.Tag) {
	set := localeSet(locales)
	if set == nil {
		return
	}
	for tag := range m.Localizations {
		if !set[tag] {
			delete(m.Localizations, tag)
		}
	}
}

// --- Apple ---

// PullApple fetches bundleID's listing from App Store Connect, narrows
// it to locales (all remote locales when empty), and writes it into the
// local Fastlane tree.
func (e *Engine) PullApple(ctx context.Context, bundleID string, locales []locale.Tag) error {
	if e.apple == nil {
		return cerrors.New(cerrors.InvalidArgument, "no Apple store client configured")
	}
	remote, err := e.apple.Pull(ctx, bundleID)
	if err != nil {
		return fmt.Errorf("pull apple metadata: %w", err)
	}
	filterApple(remote, locales)
	return e.storage.SaveApple(remote)
}

// PushApple reads bundleID's local Fastlane tree, narrows it to locales
// (all local locales when empty), and pushes it to App Store Connect.
// dryRun performs no writes; the returned PushResult's Diff always
// reflects what differs.
func (e *Engine) PushApple(ctx context.Context, bundleID string, locales []locale.Tag, dryRun bool) (*apple.PushResult, error) {
	if e.apple == nil {
		return nil, cerrors.New(cerrors.InvalidArgument, "no Apple store client configured")
	}
	local, err := e.storage.LoadApple(bundleID)
	if err != nil {
		return nil, fmt.Errorf("load local apple metadata: %w", err)
	}
	filterApple(local, locales)
	return e.apple.Push(ctx, local, dryRun)
}

// DiffApple reports the field-level differences between the local
// Fastlane tree and App Store Connect for bundleID, without writing
// anything on either side.
func (e *Engine) DiffApple(ctx context.Context, bundleID string) ([]apple.MetadataDiff, error) {
	if e.apple == nil {
		return nil, cerrors.New(cerrors.InvalidArgument, "no Apple store client configured")
	}
	local, err := e.storage.LoadApple(bundleID)
	if err != nil {
		return nil, fmt.Errorf("load local apple metadata: %w", err)
	}
	remote, err := e.apple.Pull(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("pull apple metadata: %w", err)
	}
	return apple.DiffAppleMetadata(local, remote), nil
}

// --- Google Play ---

// PullGooglePlay fetches packageName's listing from the Play Developer
// API, narrows it to locales (all remote locales when empty), and
// writes it into the local Fastlane tree.
func (e *Engine) PullGooglePlay(ctx context.Context, packageName string, locales []locale.Tag) error {
	if e.googlePlay == nil {
		return cerrors.New(cerrors.InvalidArgument, "no Google Play store client configured")
	}
	remote, err := e.googlePlay.Pull(ctx, packageName)
	if err != nil {
		return fmt.Errorf("pull google play metadata: %w", err)
	}
	filterGooglePlay(remote, locales)
	return e.storage.SaveGooglePlay(remote)
}

// PushGooglePlay reads packageName's local Fastlane tree, narrows it to
// locales (all local locales when empty), and pushes it to the Play
// Developer API unless dryRun is set, in which case only the diff is
// computed and nothing is committed (the remote listing is still read
// through Pull's transient, discarded edit).
func (e *Engine) PushGooglePlay(ctx context.Context, packageName string, locales []locale.Tag, dryRun bool) ([]googleplay.MetadataDiff, error) {
	if e.googlePlay == nil {
		return nil, cerrors.New(cerrors.InvalidArgument, "no Google Play store client configured")
	}
	local, err := e.storage.LoadGooglePlay(packageName)
	if err != nil {
		return nil, fmt.Errorf("load local google play metadata: %w", err)
	}
	filterGooglePlay(local, locales)

	remote, err := e.googlePlay.Pull(ctx, packageName)
	if err != nil {
		return nil, fmt.Errorf("pull google play metadata: %w", err)
	}
	diff := googleplay.DiffGooglePlayMetadata(local, remote)
	if dryRun {
		return diff, nil
	}
	if err := e.googlePlay.Push(ctx, local); err != nil {
		return nil, fmt.Errorf("push google play metadata: %w", err)
	}
	return diff, nil
}

// DiffGooglePlay reports the field-level differences between the local
// Fastlane tree and the Play Developer API for packageName, without
// writing anything on either side.
func (e *Engine) DiffGooglePlay(ctx context.Context, packageName string) ([]googleplay.MetadataDiff, error) {
	if e.googlePlay == nil {
		return nil, cerrors.New(cerrors.InvalidArgument, "no Google Play store client configured")
	}
	local, err := e.storage.LoadGooglePlay(packageName)
	if err != nil {
		return nil, fmt.Errorf("load local google play metadata: %w", err)
	}
	remote, err := e.googlePlay.Pull(ctx, packageName)
	if err != nil {
		return nil, fmt.Errorf("pull google play metadata: %w", err)
	}
	return googleplay.DiffGooglePlayMetadata(local, remote), nil
}
