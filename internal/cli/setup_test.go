package cli

import (
	"testing"
	"time"

	"github.com/repowizard/repowizard/pkg/config"
	"github.com/repowizard/repowizard/pkg/setup"
	"github.com/repowizard/repowizard/pkg/source"
)

func boolPtr(v bool) *bool { return &v }

func TestBuildRequestDefaults(t *testing.T) {
	opts := &setupOpts{kind: "auto"}
	req, err := buildRequest(config.Config{}, opts, "https://example.com/user/repo.git", false)
	if err != nil {
		t.Fatalf("buildRequest() error: %v", err)
	}
	if req.Source.Kind != source.KindGit {
		t.Errorf("Kind = %s, want git", req.Source.Kind)
	}
	if req.TargetDir == "" {
		t.Error("TargetDir should default to the working directory")
	}
	if !req.AutoInstall {
		t.Error("AutoInstall should default to true")
	}
	if req.CloneTimeout != 0 {
		t.Errorf("CloneTimeout = %v, want 0 (runner applies the default)", req.CloneTimeout)
	}
}

func TestBuildRequestExplicitKind(t *testing.T) {
	opts := &setupOpts{kind: "archive"}
	req, err := buildRequest(config.Config{}, opts, "bundle.tgz", false)
	if err != nil {
		t.Fatalf("buildRequest() error: %v", err)
	}
	if req.Source.Kind != source.KindArchive {
		t.Errorf("Kind = %s, want archive", req.Source.Kind)
	}

	if _, err := buildRequest(config.Config{}, &setupOpts{kind: "bogus"}, "x", false); err == nil {
		t.Error("buildRequest() accepted an unknown kind")
	}
}

func TestBuildRequestConfigPrecedence(t *testing.T) {
	cfg := config.Config{
		TargetDir:       "/from/config",
		AutoInstall:     boolPtr(false),
		NestedManifests: boolPtr(true),
		CloneTimeout:    config.Duration{Duration: time.Minute},
	}

	// Config applies when flags are unset.
	req, err := buildRequest(cfg, &setupOpts{kind: "git"}, "https://example.com/r.git", false)
	if err != nil {
		t.Fatal(err)
	}
	want := setup.Request{
		TargetDir:       "/from/config",
		AutoInstall:     false,
		NestedManifests: true,
		CloneTimeout:    time.Minute,
	}
	if req.TargetDir != want.TargetDir || req.AutoInstall != want.AutoInstall ||
		req.NestedManifests != want.NestedManifests || req.CloneTimeout != want.CloneTimeout {
		t.Errorf("request = %+v, want config values applied", req)
	}

	// Flags beat config.
	opts := &setupOpts{kind: "git", target: "/from/flag", install: true, cloneTimeout: 2 * time.Minute}
	req, err = buildRequest(cfg, opts, "https://example.com/r.git", true)
	if err != nil {
		t.Fatal(err)
	}
	if req.TargetDir != "/from/flag" || !req.AutoInstall || req.CloneTimeout != 2*time.Minute {
		t.Errorf("request = %+v, want flag values to win", req)
	}
}

func TestBuildRequestNoInstallFlag(t *testing.T) {
	opts := &setupOpts{kind: "git", noInstall: true}
	req, err := buildRequest(config.Config{AutoInstall: boolPtr(true)}, opts, "https://example.com/r.git", true)
	if err != nil {
		t.Fatal(err)
	}
	if req.AutoInstall {
		t.Error("--no-install should disable installation")
	}
}
