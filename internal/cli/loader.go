package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomkit/loom/internal/bump"
	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/detect"
	"github.com/loomkit/loom/internal/logging"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/regen"
	"github.com/loomkit/loom/internal/store"
)

// env is the wired-up service graph a command runs against.
type env struct {
	cfg      config.Config
	store    *store.Store
	detector *detect.Detector
	source   *detect.FileSource
	service  *regen.Service
}

// openEnv loads configuration, opens the store, and builds the services.
// Callers must close the returned env.
func openEnv(opts *RootOptions) (*env, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
		cfg = loaded
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.DesignSource != "" {
		cfg.DesignSource = opts.DesignSource
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	logLevel := cfg.Log.Level
	if opts.Verbose {
		logLevel = "debug"
	}
	log := logging.New(logging.Config{Level: logLevel, Pretty: cfg.Log.Pretty})

	source := detect.NewFileSource(cfg.DesignSource)
	return &env{
		cfg:      cfg,
		store:    st,
		detector: detect.New(source, log),
		source:   source,
		service: regen.NewService(st, regen.TemplateGenerator{},
			regen.WithLogger(log),
			regen.WithClassifier(bump.New(cfg.BumpThreshold)),
		),
	}, nil
}

func (e *env) close() {
	e.store.Close()
}

// resolveArtifact accepts an artifact name or id.
func (e *env) resolveArtifact(ctx context.Context, ref string) (*model.Artifact, error) {
	a, err := e.store.GetArtifactByName(ctx, ref)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	a, err = e.store.GetArtifact(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown artifact %q", ref))
		}
		return nil, err
	}
	return a, nil
}

// resolveVersion accepts a version id or a semantic version like "1.2.0".
func (e *env) resolveVersion(ctx context.Context, artifactID, ref string) (*model.Version, error) {
	if sv, err := model.ParseSemVer(ref); err == nil {
		versions, err := e.store.ListVersions(ctx, artifactID, store.Filter{})
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if v.SemVer == sv {
				return v, nil
			}
		}
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no version %s for artifact", ref))
	}

	v, err := e.store.GetVersion(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown version %q", ref))
		}
		return nil, err
	}
	if v.ArtifactID != artifactID {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("version %s belongs to a different artifact", ref))
	}
	return v, nil
}
