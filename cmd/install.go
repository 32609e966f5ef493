package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/device"
	"github.com/httprunner/InstallAgent/internal/installer"
	"github.com/httprunner/InstallAgent/internal/probe"
	"github.com/httprunner/InstallAgent/internal/shell"
	"github.com/httprunner/InstallAgent/internal/storage"
	"github.com/httprunner/InstallAgent/internal/version"
)

type installOptions struct {
	Project     string
	Variant     string
	Package     string
	VersionName string
	Kind        string
	Full        bool
	Bundles     []string
	PatchAPK    string
	DepsFile    string
	ChangesFile string
	MainIndex   string
}

func newInstallCmd() *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install changed bundles onto one device",
		Long:  "根据本地快照计算变更的 bundle，按 main index 最后的顺序安装到设备；--full 时安装全部 bundle。安装成功后更新快照。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project name")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "Build variant (snapshot key)")
	cmd.Flags().StringVar(&opts.Package, "package", "", "Application package name")
	cmd.Flags().StringVar(&opts.VersionName, "version-name", "", "Declared versionName to reconcile; empty skips the check")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(installer.KindMultiAPK), "Install strategy (multi-apk|patch)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Install every bundle instead of the changed ones")
	cmd.Flags().StringArrayVar(&opts.Bundles, "bundle", nil, "Bundle apk path (repeatable)")
	cmd.Flags().StringVar(&opts.PatchAPK, "patch-apk", "", "Patch apk appended when the main bundle has dependencies")
	cmd.Flags().StringVar(&opts.DepsFile, "deps-file", "", "YAML manifest of main bundle dependencies per variant")
	cmd.Flags().StringVar(&opts.ChangesFile, "changes", "", "YAML change map used instead of the stored snapshot diff")
	cmd.Flags().StringVar(&opts.MainIndex, "main-index", "", "Main index file name overriding INSTALL_MAIN_INDEX_NAME")

	return cmd
}

func (o installOptions) validate() error {
	if strings.TrimSpace(o.Package) == "" {
		return errors.New("--package is required")
	}
	if strings.TrimSpace(o.Variant) == "" {
		return errors.New("--variant is required")
	}
	if len(o.Bundles) == 0 {
		return errors.New("at least one --bundle is required")
	}
	if o.Full && strings.TrimSpace(o.ChangesFile) != "" {
		return errors.New("--changes cannot be combined with --full")
	}
	return nil
}

func runInstall(ctx context.Context, opts installOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	cfg := config.Load()
	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}

	var deps installer.DependencyProvider
	if strings.TrimSpace(opts.DepsFile) != "" {
		loaded, err := installer.LoadDependencyFile(opts.DepsFile)
		if err != nil {
			return err
		}
		deps = loaded
	}
	files := installer.BundleFiles(opts.Variant, opts.Bundles, opts.PatchAPK, deps)

	store, err := storage.Open(firstNonEmpty(rootDBPath, cfg.StateDBPath))
	if err != nil {
		return err
	}
	defer store.Close()

	client := newShellClient(cfg)
	registry := newRegistry(cfg, client)
	strategy, err := registry.Lookup(installer.Kind(opts.Kind))
	if err != nil {
		return err
	}
	orch, err := installer.New(installer.Options{
		Strategy:   strategy,
		Reconciler: version.NewReconciler(client, cfg.VersionWaitTimeout),
		Files:      files,
		Reducer:    changeset.Reducer{MainIndexName: firstNonEmpty(opts.MainIndex, cfg.MainIndexName)},
		Recorder:   store,
	})
	if err != nil {
		return err
	}

	// digests of the artifacts as they are now; committed only on success
	artifacts, err := files(ctx)
	if err != nil {
		return err
	}
	digests, err := changeset.DigestAll(artifacts)
	if err != nil {
		return err
	}

	req := installer.Request{
		Project:         opts.Project,
		Variant:         opts.Variant,
		Package:         opts.Package,
		DeclaredVersion: opts.VersionName,
		Device:          dev,
	}
	var out installer.Outcome
	if opts.Full {
		out = orch.RunFull(ctx, req)
	} else {
		var changes changeset.ChangeMap
		if strings.TrimSpace(opts.ChangesFile) != "" {
			changes, err = installer.LoadChangeFile(opts.ChangesFile)
		} else {
			changes, err = planIncremental(ctx, store, dev.Serial(), opts.Variant, digests)
		}
		if err != nil {
			return err
		}
		out = orch.RunIncremental(ctx, req, changes)
	}
	if out.State != installer.StateSuccess {
		if out.Err == nil {
			return errors.New("install failed")
		}
		return errors.Wrap(out.Err, "install failed")
	}
	if err := store.SaveSnapshot(ctx, dev.Serial(), opts.Variant, digests); err != nil {
		return errors.Wrap(err, "save artifact snapshot")
	}
	log.Info().
		Str("serial", dev.Serial()).
		Str("variant", opts.Variant).
		Str("mode", string(out.Mode)).
		Strs("artifacts", out.Artifacts.Paths()).
		Msg("install completed")
	return nil
}

type snapshotLoader interface {
	LoadSnapshot(ctx context.Context, serial, variant string) (map[string]string, error)
}

// planIncremental diffs current digests against the last committed snapshot.
func planIncremental(ctx context.Context, store snapshotLoader, serial, variant string, current map[string]string) (changeset.ChangeMap, error) {
	previous, err := store.LoadSnapshot(ctx, serial, variant)
	if err != nil {
		return nil, err
	}
	changes := changeset.Diff(previous, current)
	log.Debug().
		Str("serial", serial).
		Str("variant", variant).
		Int("previous", len(previous)).
		Int("changes", len(changes)).
		Msg("incremental plan computed")
	return changes, nil
}

func newRegistry(cfg config.Install, client *shell.Client) *installer.Registry {
	adb := device.NewADB(cfg.ADBPath, cfg.TransferTimeout)
	registry := installer.NewRegistry()
	registry.Register(installer.KindMultiAPK, &installer.MultiAPKStrategy{Transfer: adb})
	registry.Register(installer.KindPatch, &installer.PatchStrategy{
		Client:   client,
		Prober:   probe.New(client, cfg.LsTimeout),
		Transfer: adb,
	})
	return registry
}
