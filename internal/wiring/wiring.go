// Package wiring assembles the shared collaborator set every cmd/ entry
// point needs (registry, config, stores, reporter), so main.go files stay
// thin dispatchers with no business logic, per the teacher's internal/cli
// Command convention.
package wiring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/contenderstore"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/report"
	"github.com/kestrelsec/munge/internal/transform"
)

// Env bundles every core's shared dependencies, assembled once per process.
type Env struct {
	Config     config.Config
	Registry   *registry.Registry
	Cipher     *cipher.Cipher
	Pool       *envpool.Pool
	MungeFail  *failstore.Store
	BtrFail    *failstore.Store
	Contenders *contenderstore.Store
	Reporter   *report.Reporter
}

// Build loads config from workDir (honoring explicitConfigPath), opens both
// fail-dbs (munge and btr; the config's create_*_fail_db flags only decide
// whether recorded failures persist to them), and assembles the rest of the
// shared collaborator set.
func Build(ctx context.Context, workDir, explicitConfigPath string, quiet bool) (*Env, error) {
	cfg, err := config.Load(workDir, explicitConfigPath)
	if err != nil {
		return nil, fmt.Errorf("wiring: %w", err)
	}

	cfg.Quiet = cfg.Quiet || quiet

	if err := os.MkdirAll(filepath.Join(workDir, cfg.StateDir), 0o750); err != nil {
		return nil, fmt.Errorf("wiring: state dir: %w", err)
	}

	reg := transform.NewDefaultRegistry()
	if err := reg.ValidateInverses(); err != nil {
		return nil, fmt.Errorf("wiring: %w", err)
	}

	mungeFail := &failstore.Store{}
	if err := mungeFail.Open(ctx, filepath.Join(workDir, cfg.StateDir, "munge-fail.sqlite"), cfg.CreateMungeFailDB); err != nil {
		return nil, fmt.Errorf("wiring: munge fail db: %w", err)
	}

	btrFail := &failstore.Store{}
	if err := btrFail.Open(ctx, filepath.Join(workDir, cfg.StateDir, "btr-fail.sqlite"), cfg.CreateBtrFailDB); err != nil {
		return nil, fmt.Errorf("wiring: btr fail db: %w", err)
	}

	return &Env{
		Config:     cfg,
		Registry:   reg,
		Cipher:     cipher.New(reg),
		Pool:       envpool.New(func() analyzer.Analyzer { return analyzer.NewReference() }),
		MungeFail:  mungeFail,
		BtrFail:    btrFail,
		Contenders: contenderstore.New(cfg.DesiredContenders),
		Reporter:   report.New(os.Stdout, os.Stderr, cfg.Quiet),
	}, nil
}

// Close releases the fail-db handles.
func (e *Env) Close() {
	_ = e.MungeFail.Close()
	_ = e.BtrFail.Close()
}
