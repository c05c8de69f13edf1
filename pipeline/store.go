package pipeline

import (
	"fmt"

	county "github.com/khslmr/covid-county-corr"
	"github.com/khslmr/covid-county-corr/files"
	"github.com/khslmr/covid-county-corr/sql"
	"go.uber.org/zap"
)

// Store saves u to the configured database and writes the configured export file.
// Either step is skipped when its configuration is empty.
func Store(cfg *Config, u *county.Unified, opts ...Opt) error {
	r := &runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	if e := save(cfg.Storage, u, r.logger); e != nil {
		return e
	}

	return export(cfg.Export, u, r.logger)
}

func save(c StorageConfig, u *county.Unified, logger *zap.Logger) error {
	if c.Dialect == "" {
		return nil
	}

	var (
		d *sql.Dialect
		e error
	)
	if d, e = sql.Connect(sql.Connection{
		Dialect:  c.Dialect,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Password: c.Password,
		Path:     c.Path,
	}); e != nil {
		return fmt.Errorf("storage: %w", e)
	}
	defer func() { _ = d.Close() }()

	if e := d.Save(c.Table, u, true); e != nil {
		return fmt.Errorf("storage: %w", e)
	}

	logger.Info("unified table saved", zap.String("dialect", d.DialectName()), zap.String("table", c.Table),
		zap.Int("rows", u.Len()))

	return nil
}

func export(c ExportConfig, u *county.Unified, logger *zap.Logger) error {
	if c.Path == "" {
		return nil
	}

	var (
		f *files.Files
		e error
	)
	if f, e = files.NewFiles(files.FileSep(c.Separator[0]), files.FileMissing(c.Missing)); e != nil {
		return fmt.Errorf("export: %w", e)
	}

	if e := f.Create(c.Path); e != nil {
		return fmt.Errorf("export: %w", e)
	}

	if e := f.Save(u); e != nil {
		_ = f.Close()
		return fmt.Errorf("export: %w", e)
	}

	if e := f.Close(); e != nil {
		return fmt.Errorf("export: %w", e)
	}

	logger.Info("unified table exported", zap.String("path", c.Path), zap.Int("rows", u.Len()))

	return nil
}
