package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"ariga.io/atlas-go-sdk/atlasexec"
	"entgo.io/ent/dialect"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrations returns the embedded migration directory for dialectName. The
// directories are in Atlas format and carry an atlas.sum file.
func Migrations(dialectName string) (fs.FS, error) {
	sub := "postgres"
	if dialectName == dialect.SQLite {
		sub = "sqlite"
	}
	return fs.Sub(migrationsFS, "migrations/"+sub)
}

// Migrate applies the embedded DDL for the store's dialect. Statements are
// idempotent, so Migrate may run on every start.
func (s *SQLStore) Migrate(ctx context.Context) error {
	dir, err := Migrations(s.dialect)
	if err != nil {
		return err
	}
	files, err := fs.Glob(dir, "*.sql")
	if err != nil {
		return err
	}
	for _, name := range files {
		data, err := fs.ReadFile(dir, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		for _, stmt := range strings.Split(string(data), ";\n") {
			if strings.TrimSpace(stripComments(stmt)) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying migration %s: %w", name, err)
			}
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// AtlasResult summarizes an Atlas migration run.
type AtlasResult struct {
	Applied int
	Current string
	Target  string
}

// MigrateAtlas applies the Atlas migration directory dir to databaseURL with
// the atlas binary found on PATH.
func MigrateAtlas(ctx context.Context, dir, databaseURL string) (AtlasResult, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return AtlasResult{}, err
	}
	client, err := atlasexec.NewClient(abs, "atlas")
	if err != nil {
		return AtlasResult{}, fmt.Errorf("initializing atlas client: %w", err)
	}
	res, err := client.MigrateApply(ctx, &atlasexec.MigrateApplyParams{
		URL:    databaseURL,
		DirURL: "file://" + abs,
	})
	if err != nil {
		return AtlasResult{}, fmt.Errorf("applying atlas migrations: %w", err)
	}
	return AtlasResult{Applied: len(res.Applied), Current: res.Current, Target: res.Target}, nil
}
