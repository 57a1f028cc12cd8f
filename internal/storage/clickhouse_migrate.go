package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leaderboard-collector/internal/logging"
)

// execer runs a statement without returning rows; driver.Conn satisfies it
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// RunClickHouseMigrations executes every .sql file in migrationsPath in
// lexical order. Statements are expected to be idempotent.
func RunClickHouseMigrations(ctx context.Context, db execer, migrationsPath string) ([]string, error) {
	logger := logging.FromContext(ctx)

	files, err := os.ReadDir(migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	if len(sqlFiles) == 0 {
		logger.Warn("No ClickHouse migration files found")
		return nil, nil
	}

	for _, filename := range sqlFiles {
		content, err := os.ReadFile(filepath.Join(migrationsPath, filename)) // #nosec G304 - path is built from trusted migrationsPath
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		for i, stmt := range splitSQLStatements(string(content)) {
			logger.WithFields(map[string]interface{}{
				"file":      filename,
				"statement": i + 1,
			}).Debugf("Executing %s", truncate(stmt, 80))

			if err := db.Exec(ctx, stmt); err != nil {
				return nil, fmt.Errorf("failed to execute statement %d in %s: %w", i+1, filename, err)
			}
		}
		logger.WithField("file", filename).Info("Applied ClickHouse migration")
	}

	return sqlFiles, nil
}

// splitSQLStatements splits SQL content on statement-ending semicolons,
// dropping comment-only lines and the trailing semicolon.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
