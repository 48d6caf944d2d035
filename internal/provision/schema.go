package provision

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/epeers/fundsync/internal/database"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is a plain unquoted SQL identifier.
// Database and role names are restricted to this shape before provisioning.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// StatementFailure records one schema statement that did not apply.
type StatementFailure struct {
	Statement string `json:"statement"`
	Error     string `json:"error"`
}

// ScriptResult summarizes an ApplyScript call.
type ScriptResult struct {
	Path     string             `json:"path"`
	Executed int                `json:"executed"`
	Failed   []StatementFailure `json:"failed"`
}

// SchemaProvisioner creates the target database and its tables using the root account.
type SchemaProvisioner struct {
	root          database.Config
	maintenanceDB string
}

// NewSchemaProvisioner creates a SchemaProvisioner. root must point at the
// target database; maintenanceDB is where CREATE DATABASE is issued from.
func NewSchemaProvisioner(root database.Config, maintenanceDB string) *SchemaProvisioner {
	if maintenanceDB == "" {
		maintenanceDB = "postgres"
	}
	return &SchemaProvisioner{root: root, maintenanceDB: maintenanceDB}
}

// EnsureDatabase creates database name unless it already exists.
func (p *SchemaProvisioner) EnsureDatabase(ctx context.Context, name string) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("invalid database name %q", name)
	}

	conn, err := pgx.Connect(ctx, p.root.WithDatabase(p.maintenanceDB).ConnString())
	if err != nil {
		return &SchemaError{Kind: ErrConnectFailed, Database: p.maintenanceDB, Err: err}
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up database %s: %w", name, err)
	}

	if !exists {
		if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
			return fmt.Errorf("failed to create database %s: %w", name, err)
		}
	}
	log.Infof("Database '%s' ensured to exist.", name)
	return nil
}

// ApplyScript runs every statement of the script at path against the target
// database. A failing statement is logged and skipped; the call itself fails
// only when the file cannot be read or the connection is unavailable.
func (p *SchemaProvisioner) ApplyScript(ctx context.Context, path string) (*ScriptResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema script: %w", err)
	}

	conn, err := pgx.Connect(ctx, p.root.ConnString())
	if err != nil {
		return nil, &SchemaError{Kind: ErrConnectFailed, Database: p.root.Database, Err: err}
	}
	defer conn.Close(ctx)

	result := &ScriptResult{Path: path, Failed: []StatementFailure{}}
	for _, stmt := range SplitStatements(string(raw)) {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			if conn.IsClosed() {
				return result, &SchemaError{Kind: ErrConnectFailed, Database: p.root.Database, Err: err}
			}
			log.Warnf("Error executing statement: %v for: %s...", err, firstLine(stmt))
			result.Failed = append(result.Failed, StatementFailure{Statement: firstLine(stmt), Error: err.Error()})
			continue
		}
		result.Executed++
		log.Debugf("Executed SQL statement: %s...", firstLine(stmt))
	}

	log.Infof("SQL script '%s' executed (%d statements, %d failed).", path, result.Executed, len(result.Failed))
	return result, nil
}

// SplitStatements drops "--" comment lines and splits the rest on ';'.
// Empty statements are discarded.
func SplitStatements(script string) []string {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, s := range strings.Split(strings.Join(kept, "\n"), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return strings.TrimSpace(line)
}
