package provision

import (
	"context"
	"fmt"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/models"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Privilege statements per role. Placeholders are rendered by the server's
// format() from bound parameters: %1$I is the database, %2$I the role.
var roleGrants = map[models.Role][]string{
	models.RoleAdmin: {
		"GRANT ALL PRIVILEGES ON DATABASE %1$I TO %2$I",
		"GRANT ALL PRIVILEGES ON SCHEMA public TO %2$I",
		"GRANT ALL PRIVILEGES ON ALL TABLES IN SCHEMA public TO %2$I",
		"GRANT ALL PRIVILEGES ON ALL SEQUENCES IN SCHEMA public TO %2$I",
	},
	models.RoleReader: {
		"GRANT CONNECT ON DATABASE %1$I TO %2$I",
		"GRANT USAGE ON SCHEMA public TO %2$I",
		"GRANT SELECT ON ALL TABLES IN SCHEMA public TO %2$I",
	},
}

// AccessProvisioner creates login roles on the target database with a
// role-scoped set of privileges.
type AccessProvisioner struct {
	root database.Config
}

// NewAccessProvisioner creates an AccessProvisioner. root must point at the target database.
func NewAccessProvisioner(root database.Config) *AccessProvisioner {
	return &AccessProvisioner{root: root}
}

// ProvisionUser drops username if present, recreates it with password and
// grants the privileges of role on the target database. All steps run in one
// transaction, so a failure leaves the previous account state in place.
func (p *AccessProvisioner) ProvisionUser(ctx context.Context, username, password string, role models.Role) error {
	if !role.Valid() {
		return &ProvisionError{Kind: ErrUnknownRole, Username: username, Err: fmt.Errorf("%q", role)}
	}
	if !ValidIdentifier(username) {
		return &ProvisionError{Kind: ErrStageFailed, Stage: StageCreate, Username: username,
			Err: fmt.Errorf("invalid username")}
	}

	conn, err := pgx.Connect(ctx, p.root.ConnString())
	if err != nil {
		return p.stageErr(StageConnect, username, err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return p.stageErr(StageConnect, username, err)
	}
	defer tx.Rollback(ctx)

	if err := dropRole(ctx, tx, username); err != nil {
		return p.stageErr(StageDrop, username, err)
	}
	log.Infof("User '%s' dropped if existed.", username)

	if err := execFormatted(ctx, tx, "CREATE ROLE %I LOGIN PASSWORD %L", username, password); err != nil {
		return p.stageErr(StageCreate, username, err)
	}
	log.Infof("User '%s' created.", username)

	for _, grant := range roleGrants[role] {
		if err := execFormatted(ctx, tx, grant, p.root.Database, username); err != nil {
			return p.stageErr(StageGrant, username, err)
		}
	}
	log.Infof("Granted %s privileges to '%s'.", role, username)

	if err := tx.Commit(ctx); err != nil {
		return p.stageErr(StageApply, username, err)
	}
	log.Infof("Privileges applied for '%s'.", username)
	return nil
}

// VerifyReadOnly confirms username can SELECT from every table and can
// neither INSERT, UPDATE nor DELETE.
func (p *AccessProvisioner) VerifyReadOnly(ctx context.Context, username string, tables []string) error {
	conn, err := pgx.Connect(ctx, p.root.ConnString())
	if err != nil {
		return p.stageErr(StageConnect, username, err)
	}
	defer conn.Close(ctx)

	var canLogin bool
	err = conn.QueryRow(ctx, `SELECT rolcanlogin FROM pg_roles WHERE rolname = $1`, username).Scan(&canLogin)
	if err != nil {
		return p.stageErr(StageVerify, username, fmt.Errorf("role lookup: %w", err))
	}
	if !canLogin {
		return p.stageErr(StageVerify, username, fmt.Errorf("role cannot log in"))
	}

	query := `
		SELECT has_table_privilege($1, $2, 'SELECT'),
		       has_table_privilege($1, $2, 'INSERT')
		    OR has_table_privilege($1, $2, 'UPDATE')
		    OR has_table_privilege($1, $2, 'DELETE')
	`
	for _, table := range tables {
		var canRead, canWrite bool
		if err := conn.QueryRow(ctx, query, username, table).Scan(&canRead, &canWrite); err != nil {
			return p.stageErr(StageVerify, username, fmt.Errorf("privilege check on %s: %w", table, err))
		}
		if !canRead {
			return p.stageErr(StageVerify, username, fmt.Errorf("missing SELECT on %s", table))
		}
		if canWrite {
			return p.stageErr(StageVerify, username, fmt.Errorf("unexpected write privilege on %s", table))
		}
	}
	return nil
}

func (p *AccessProvisioner) stageErr(stage Stage, username string, err error) error {
	log.Errorf("Error provisioning user '%s' at stage %s: %v", username, stage, err)
	return &ProvisionError{Kind: ErrStageFailed, Stage: stage, Username: username, Err: err}
}

// dropRole removes username and everything it owns or was granted in this
// database. A missing role is not an error.
func dropRole(ctx context.Context, tx pgx.Tx, username string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, username).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return nil
	}

	for _, format := range []string{
		"REASSIGN OWNED BY %I TO CURRENT_USER",
		"DROP OWNED BY %I",
		"DROP ROLE %I",
	} {
		if err := execFormatted(ctx, tx, format, username); err != nil {
			return err
		}
	}
	return nil
}

// execFormatted renders format on the server with format() so identifiers and
// literals are quoted by PostgreSQL itself, then executes the result.
func execFormatted(ctx context.Context, tx pgx.Tx, format string, args ...string) error {
	var stmt string
	if err := tx.QueryRow(ctx, `SELECT format($1, VARIADIC $2::text[])`, format, args).Scan(&stmt); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return err
	}
	return nil
}
