package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (id INT);
   -- indented comment; with a semicolon
CREATE TABLE b (
    id INT
);

;
INSERT INTO a VALUES (1)`

	got := SplitStatements(script)
	assert.Equal(t, []string{
		"CREATE TABLE a (id INT)",
		"CREATE TABLE b (\n    id INT\n)",
		"INSERT INTO a VALUES (1)",
	}, got)
}

func TestSplitStatements_OnlyComments(t *testing.T) {
	assert.Empty(t, SplitStatements("-- nothing\n-- here\n"))
}

func TestValidIdentifier(t *testing.T) {
	for _, ok := range []string{"funds", "fund_admin", "_x", "A1"} {
		assert.True(t, ValidIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1funds", "fund-admin", `x"; DROP ROLE postgres; --`, "a b"} {
		assert.False(t, ValidIdentifier(bad), bad)
	}
}

func TestEnsureDatabase_RejectsBadName(t *testing.T) {
	p := NewSchemaProvisioner(database.Config{Host: "127.0.0.1"}, "")
	err := p.EnsureDatabase(context.Background(), "funds; DROP DATABASE postgres")
	assert.Error(t, err)
}

func TestApplyScript_MissingFile(t *testing.T) {
	p := NewSchemaProvisioner(database.Config{Host: "127.0.0.1"}, "")
	_, err := p.ApplyScript(context.Background(), "does/not/exist.sql")
	assert.Error(t, err)
}

func TestProvisionUser_UnknownRoleFailsBeforeConnecting(t *testing.T) {
	// Port 1 is never a PostgreSQL server; reaching it would yield StageConnect.
	p := NewAccessProvisioner(database.Config{Host: "127.0.0.1", Port: 1})

	err := p.ProvisionUser(context.Background(), "fund_owner", "pw", models.Role("owner"))
	assert.True(t, errors.Is(err, ErrUnknownRole))

	var pe *ProvisionError
	if assert.True(t, errors.As(err, &pe)) {
		assert.Equal(t, "fund_owner", pe.Username)
		assert.Equal(t, Stage(""), pe.Stage)
	}
}

func TestProvisionUser_UnreachableServer(t *testing.T) {
	p := NewAccessProvisioner(database.Config{Host: "127.0.0.1", Port: 1, Database: "funds", User: "root"})

	err := p.ProvisionUser(context.Background(), "fund_reader", "pw", models.RoleReader)
	assert.True(t, errors.Is(err, ErrStageFailed))

	var pe *ProvisionError
	if assert.True(t, errors.As(err, &pe)) {
		assert.Equal(t, StageConnect, pe.Stage)
	}
}
