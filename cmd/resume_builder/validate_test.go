package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidateFlags(t *testing.T, in, schema string) {
	t.Helper()
	validateInput, validateSchema = in, schema
	t.Cleanup(func() {
		validateInput, validateSchema = "", ""
	})
}

func TestRunValidate_Valid(t *testing.T) {
	setValidateFlags(t, "testdata/snapshot.json", "")

	cmd, stdout, _ := testCommand()
	require.NoError(t, runValidate(cmd, nil))

	out := stdout.String()
	assert.Contains(t, out, "RESUME SNAPSHOT")
	assert.Contains(t, out, "Ann Lee")
	assert.Contains(t, out, "SUBMIT CHECKS")
	assert.Contains(t, out, "Snapshot is valid")
}

func TestRunValidate_SchemaViolation(t *testing.T) {
	setValidateFlags(t, "testdata/schema_violation.json", "")

	cmd, stdout, _ := testCommand()
	err := runValidate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match the schema")

	out := stdout.String()
	assert.Contains(t, out, "SCHEMA VIOLATIONS")
	assert.Contains(t, out, "skills")
	assert.Contains(t, out, "experience.0.id")
	assert.NotContains(t, out, "Snapshot is valid")
}

func TestRunValidate_RuleViolation(t *testing.T) {
	setValidateFlags(t, "testdata/rule_violation.json", "")

	cmd, stdout, _ := testCommand()
	err := runValidate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "email")

	out := stdout.String()
	assert.Contains(t, out, "SUBMIT CHECKS")
	assert.Contains(t, out, "✗ name")
	assert.Contains(t, out, "✗ email")
}

func TestRunValidate_CustomSchema(t *testing.T) {
	setValidateFlags(t, "testdata/snapshot.json", "../../schemas/resume_snapshot.schema.json")

	cmd, stdout, _ := testCommand()
	require.NoError(t, runValidate(cmd, nil))
	assert.Contains(t, stdout.String(), "Snapshot is valid")
}

func TestRunValidate_MissingFile(t *testing.T) {
	setValidateFlags(t, "testdata/missing.json", "")

	cmd, _, _ := testCommand()
	err := runValidate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot file not found")
}

func TestValidateCommand_MissingInFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "validate")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"in\" not set")
}
