package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/validation"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an exported resume snapshot",
	Long:  "Checks a snapshot JSON file against the snapshot schema and the submit rules of the form (required name, valid email), and prints a summary.",
	RunE:  runValidate,
}

var (
	validateInput  string
	validateSchema string
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to snapshot JSON file (required)")
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "JSON Schema to validate against (defaults to the built-in snapshot schema)")

	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	printer := observability.NewPrinter(cmd.OutOrStdout())

	snap, err := loadSnapshot(validateInput, validateSchema)
	if err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) {
			printer.PrintSchemaErrors(schemaErr)
			return fmt.Errorf("snapshot does not match the schema: %d violation(s)", len(schemaErr.Errors))
		}
		return err
	}

	printer.PrintSnapshot(snap)

	state := validation.New().Check(snap.Resume())
	printer.PrintValidation(state)
	if err := validation.AsError(state); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot is valid\n")
	return nil
}
