package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"audioflow/internal/catalog"
	"audioflow/pkg/audiometa"
	"audioflow/pkg/validator"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Resolve an identifier against the configured catalog and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the Redis and SQLite catalogs",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write records into the configured Redis or SQLite catalog",
	Long: `Seed writes the built-in chapter records, or the records of a JSON file given
with --file, into the catalog selected by --resolver-mode.`,
	Args: cobra.NoArgs,
	RunE: runCatalogSeed,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the identifiers of the configured catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var seedFile string

func init() {
	catalogSeedCmd.Flags().StringVar(&seedFile, "file", "", "JSON file with an array of records (default: built-in chapters)")
	catalogCmd.AddCommand(catalogSeedCmd, catalogListCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	b, err := openBackend(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.close()
	}()

	resolver, err := b.resolver(cmd.Context(), config, logger.Named("resolver"))
	if err != nil {
		return err
	}

	result := resolver.Resolve(cmd.Context(), args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("lookup failed: %s", result.Message)
	}
	return nil
}

func runCatalogSeed(cmd *cobra.Command, _ []string) error {
	records, err := loadSeedRecords(seedFile)
	if err != nil {
		return err
	}

	b, err := openBackend(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.close()
	}()

	s, ok := b.lookup.(seeder)
	if !ok {
		return fmt.Errorf("resolver mode %q cannot be seeded (use redis or sqlite)", b.mode)
	}

	if err := s.Seed(cmd.Context(), records); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d records into the %s catalog\n", len(records), b.mode)
	return nil
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	b, err := openBackend(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.close()
	}()

	lister, ok := b.lookup.(idLister)
	if !ok {
		return fmt.Errorf("resolver mode %q cannot list identifiers", b.mode)
	}

	ids, err := lister.IDs(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

// loadSeedRecords reads and validates records from path, or returns the
// built-in chapters when path is empty.
func loadSeedRecords(path string) ([]audiometa.Record, error) {
	if path == "" {
		return catalog.DefaultRecords(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []audiometa.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	v := validator.New()
	var errs []error
	for i, r := range records {
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("record %d: id is required", i))
			continue
		}
		if err := v.Err(r); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return records, nil
}
