package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/tabular"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <module>",
		Short: "Export a module's records as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			search, _ := cmd.Flags().GetString("search")
			status, _ := cmd.Flags().GetString("status")
			filters, _ := cmd.Flags().GetStringToString("filter")
			out, _ := cmd.Flags().GetString("output")

			params := store.ListParams{Search: search, Status: store.Status(status)}
			for col, v := range filters {
				if params.Filters == nil {
					params.Filters = map[string]any{}
				}
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					params.Filters[col] = n
				} else {
					params.Filters[col] = v
				}
			}

			data, err := newPipeline().ExportAs(cmd.Context(), getPool(cmd), args[0], params, tabular.ParseFormat(format))
			if err != nil {
				return cmdErr(err, exitGeneral)
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().String("format", "csv", "Output format: csv or xlsx")
	cmd.Flags().String("search", "", "Only records whose name contains this text")
	cmd.Flags().String("status", "", "Only active or inactive records")
	cmd.Flags().StringToString("filter", nil, "Column equality filter, e.g. --filter countryID=3")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <module> <file>",
		Short: "Create records from a CSV or XLSX file",
		Long: "Create one record per data row. Rows that fail are reported and skipped;\n" +
			"the command exits with status 3 when any row failed.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			jsonMode, _ := cmd.Flags().GetBool("json")

			data, err := os.ReadFile(args[1])
			if err != nil {
				return cmdErr(fmt.Errorf("reading file: %w", err), exitUsage)
			}

			report, err := newPipeline().Import(cmd.Context(), getPool(cmd), args[0], data, filepath.Base(args[1]), user)
			if err != nil {
				return cmdErr(err, exitGeneral)
			}

			w := cmd.OutOrStdout()
			if jsonMode {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "Imported %d row(s), %d failed\n", report.SuccessCount, report.ErrorCount)
				for _, e := range report.Errors {
					fmt.Fprintln(w, "  "+e)
				}
			}
			if report.ErrorCount > 0 {
				return cmdErr(fmt.Errorf("%d row(s) failed", report.ErrorCount), exitRowErrors)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "cli", "User id recorded as creator")
	return cmd
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "sample <module>",
		Short:       "Write the import template of a module",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipDB: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("output")

			data, err := newPipeline().Sample(args[0], tabular.ParseFormat(format))
			if err != nil {
				return cmdErr(err, exitUsage)
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().String("format", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "modules",
		Short:       "List importable modules and their columns",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipDB: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			if jsonMode {
				out := map[string][]string{}
				for _, key := range modules.Keys() {
					cfg, err := modules.Get(key)
					if err != nil {
						return err
					}
					for _, c := range cfg.Columns {
						out[key] = append(out[key], tabular.AugmentedHeader(c))
					}
				}
				return json.NewEncoder(w).Encode(out)
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODULE\tLABEL\tCOLUMNS")
			for _, key := range modules.Keys() {
				cfg, err := modules.Get(key)
				if err != nil {
					return err
				}
				headers := make([]string, len(cfg.Columns))
				for i, c := range cfg.Columns {
					headers[i] = c.Header
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", key, cfg.Label, strings.Join(headers, ", "))
			}
			return tw.Flush()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the bootstrap schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := store.Migrate(cmd.Context(), getPool(cmd))
			if err != nil {
				return cmdErr(err, exitGeneral)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "Applied", name)
			}
			return nil
		},
	}
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	w, err := output(cmd, path)
	if err != nil {
		return cmdErr(err, exitUsage)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
