package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/app"
	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/export"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// session is one configured service plus the store it owns.
type session struct {
	service *core.Service
	close   func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so exports on stdout stay clean.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &session{service: app.NewService(cfg, store), close: closeStore}, nil
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

// userError prefixes err with its user-facing code and prints the
// suggested action when the error is a known one.
func userError(cmd *cobra.Command, err error) error {
	if core.IsUserFacing(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), core.FormatUserError(err))
	}
	return fmt.Errorf("%s: %w", core.MapError(err).Code, err)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and manage the medicine catalog cache",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newFetchCmd(),
		newStatusCmd(),
		newMappingCmd(),
		newInvalidateCmd(),
		newExportCmd(),
	)
	return root
}

func newFetchCmd() *cobra.Command {
	var warnings int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the sheet now and update the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.service.FetchNow(ctx); err != nil {
					return userError(cmd, err)
				}

				out := cmd.OutOrStdout()
				st := s.service.Status()
				fmt.Fprintf(out, "fetched %d medicines (%d fields mapped) at %s\n",
					st.Count, s.service.HeaderMapping().Len(), st.LastUpdated.Format("2006-01-02 15:04:05 MST"))

				if warnings > 0 {
					for _, w := range s.service.Warnings(warnings) {
						fmt.Fprintln(out, "  "+w.String())
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&warnings, "warnings", "w", 0, "Print up to N data warnings")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the catalog (cache first) and print its status as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				// The status reports a failed load, so the error is not fatal here.
				_ = s.service.Start(ctx)
				return writeJSON(cmd.OutOrStdout(), s.service.Status())
			})
		},
	}
}

func newMappingCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Show which sheet header feeds each catalog field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.service.Start(ctx); err != nil && s.service.Status().Count == 0 {
					return userError(cmd, err)
				}

				m := s.service.HeaderMapping()
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), struct {
						Entries  []catalog.MappingEntry `json:"entries"`
						Unmapped []string               `json:"unmapped"`
					}{m.Entries(), m.Unmapped()})
				}
				return writeMappingTable(cmd.OutOrStdout(), m)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Delete the cached snapshot so the next load fetches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.service.Invalidate(ctx); err != nil {
					return userError(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache invalidated")
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		format     string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.service.Start(ctx); err != nil && s.service.Status().Count == 0 {
					return userError(cmd, err)
				}

				if outputPath == "" {
					return export.Write(cmd.OutOrStdout(), f, s.service.Medicines())
				}

				file, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				if err := export.Write(file, f, s.service.Medicines()); err != nil {
					file.Close()
					return fmt.Errorf("write %s: %w", outputPath, err)
				}
				if err := file.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d medicines to %s\n", len(s.service.Medicines()), outputPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func writeMappingTable(w io.Writer, m catalog.HeaderMapping) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tHEADER")
	for _, e := range m.Entries() {
		header := e.Header
		if header == "" {
			header = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", e.Field, header)
	}
	if unmapped := m.Unmapped(); len(unmapped) > 0 {
		fmt.Fprintln(tw)
		for _, h := range unmapped {
			fmt.Fprintf(tw, "(unmapped)\t%s\n", h)
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
