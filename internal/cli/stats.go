package cli

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/ahrav/gavel-bench/internal/application"
	"github.com/ahrav/gavel-bench/internal/domain"
)

func newStatsCmd(e *environment) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats <judgment-dir>",
		Short: "Summarize the judgment scores in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := application.ParseReportFormat(format)
			if err != nil {
				return err
			}
			return e.runStats(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(application.FormatTable), "report format: table or json")
	return cmd
}

func newCompareCmd(e *environment) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "compare <judgment-dir-1> <judgment-dir-2>",
		Short: "Run a two-sample t-test per dimension between two judgment directories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := application.ParseReportFormat(format)
			if err != nil {
				return err
			}
			return e.runCompare(cmd, args[0], args[1], f)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(application.FormatTable), "report format: table or json")
	return cmd
}

func (e *environment) runStats(cmd *cobra.Command, dir string, format application.ReportFormat) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	records, err := e.readJudgments(ctx, dir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Info("No judgment files found in the specified directory")
		return nil
	}
	log.Infof("Found %d judgment files", len(records))

	return application.RenderSummary(cmd.OutOrStdout(), application.Summarize(records), format)
}

func (e *environment) runCompare(cmd *cobra.Command, dir1, dir2 string, format application.ReportFormat) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	records1, err := e.readJudgments(ctx, dir1)
	if err != nil {
		return err
	}
	records2, err := e.readJudgments(ctx, dir2)
	if err != nil {
		return err
	}

	for _, side := range []struct {
		dir     string
		records []domain.JudgmentRecord
	}{{dir1, records1}, {dir2, records2}} {
		if len(side.records) == 0 {
			log.Infof("No judgment files found in %s", side.dir)
			return nil
		}
	}
	log.Infof("Found %d judgment files in %s", len(records1), dir1)
	log.Infof("Found %d judgment files in %s", len(records2), dir2)

	results := application.Compare(
		application.NewScoreDistribution(dir1, records1),
		application.NewScoreDistribution(dir2, records2),
	)
	return application.RenderComparison(cmd.OutOrStdout(), results, format)
}

func (e *environment) readJudgments(ctx context.Context, dir string) ([]domain.JudgmentRecord, error) {
	st, err := e.openStore(ctx, dir)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).Infof("Reading judgment files from %s...", st.Location())
	return st.LoadJudgments(ctx)
}
