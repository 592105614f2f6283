package cli

import (
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahrav/gavel-bench/internal/application"
	"github.com/ahrav/gavel-bench/internal/ports"
)

func newJudgeCmd(e *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "judge <input-dir> <output-dir>",
		Short: "Score stored responses against the catalog rubric",
		Long: `Reads the result records written by "call" from input-dir, asks the judge
model to score each response against the catalog rubric, and writes one
judgment_<n>.json per response to output-dir.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runJudge(cmd, args[0], args[1])
		},
	}
}

func (e *environment) runJudge(cmd *cobra.Command, inputDir, outputDir string) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	catalog, err := e.loadCatalog()
	if err != nil {
		return err
	}

	in, err := e.openStore(ctx, inputDir)
	if err != nil {
		return err
	}

	log.Infof("Reading input-response pairs from %s...", in.Location())
	pairs, err := in.LoadPairs(ctx)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		log.Info("No input-response pairs found in the specified directory")
		return nil
	}
	log.Infof("Found %d input-response pairs", len(pairs))

	out, err := e.openStore(ctx, outputDir)
	if err != nil {
		return err
	}

	client, err := e.client(e.cfg.JudgeSpec())
	if err != nil {
		return err
	}
	judge, err := application.NewJudge(client, catalog.Rubric(), catalog.JudgeInstructions(), e.batchOptions()...)
	if err != nil {
		return err
	}

	records, err := judge.JudgeBatch(ctx, pairs)
	if err != nil {
		return err
	}

	log.Infof("Writing %d judgments to %s...", len(records), out.Location())
	if err := out.SaveJudgments(ctx, records); err != nil {
		return err
	}
	if err := out.SaveManifest(ctx, ports.RunManifest{
		RunID:     uuid.NewString(),
		Kind:      ports.ManifestKindJudgments,
		Model:     client.GetModel(),
		Records:   len(records),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Judged %d responses and saved results to %s\n", len(pairs), out.Location())
	return nil
}
