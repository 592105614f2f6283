package cli

import (
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahrav/gavel-bench/infrastructure/source"
	"github.com/ahrav/gavel-bench/internal/application"
	"github.com/ahrav/gavel-bench/internal/ports"
)

func newCallCmd(e *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "call <template-id> <input-dir> <output-dir>",
		Short: "Send every input under input-dir to the model with a prompt template",
		Long: `Collects inputs from .txt, .json and .csv files under input-dir, sends each
one to the invocation model with the template's content as the system
instruction, and writes one result_<n>.json per input to output-dir.

output-dir may be a local directory or an s3://bucket/prefix location.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runCall(cmd, args[0], args[1], args[2])
		},
	}
}

func (e *environment) runCall(cmd *cobra.Command, templateID, inputDir, outputDir string) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	catalog, err := e.loadCatalog()
	if err != nil {
		return err
	}
	tmpl, err := catalog.Template(templateID)
	if err != nil {
		return err
	}

	log.Infof("Reading inputs from %s...", inputDir)
	items, err := source.Collect(ctx, inputDir)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Info("No inputs found in the specified directory")
		return nil
	}
	log.Infof("Found %d inputs", len(items))

	out, err := e.openStore(ctx, outputDir)
	if err != nil {
		return err
	}

	client, err := e.client(e.cfg.InvocationSpec())
	if err != nil {
		return err
	}
	dispatcher, err := application.NewDispatcher(client, e.batchOptions()...)
	if err != nil {
		return err
	}

	results, err := dispatcher.Dispatch(ctx, tmpl.Content, items)
	if err != nil {
		return err
	}

	log.Infof("Writing %d results to %s...", len(results), out.Location())
	if err := out.SaveInvocations(ctx, results); err != nil {
		return err
	}
	if err := out.SaveManifest(ctx, ports.RunManifest{
		RunID:     uuid.NewString(),
		Kind:      ports.ManifestKindInvocations,
		Template:  tmpl.ID,
		Model:     client.GetModel(),
		Records:   len(results),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d inputs and saved results to %s\n", len(items), out.Location())
	return nil
}
