package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modelgate/internal/models"
	"modelgate/internal/provider"
	"modelgate/internal/ui"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models <provider>",
		Short: "List the models a provider accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.router(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := rt.ListModels(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, capability := range []models.Capability{models.CapabilityText, models.CapabilityAudio} {
				ids := catalog.Models(capability)
				if len(ids) == 0 {
					continue
				}
				ui.Heading(out, string(capability))
				for _, id := range ids {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.router(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range rt.Providers() {
				p, err := rt.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-12s %s\n", name, strings.Join(provider.Capabilities(p), ", "))
			}
			return nil
		},
	}
}
