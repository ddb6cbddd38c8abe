package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gamecoach-ai/gamecoach/client"
)

// NewModelsCmd builds the models command, listing the aliases the server
// serves per provider.
func NewModelsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model aliases the server offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			cli := client.New(cfg.ServerURL, client.WithToken(cfg.Token))

			models, err := cli.Models()
			if err != nil {
				return err
			}

			providers := make([]string, 0, len(models))
			for p := range models {
				providers = append(providers, p)
			}
			sort.Strings(providers)
			for _, p := range providers {
				fmt.Println(p + ":")
				for _, alias := range models[p] {
					fmt.Println("  " + alias)
				}
			}
			return nil
		},
	}
}
