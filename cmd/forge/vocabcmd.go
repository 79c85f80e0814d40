package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/pageforge/internal/vocab"
)

func newVocabCmd() *cobra.Command {
	var (
		file string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect the deployed style-class vocabulary",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				_, path = generatorPaths()
			}
			v, err := vocab.Load(path)
			if err != nil {
				return fmt.Errorf("load vocabulary: %w", err)
			}

			tokens := v.Tokens()
			fmt.Printf("tokens: %d (%d style classes + 4 control)\n", v.Size(), len(tokens))
			if list {
				for _, tok := range tokens {
					fmt.Printf("  %4d  %s\n", v.ID(tok), tok)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "vocabulary file (default: deployed artifact)")
	cmd.Flags().BoolVar(&list, "list", false, "list every token with its id")
	return cmd
}
