package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/config"
	"github.com/fathomlabs/chaind/internal/library"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List available chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFile(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		fmt.Println("Templates:")
		for _, name := range chain.TemplateNames() {
			def, err := chain.NewTemplate(name)
			if err != nil {
				continue
			}
			fmt.Printf("  %-18s %s\n", name, def.Description)
		}

		lib, err := library.New(cfg.Library.ChainsDir, zap.NewNop())
		if err != nil {
			return fmt.Errorf("loading chain library: %w", err)
		}
		if names := lib.Names(); len(names) > 0 {
			fmt.Println("\nCustom:")
			for _, name := range names {
				def, _ := lib.Lookup(name)
				fmt.Printf("  %-18s %s\n", name, def.Description)
			}
		}
		return nil
	},
}
