package main

import (
	"fmt"
	"sort"
	"strings"

	designaudit "github.com/hellenic-development/design-audit"
	"github.com/hellenic-development/design-audit/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the evaluation personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			opts, err := designaudit.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			svc, err := designaudit.New(opts)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			for _, p := range svc.Personas() {
				marker := " "
				if p.ID == svc.DefaultPersona() {
					marker = "*"
				}
				bold.Printf("%s %-22s", marker, p.ID)
				fmt.Printf(" %s\n", p.Name)
				fmt.Printf("    focus:   %s\n", p.Focus)
				fmt.Printf("    weights: %s\n", weightsLine(p.Weights))
			}
			fmt.Println("\n* default")
			return nil
		},
	}
}

func weightsLine(w map[string]float64) string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.1f", k, w[k])
	}
	return strings.Join(parts, " ")
}
