package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the personas in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.agent.CurrentPersona().ID
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCHANNELS\t")
		for _, p := range a.agent.Personas() {
			marker := ""
			if p.ID == current {
				marker = "*"
			}
			channels := strings.Join(p.Channels, ",")
			if channels == "" {
				channels = "any"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", marker, p.ID, p.Name, channels)
		}
		return w.Flush()
	},
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the delivery channels and their artifact types",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.agent.CurrentChannel().ID
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tARTIFACTS\t")
		for _, ch := range a.agent.Channels() {
			marker := ""
			if ch.ID == current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", marker, ch.ID, ch.Name, strings.Join(ch.Artifacts, ","))
		}
		return w.Flush()
	},
}
