package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
)

type functionRow struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	HashSize   int            `json:"hash_size"`
	Args       []any          `json:"args"`
	Kwargs     map[string]any `json:"kwargs"`
	Configured bool           `json:"configured"`
	Registered bool           `json:"registered"`
	Stored     int            `json:"stored"`
}

func newFunctionsCommand(ctx *commandContext) *cobra.Command {
	functionsCmd := &cobra.Command{
		Use:   "functions",
		Short: "Inspect hash functions",
	}
	functionsCmd.AddCommand(newFunctionsListCommand(ctx))
	functionsCmd.AddCommand(newFunctionsAlgorithmsCommand())
	return functionsCmd
}

func newFunctionsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured and registered hash functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			configured, err := s.configuredFunctions()
			if err != nil {
				return err
			}
			db, err := s.openDatabase()
			if err != nil {
				return err
			}

			rows := mergeFunctionRows(configured, db.Records(), db.Stats().PerFunction)
			if asJSON {
				return writeJSON(cmd, rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					shortRunID(r.ID),
					r.Name,
					strconv.Itoa(r.HashSize),
					formatParams(r.Args, r.Kwargs),
					yesNo(r.Configured),
					yesNo(r.Registered),
					strconv.Itoa(r.Stored),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Size", "Params", "Configured", "Registered", "Stored"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newFunctionsAlgorithmsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "algorithms",
		Short:       "List the hash algorithms that can be configured",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := hashfunc.DefaultRegistry()
			var rows [][]string
			for _, name := range reg.Names() {
				entry, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, strconv.Itoa(entry.DefaultHashSize), strings.Join(entry.Params, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Default size", "Params"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func mergeFunctionRows(configured []*hashfunc.Identity, records []hashfunc.Record, stored map[string]int) []functionRow {
	byID := make(map[string]*functionRow)
	var order []string
	add := func(rec hashfunc.Record) *functionRow {
		if row, ok := byID[rec.ID]; ok {
			return row
		}
		row := &functionRow{ID: rec.ID, Name: rec.Name, HashSize: rec.HashSize, Args: rec.Args, Kwargs: rec.Kwargs, Stored: stored[rec.ID]}
		byID[rec.ID] = row
		order = append(order, rec.ID)
		return row
	}
	for _, identity := range configured {
		add(identity.Serialize()).Configured = true
	}
	for _, rec := range records {
		add(rec).Registered = true
	}

	rows := make([]functionRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byID[id])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].HashSize < rows[j].HashSize
	})
	return rows
}

func formatParams(args []any, kwargs map[string]any) string {
	var parts []string
	if len(args) > 0 {
		b, _ := json.Marshal(args)
		parts = append(parts, string(b))
	}
	if len(kwargs) > 0 {
		b, _ := json.Marshal(kwargs)
		parts = append(parts, string(b))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
