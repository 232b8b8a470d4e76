package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// listedTenant is the printed view of a directory entry.
type listedTenant struct {
	ID         string `json:"tenant_id" yaml:"tenant_id"`
	Slug       string `json:"slug" yaml:"slug"`
	Name       string `json:"name" yaml:"name"`
	SchemaName string `json:"schema_name" yaml:"schema_name"`
	Active     bool   `json:"active" yaml:"active"`
	CreatedAt  string `json:"created_at" yaml:"created_at"`
}

func printEntries(w io.Writer, f format, entries []tenant.DirectoryEntry) error {
	rows := make([]listedTenant, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, listedTenant{
			ID:         e.ID.String(),
			Slug:       e.Slug,
			Name:       e.Name,
			SchemaName: e.SchemaName,
			Active:     e.Active,
			CreatedAt:  e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSLUG\tNAME\tSCHEMA\tACTIVE\tCREATED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.Slug, r.Name, r.SchemaName, r.Active, r.CreatedAt)
		}
		return tw.Flush()
	}
}
