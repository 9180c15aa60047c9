package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/sweep"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// measurementRow is the flattened form of a sweep.Measurement used by every
// output format.
type measurementRow struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Host      string `json:"host" yaml:"host"`
	Display   string `json:"display" yaml:"display"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	LatencyMs *int64 `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
	Estimated bool   `json:"estimated,omitempty" yaml:"estimated,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

func toRows(measurements []sweep.Measurement) []measurementRow {
	rows := make([]measurementRow, 0, len(measurements))
	for _, m := range measurements {
		row := measurementRow{
			ID:        m.Server.ID,
			Host:      m.Server.IP,
			Display:   m.Display,
			ErrorKind: string(m.ErrorKind),
		}
		if m.Server.Name != m.Server.IP {
			row.Name = m.Server.Name
		}
		if m.Result != nil {
			row.Method = string(m.Result.Method)
			row.Estimated = !m.Result.Measured()
			if m.Result.Raw == "" && !m.Result.Unmeasured {
				ms := m.Result.LatencyMs
				row.LatencyMs = &ms
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func writeRows(w io.Writer, format string, rows []measurementRow) error {
	if format != formatTable {
		return encode(w, format, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tHOST\tLATENCY")
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, r.Host, r.Display)
	}
	return tw.Flush()
}

func writeServers(w io.Writer, format string, servers []directory.Server) error {
	if format != formatTable {
		return encode(w, format, servers)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREGION\tCOUNTRY\tIP")
	for _, s := range servers {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n", s.ID, s.Flag, s.Name, s.Region, s.Country, s.IP)
	}
	return tw.Flush()
}
