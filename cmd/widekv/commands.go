package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/db"
)

func (a *app) putEntityCmd() *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "put-entity <key> <name=value>...",
		Short: "Write an entity",
		Long: `Write an entity. Each column is given as name=value; a bare =value sets
the default column. Columns are stored sorted by name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			names, values, err := parseColumns(args[1:])
			if err != nil {
				return err
			}
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			cf, err := a.columnFamily(d, "")
			if err != nil {
				return err
			}

			var slot widekv.ErrorSlot
			widekv.PutEntityCF(d, &widekv.WriteOptions{Sync: sync}, cf, parseInput(args[0]), names, values, &slot)
			if slot.Holding() {
				return fmt.Errorf("put-entity failed: %w", slot.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", true, "Sync the WAL before returning")
	return cmd
}

func (a *app) getEntityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-entity <key>",
		Short: "Print the columns of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			cf, err := a.columnFamily(d, "")
			if err != nil {
				return err
			}

			key := parseInput(args[0])
			var slot widekv.ErrorSlot
			cols := widekv.GetEntityCF(d, nil, cf, key, &slot)
			defer cols.Destroy()
			if slot.Holding() {
				return fmt.Errorf("get-entity failed: %w", slot.Err())
			}
			if cols.Size() == 0 {
				if _, lookupErr := d.GetCF(nil, cf, key); widekv.IsNotFound(lookupErr) {
					return fmt.Errorf("key not found: %s", formatOutput(key))
				}
			}
			return a.render(cmd, newEntityOut(key, cols.Columns()), func(w *bytes.Buffer) {
				writeColumnsText(w, cols.Columns())
			})
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	var (
		from, to string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print entities in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			cf, err := a.columnFamily(d, "")
			if err != nil {
				return err
			}

			ro := widekv.DefaultReadOptions()
			if from != "" {
				ro.IterateLowerBound = parseInput(from)
			}
			if to != "" {
				ro.IterateUpperBound = parseInput(to)
			}
			it, err := d.NewIteratorCF(ro, cf)
			if err != nil {
				return err
			}
			defer it.Close()

			entries := []entityOut{}
			for it.SeekToFirst(); it.Valid(); it.Next() {
				cols := widekv.IterColumns(it)
				entries = append(entries, newEntityOut(it.Key(), cols.Columns()))
				cols.Destroy()
				if limit > 0 && len(entries) >= limit {
					break
				}
			}
			if err := it.Error(); err != nil {
				return fmt.Errorf("iterator error: %w", err)
			}

			return a.render(cmd, entries, func(w *bytes.Buffer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s => %s\n", e.Key, e.text())
				}
				fmt.Fprintf(w, "\n(%d entries scanned)\n", len(entries))
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start key (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "End key (exclusive)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit number of entries (0 = unlimited)")
	return cmd
}

// batchRecord is one entity in a batch-put file.
type batchRecord struct {
	CF      string            `json:"cf" yaml:"cf"`
	Key     string            `json:"key" yaml:"key"`
	Columns map[string]string `json:"columns" yaml:"columns"`
}

func readBatchFile(path string) ([]batchRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}
	var records []batchRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	default:
		err = yaml.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	return records, nil
}

func (a *app) batchPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch-put <file>",
		Short: "Write entities from a YAML or JSON file atomically",
		Long: `Write entities from a file holding a list of {cf, key, columns}
records. Files ending in .json are read as JSON, anything else as YAML.
A record without cf uses --cf.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			records, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()

			wb := db.NewWriteBatch()
			var slot widekv.ErrorSlot
			for i, rec := range records {
				cf, err := a.columnFamily(d, rec.CF)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				names, values := sortedColumns(rec.Columns)
				widekv.WriteBatchPutEntityCF(wb, cf, parseInput(rec.Key), names, values, &slot)
				if slot.Holding() {
					return fmt.Errorf("record %d: %w", i, slot.Err())
				}
			}
			if err := d.Write(&widekv.WriteOptions{Sync: true}, wb); err != nil {
				return fmt.Errorf("batch write failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK (%d entities)\n", wb.Count())
			return nil
		},
	}
}

func (a *app) createCFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-cf <name>",
		Short: "Create a column family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			h, err := d.CreateColumnFamily(args[0])
			if err != nil {
				return fmt.Errorf("create-cf failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK (id %d)\n", h.ID())
			return nil
		},
	}
}

func (a *app) listCFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-cf",
		Short: "List column families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			names := d.ListColumnFamilies()
			return a.render(cmd, names, func(w *bytes.Buffer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Walk every column family and print statistics",
		Long: `Read every entity of every column family, then print the collected
statistics in the Prometheus text exposition format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			stats := widekv.NewStatistics()
			a.stats = stats
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			if err := walk(d); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			if err := reg.Register(widekv.NewCollector(stats, "widekv", prometheus.Labels{"db": a.cfg.DB})); err != nil {
				return fmt.Errorf("register collector: %w", err)
			}
			families, err := reg.Gather()
			if err != nil {
				return fmt.Errorf("gather metrics: %w", err)
			}
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return nil
		},
	}
}

// walk looks up every key of every column family with GetEntity.
func walk(d *db.DB) error {
	for _, name := range d.ListColumnFamilies() {
		cf, ok := d.GetColumnFamily(name)
		if !ok {
			continue
		}
		it, err := d.NewIteratorCF(nil, cf)
		if err != nil {
			return err
		}
		var slot widekv.ErrorSlot
		for it.SeekToFirst(); it.Valid() && !slot.Holding(); it.Next() {
			widekv.GetEntityCF(d, nil, cf, it.Key(), &slot).Destroy()
		}
		err = multierr.Combine(it.Error(), slot.Err(), it.Close())
		if err != nil {
			return fmt.Errorf("column family %s: %w", name, err)
		}
	}
	return nil
}

func versionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), widekv.BuildInfoString("widekv", verbose))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include build properties")
	return cmd
}

// parseColumns splits name=value arguments.
func parseColumns(args []string) (names, values [][]byte, err error) {
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, nil, fmt.Errorf("column %q: expected name=value", arg)
		}
		names = append(names, parseInput(name))
		values = append(values, parseInput(value))
	}
	return names, values, nil
}

func sortedColumns(m map[string]string) (names, values [][]byte) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		names = append(names, parseInput(k))
		values = append(values, parseInput(m[k]))
	}
	return names, values
}
