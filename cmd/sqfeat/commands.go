package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/sqfeat/pkg/dataset"
	"github.com/liliang-cn/sqfeat/pkg/extractors"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Create the store with one record per file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Prepopulate(ctx); err != nil {
			return fmt.Errorf("failed to populate: %w", err)
		}

		fmt.Printf("Store %s holds %d records\n", s.DBPath(), s.PointsAmt())
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <extractor>...",
	Short: "Run built-in extractors over every record",
	Long:  fmt.Sprintf("Run built-in extractors over every record. Available: %v", extractors.Names()),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		progress, _ := cmd.Flags().GetInt("progress")

		opts := []dataset.ExtractOption{dataset.WithProgress(progress)}
		if force {
			opts = append(opts, dataset.WithForce())
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, name := range args {
			fn, dep, err := extractors.Lookup(name)
			if err != nil {
				return err
			}

			var stats dataset.ExtractStats
			if fn != nil {
				stats, err = s.ExtractFeature(ctx, name, fn, opts...)
			} else {
				stats, err = s.ExtractDependentFeature(ctx, name, dep, opts...)
			}
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", name, err)
			}

			fmt.Printf("%s: computed %d, skipped %d in %s\n", name, stats.Computed, stats.Skipped, stats.Duration)
		}
		return nil
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features [name...]",
	Short: "Print features as CSV, one row per record",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ids, err := s.ExternalIDs(ctx)
		if err != nil {
			return err
		}

		if outputJSON {
			rows, err := s.Features(ctx, args...)
			if err != nil {
				return err
			}
			return printFeaturesJSON(os.Stdout, ids, rows)
		}

		m, err := s.FeatureMatrix(ctx, args...)
		if err != nil {
			return fmt.Errorf("failed to build feature matrix: %w", err)
		}
		first, err := s.SingleFeatures(ctx, 1)
		if err != nil {
			return err
		}
		return printMatrixCSV(os.Stdout, matrixHeader(tabular.Columns(first, args)), ids, m)
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Print labels as CSV, one row per record",
	RunE: func(cmd *cobra.Command, args []string) error {
		original, _ := cmd.Flags().GetBool("original")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.labeled == nil {
			return fmt.Errorf("dataset has no labels (use --labels)")
		}

		ids, err := s.ExternalIDs(ctx)
		if err != nil {
			return err
		}
		labels, err := s.labeled.Labels(ctx, original)
		if err != nil {
			return err
		}

		w := csv.NewWriter(os.Stdout)
		for i, row := range labels {
			record := []string{ids[i]}
			for _, v := range row {
				record = append(record, v.String())
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored features with their width and coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		cols, err := s.FeatureColumns(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%d records in %s\n", s.PointsAmt(), s.DBPath())
		for _, c := range cols {
			cov, err := s.Coverage(ctx, c.Name)
			if err != nil {
				return err
			}
			fmt.Printf("  %-20s width=%-4d coverage=%d/%d\n", c.Name, c.Width, cov.GetCardinality(), s.PointsAmt())
		}
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <source.db>",
	Short: "Merge the features of another store, matched by record id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.CopyFeatures(ctx, args[0], force); err != nil {
			return fmt.Errorf("failed to copy features: %w", err)
		}

		fmt.Printf("Features copied from %s\n", args[0])
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <name> <values.csv>",
	Short: "Store precomputed values, one CSV row per record in id order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		values, err := readValues(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DumpFeature(ctx, args[0], values, force); err != nil {
			return fmt.Errorf("failed to dump %s: %w", args[0], err)
		}

		fmt.Printf("Feature '%s' written for %d records\n", args[0], len(values))
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <converter>",
	Short: "Convert files straight to a matrix without storing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt64("start")
		end, _ := cmd.Flags().GetInt64("end")

		conv, err := extractors.LookupConverter(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		m, err := s.ConvertRange(ctx, start, end, conv)
		if err != nil {
			return fmt.Errorf("failed to convert: %w", err)
		}

		ids, err := s.ExternalIDs(ctx)
		if err != nil {
			return err
		}
		last := start + int64(m.Rows)
		return printMatrixCSV(os.Stdout, nil, ids[start-1:last-1], m)
	},
}

// matrixHeader expands vector columns to name[i]
func matrixHeader(cols []tabular.Column) []string {
	header := []string{"external_id"}
	for _, c := range cols {
		if c.Width == 1 {
			header = append(header, c.Name)
			continue
		}
		for i := 0; i < c.Width; i++ {
			header = append(header, fmt.Sprintf("%s[%d]", c.Name, i))
		}
	}
	return header
}

func printMatrixCSV(out io.Writer, header []string, ids []string, m *tabular.Matrix) error {
	w := csv.NewWriter(out)
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for i := 0; i < m.Rows; i++ {
		record := make([]string, 0, m.Cols+1)
		record = append(record, ids[i])
		for _, v := range m.Row(i) {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type featureRow struct {
	ExternalID string `json:"externalId"`
	Values     []any  `json:"values"`
}

func printFeaturesJSON(out io.Writer, ids []string, rows [][]feature.Value) error {
	entries := make([]featureRow, len(rows))
	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v.Interface()
		}
		entries[i] = featureRow{ExternalID: ids[i], Values: values}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// readValues reads one value per CSV row: a single field is parsed as a
// scalar or string, several fields form a vector
func readValues(path string) ([]feature.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open values file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var values []feature.Value
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read values file: %w", err)
		}
		if len(row) == 1 {
			values = append(values, feature.Parse(row[0]))
			continue
		}
		vec := make([]float64, len(row))
		for i, field := range row {
			if vec[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("line %d: invalid number %q", line, field)
			}
		}
		values = append(values, feature.Vector(vec))
	}
	return values, nil
}
