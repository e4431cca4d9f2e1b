package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
)

type rankFlags struct {
	lng       float64
	lat       float64
	strategy  string
	lenient   bool
	format    string
	disasterK float64
	vulnK     float64
}

// registryExport is the object form of an input file.
type registryExport struct {
	Disaster *models.Coordinates  `json:"disaster" yaml:"disaster"`
	Families []models.FamilyRecord `json:"families" yaml:"families"`
}

func newRankCmd() *cobra.Command {
	var f rankFlags
	defaults := ranking.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "rank <file.json|file.yaml>",
		Short: "Rank families in a registry export",
		Long: `Rank families in a registry export and print the evacuation order.

Examples:
  # Dependency-aware order around a Delhi epicenter
  evac-rank rank --lng 77.209 --lat 28.6139 families.json

  # Weighted scores as GeoJSON, skipping incomplete records
  evac-rank rank --strategy weighted --lenient --format geojson export.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&f.lng, "lng", 0, "disaster longitude (overrides the file)")
	fl.Float64Var(&f.lat, "lat", 0, "disaster latitude (overrides the file)")
	fl.StringVar(&f.strategy, "strategy", string(ranking.StrategyTopological), "ranking strategy: weighted or topological")
	fl.BoolVar(&f.lenient, "lenient", false, "score missing substructures as zero instead of failing")
	fl.StringVar(&f.format, "format", "table", "output format: table, json or geojson")
	fl.Float64Var(&f.disasterK, "disaster-points-per-km", defaults.DisasterPointsPerKm, "proximity score lost per km from the disaster")
	fl.Float64Var(&f.vulnK, "vulnerable-points-per-km", defaults.VulnerablePointsPerKm, "neighbour score lost per km from the nearest vulnerable family")
	return cmd
}

func runRank(cmd *cobra.Command, path string, f rankFlags) error {
	strategy, ok := ranking.ParseStrategy(f.strategy)
	if !ok {
		return eris.Errorf("rank: --strategy must be weighted or topological (got %q)", f.strategy)
	}
	switch f.format {
	case "table", "json", "geojson":
	default:
		return eris.Errorf("rank: --format must be table, json or geojson (got %q)", f.format)
	}

	export, err := readExport(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("lng") || flags.Changed("lat") {
		if !flags.Changed("lng") || !flags.Changed("lat") {
			return eris.New("rank: --lng and --lat must be given together")
		}
		export.Disaster = &models.Coordinates{Lng: f.lng, Lat: f.lat}
	}
	if export.Disaster == nil {
		return eris.New("rank: no disaster location; pass --lng and --lat")
	}

	opts := ranking.DefaultOptions()
	opts.DisasterPointsPerKm = f.disasterK
	opts.VulnerablePointsPerKm = f.vulnK
	opts.Logger = slog.Default()
	if f.lenient {
		opts.Policy = ranking.PolicyLenient
	}

	result, err := ranking.NewRanker(opts).Rank(strategy, *export.Disaster, export.Families)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch f.format {
	case "json":
		return writeJSON(out, result)
	case "geojson":
		return writeJSON(out, result.FeatureCollection())
	default:
		return writeTable(out, result)
	}
}

// readExport decodes a registry export. YAML is chosen by extension; anything
// else is parsed as JSON.
func readExport(path string) (*registryExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rank: read %s", path)
	}

	var export registryExport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &export)
	default:
		err = decodeJSON(data, &export)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "rank: parse %s", path)
	}
	return &export, nil
}

func decodeJSON(data []byte, export *registryExport) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &export.Families)
	}
	return json.Unmarshal(trimmed, export)
}

func decodeYAML(data []byte, export *registryExport) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		return node.Decode(&export.Families)
	}
	return node.Decode(export)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, r *ranking.Ranking) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if r.Strategy == ranking.StrategyWeighted {
		fmt.Fprintln(tw, "RANK\tID\tNAME\tDISTANCE_KM\tPROXIMITY\tVULNERABILITY\tNEIGHBOUR\tPRIORITY")
		for _, f := range r.Families {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\n",
				f.Rank, f.Family.ID, f.Family.Name, f.DistanceMeters/1000,
				f.ProximityScore, f.VulnerabilityScore, f.VulnerableNeighbourScore, f.FinalPriorityScore)
		}
	} else {
		fmt.Fprintln(tw, "RANK\tID\tNAME\tDISTANCE_KM\tVULNERABLE\tDEPENDS_ON\tDEPENDENTS")
		for _, f := range r.Families {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
				f.Rank, f.Family.ID, f.Family.Name, f.DistanceMeters/1000,
				strconv.FormatBool(f.Vulnerable), dash(f.DependsOn), dash(strings.Join(f.Dependents, ",")))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Excluded) > 0 {
		fmt.Fprintf(w, "\nexcluded (no usable location): %s\n", strings.Join(r.Excluded, ", "))
	}
	if r.InvariantViolation {
		fmt.Fprintln(w, "\nwarning: dependency graph incomplete, order falls back to disaster proximity")
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
