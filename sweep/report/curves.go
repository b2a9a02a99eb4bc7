package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

var curveColumns = []string{
	"nodes", "pattern", "vcs", "conf_file", "policy", "mode",
	"injection_rate", "latency", "location",
}

// WriteCurvesCSV writes every sample of every sweep to path, one row per
// sample, sweeps in key order. No-data samples have an empty latency.
func WriteCurvesCSV(path string, cr *sweep.CampaignResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating curves file: %w", err)
	}
	defer func() { _ = file.Close() }()
	if err := EncodeCurvesCSV(file, cr); err != nil {
		return err
	}
	return file.Close()
}

// EncodeCurvesCSV writes the curves CSV to w.
func EncodeCurvesCSV(w io.Writer, cr *sweep.CampaignResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(curveColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, key := range cr.Keys() {
		res := cr.Results[key]
		for _, s := range res.Curve {
			latency := ""
			if !s.NoData() {
				latency = strconv.FormatFloat(s.Latency, 'f', -1, 64)
			}
			row := []string{
				strconv.Itoa(key.Nodes),
				key.Pattern,
				strconv.Itoa(key.VCs),
				key.ConfFile,
				res.Policy,
				string(res.Mode),
				sweep.FormatRate(s.Rate),
				latency,
				s.Location,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("writing CSV row for %s: %w", key, err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
