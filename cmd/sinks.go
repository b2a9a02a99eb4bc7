package cmd

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/garnet-sweep/garnet-sweep/sweep"
	"github.com/garnet-sweep/garnet-sweep/sweep/monitor"
	"github.com/garnet-sweep/garnet-sweep/sweep/record"
	"github.com/garnet-sweep/garnet-sweep/sweep/report"
	"github.com/garnet-sweep/garnet-sweep/sweep/telemetry"
)

// sinks are the observers attached to one campaign pass.
type sinks struct {
	observers sweep.Observers
	recorder  *record.Recorder
	publisher *telemetry.Publisher
}

// openSinks builds the console observer plus every optional sink the flags
// enable. The monitor is only started when serve is true, so that a second
// pass does not try to bind the same port.
func (f *experimentFlags) openSinks(id string, mode sweep.Mode, total int, stdout io.Writer, serve bool) (*sinks, error) {
	s := &sinks{observers: sweep.Observers{report.NewConsole(stdout)}}

	if f.recordPath != "" {
		r, err := record.Open(f.recordPath, id, mode)
		if err != nil {
			return nil, err
		}
		s.recorder = r
		s.observers = append(s.observers, r)
	}
	if f.mqttBroker != "" {
		p, err := telemetry.NewPublisher(f.mqttBroker, "garnet-sweep-"+id, f.mqttPrefix, id)
		if err != nil {
			s.close()
			return nil, err
		}
		s.publisher = p
		s.observers = append(s.observers, p)
	}
	if serve && f.monitorPort >= 0 {
		m := monitor.NewMonitor(id, total).WithPortNumber(f.monitorPort)
		if _, err := m.StartServer(); err != nil {
			s.close()
			return nil, err
		}
		s.observers = append(s.observers, m)
	}
	return s, nil
}

func (s *sinks) close() {
	if s.recorder != nil {
		logRecorded(s.recorder)
		if err := s.recorder.Close(); err != nil {
			logrus.Warnf("Closing record database: %v", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
}

// logRecorded reports what the recorder holds for its campaign.
func logRecorded(r *record.Recorder) {
	if err := r.Flush(); err != nil {
		logrus.Warnf("Flushing record database: %v", err)
		return
	}
	samples, err := r.SampleCount()
	if err != nil {
		logrus.Warnf("Counting recorded samples: %v", err)
		return
	}
	rows, err := r.Sweeps()
	if err != nil {
		logrus.Warnf("Reading recorded sweeps: %v", err)
		return
	}
	found := 0
	for _, row := range rows {
		if row.Throughput.Valid {
			found++
		}
	}
	logrus.Infof("Recorded %d samples and %d sweeps (%d with a throughput)", samples, len(rows), found)
}

// writeReports writes the CSV and summary files the flags ask for. Outputs
// of a collection pass that follows a drive pass get a "-collect" suffix.
func (f *experimentFlags) writeReports(cr *sweep.CampaignResult, suffix string) {
	if f.curvesCSV != "" {
		path := withSuffix(f.curvesCSV, suffix)
		if err := report.WriteCurvesCSV(path, cr); err != nil {
			logrus.Errorf("Writing curves: %v", err)
		} else {
			logrus.Infof("Curves written to %s", path)
		}
	}
	if f.summaryPath != "" {
		path := withSuffix(f.summaryPath, suffix)
		if err := report.WriteSummary(path, cr); err != nil {
			logrus.Errorf("Writing summary: %v", err)
		} else {
			logrus.Infof("Summary written to %s", path)
		}
	}
}

// withSuffix inserts suffix before the extension of path.
func withSuffix(path, suffix string) string {
	if suffix == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
