package archive

import (
	"context"

	"autounpack/internal/artifact"
	"autounpack/internal/logging"
)

// Report summarizes one archive step.
type Report struct {
	Step                 string        `json:"step,omitempty"`
	Mode                 string        `json:"mode"`
	ResultProcessingMode string        `json:"result_processing_mode"`
	Count                int           `json:"count"`
	Counts               []StatusCount `json:"counts"`
	Groups               []ReportGroup `json:"groups,omitempty"`
}

// StatusCount is the number of records that ended in Status.
type StatusCount struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// ReportGroup lists the records that ended in Status.
type ReportGroup struct {
	Status   Status          `json:"status"`
	Label    string          `json:"label"`
	Archives []ReportArchive `json:"archives"`
}

// ReportArchive is the serialized projection of one record.
type ReportArchive struct {
	Path   string   `json:"path"`
	Output string   `json:"output,omitempty"`
	Info   *Info    `json:"info,omitempty"`
	Error  *Failure `json:"error,omitempty"`
}

func (r *run) report(ctx context.Context) Report {
	step, index, _ := logging.StepFromContext(ctx)
	if index != "" {
		step = index + " " + step
	}
	rep := Report{
		Step:                 step,
		Mode:                 r.engine.cfg.Mode,
		ResultProcessingMode: r.engine.cfg.ResultProcessingMode,
		Count:                len(r.records),
		Counts:               []StatusCount{},
	}
	byStatus := make(map[Status][]ReportArchive)
	for i := range r.records {
		rec := &r.records[i]
		byStatus[rec.status] = append(byStatus[rec.status], ReportArchive{
			Path:   rec.path(),
			Output: rec.output,
			Info:   reportInfo(rec.info),
			Error:  rec.failure,
		})
	}
	for _, status := range reportOrder {
		archives := byStatus[status]
		if len(archives) == 0 {
			continue
		}
		rep.Counts = append(rep.Counts, StatusCount{Status: status, Label: status.Label(), Count: len(archives)})
		if r.engine.cfg.StatDetails {
			rep.Groups = append(rep.Groups, ReportGroup{Status: status, Label: status.Label(), Archives: archives})
		}
	}
	return rep
}

// reportInfo drops the volume list of single-file archives.
func reportInfo(info *Info) *Info {
	if info == nil || info.IsVolume {
		return info
	}
	out := info.clone()
	out.Volumes = nil
	return out
}

func writeReport(infoDir, name string, rep Report) (string, error) {
	return artifact.WriteJSON(infoDir, name, rep)
}
