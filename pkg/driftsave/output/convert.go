package output

import (
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

// FromReport converts a preflight or repack report.
func FromReport(rep *repack.Report) *Result {
	rows := make([]Row, len(rep.Items))
	for i, it := range rep.Items {
		rows[i] = Row{
			Index:     it.Index,
			Offset:    it.Offset,
			StoredLen: it.StoredLen,
			Capacity:  it.Capacity,
			NewLen:    it.NewLen,
			Headroom:  it.Headroom,
			Name:      it.OutName,
			Kind:      string(it.Kind),
			Status:    string(it.Status),
			Note:      it.Note,
		}
	}

	return &Result{
		Operation: rep.Operation,
		Source:    rep.BaseFile,
		Size:      rep.BaseSize,
		Dir:       rep.Dir,
		Output:    rep.Output,
		Container: string(rep.Container),
		Rows:      rows,
		Summary: Summary{
			Blocks:  len(rep.Items),
			OK:      rep.OK,
			Failed:  rep.Failed,
			Errors:  rep.Errors,
			Skipped: rep.Skipped,
		},
		Warnings:   rep.Warnings,
		ReportPath: rep.ReportPath,
		Elapsed:    rep.Elapsed,
	}
}

// FromRoundTrip converts a round-trip check.
func FromRoundTrip(rt *repack.RoundTripResult) *Result {
	var r *Result
	if rt.Report != nil {
		r = FromReport(rt.Report)
	} else {
		r = &Result{Source: rt.BaseFile, Size: rt.Size}
	}
	r.Operation = "roundtrip"
	r.Summary.Blocks = rt.Blocks
	r.Compare = &Compare{
		Identical: rt.Identical,
		FirstDiff: rt.FirstDiff,
		BaseSum:   rt.BaseSum,
		OutSum:    rt.OutSum,
	}
	return r
}

// FromScan converts a container scan of the file at path.
func FromScan(path string, size int, sr *container.Result) *Result {
	rows := make([]Row, len(sr.Segments))
	for i, seg := range sr.Segments {
		rows[i] = Row{
			Index:     i,
			Offset:    seg.Offset,
			StoredLen: seg.StoredLen,
			Capacity:  seg.StoredLen,
		}
	}

	return &Result{
		Operation: "inspect",
		Source:    path,
		Size:      size,
		Container: string(sr.Kind),
		Rows:      rows,
		Summary:   Summary{Blocks: len(rows)},
	}
}

// FromManifest converts a block listing of an extraction directory. blocks
// is the subset of m.Blocks to show.
func FromManifest(dir string, m *manifest.Manifest, blocks []manifest.Block) *Result {
	rows := make([]Row, len(blocks))
	for i, b := range blocks {
		rows[i] = Row{
			Index:     b.Index,
			Offset:    b.Offset,
			StoredLen: b.StoredLen,
			Capacity:  b.Capacity(),
			Name:      b.OutName,
			Kind:      string(b.Kind),
			Note:      b.Note,
		}
	}

	return &Result{
		Operation: "blocks",
		Source:    m.BaseFile,
		Size:      m.FileSize,
		Dir:       dir,
		Container: string(m.Container),
		Rows:      rows,
		Summary:   Summary{Blocks: len(rows)},
	}
}
