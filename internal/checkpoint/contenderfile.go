package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	natomic "github.com/natefinch/atomic"

	"github.com/kestrelsec/munge/internal/codec"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
)

// ContenderFileName builds the filename pattern from spec §6:
// "Contenders,-L<len>-P<pass>-D<typ>-M<mode>-S<score>.txt".
func ContenderFileName(length int, passCount uint32, dataType model.DataType, mode string, score float64) string {
	return fmt.Sprintf("Contenders,-L%d-P%d-D%s-M%s-S%.4f.txt", length, passCount, dataType, mode, score)
}

// RenderContenderFile renders the plain-text contender block format from
// spec §6, one block per contender, contenders already in canonical order.
func RenderContenderFile(contenders []model.Contender, resolver codec.NameResolver) string {
	var b bytes.Buffer

	for i, c := range contenders {
		seq := model.Sequence{}
		for _, id := range c.Sequence {
			seq.Items = append(seq.Items, model.SeqItem{ID: id, TR: 1})
		}

		fmt.Fprintf(&b, "Contender #%d:\n", i+1)
		fmt.Fprintf(&b, "Sequence: %s\n", codec.Format(seq, resolver, codec.Bare))
		fmt.Fprintf(&b, "Aggregate Score: %.4f\n", c.AggregateScore)
		fmt.Fprintf(&b, "Pass Count: %d / %d\n", c.PassCount, c.TotalMetrics())
		b.WriteString("Scores:\n")

		for _, m := range c.Metrics {
			status := "FAIL"
			if m.Passed {
				status = "PASS"
			}

			fmt.Fprintf(&b, "- %s: %s\n", m.MetricName, status)
			fmt.Fprintf(&b, "  Metric: %.4f, Threshold: %.4f\n", m.Value, m.Threshold)

			if m.Notes != "" {
				fmt.Fprintf(&b, "  Notes: %s\n", m.Notes)
			}
		}

		b.WriteString("\n")
	}

	return b.String()
}

// WriteContenderFile atomically writes the rendered contender file to dir.
func WriteContenderFile(dir string, filename string, contents string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: contender file: mkdir: %w", errs.ErrStoreIO, err)
	}

	path := filepath.Join(dir, filename)

	if err := natomic.WriteFile(path, bytes.NewReader([]byte(contents))); err != nil {
		return fmt.Errorf("%w: contender file: write: %w", errs.ErrStoreIO, err)
	}

	return nil
}
