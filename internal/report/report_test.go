package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/report"
)

func Test_Line_Routes_Red_To_ErrOut_And_Others_To_Out(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	r := report.New(&out, &errOut, false)

	r.Line(errs.Green, "ok")
	r.Line(errs.Red, "boom")

	assert.Contains(t, out.String(), "[Green] ok")
	assert.Contains(t, errOut.String(), "[Red] boom")
	assert.NotContains(t, out.String(), "boom")
}

func Test_Line_Suppresses_Green_When_Quiet_But_Keeps_Yellow_And_Red(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	r := report.New(&out, &errOut, true)

	r.Line(errs.Green, "hidden")
	r.Line(errs.Yellow, "warning")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[Yellow] warning")
}

func Test_Progress_Is_Suppressed_When_Quiet(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	r := report.New(&out, &out, true)
	r.Progress(10, 2, 100, time.Second, 5)

	assert.Empty(t, out.String())
}

func Test_Progress_Reports_Processed_Skipped_And_Total(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	r := report.New(&out, &out, false)
	r.Progress(10, 2, 100, time.Second, 5)

	assert.Contains(t, out.String(), "processed=10")
	assert.Contains(t, out.String(), "skipped=2")
	assert.Contains(t, out.String(), "total=100")
}
