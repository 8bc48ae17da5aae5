package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hartcheck/internal/report"
)

// AssertGolden compares the text report of res against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(FormatResult(res)))
}

// AssertGoldenJSON compares the canonical outcome vector of res against
// testdata/golden/{name}.json.golden.
func AssertGoldenJSON(t *testing.T, name string, res *Result) error {
	t.Helper()

	data, err := report.MarshalCanonical(report.Vector(res.ReportOutcomes()))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".json.golden"),
	)
	g.Assert(t, name, data)
	return nil
}
