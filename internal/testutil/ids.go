package testutil

import "fmt"

// SequentialIDGenerator returns run ids "run-0001", "run-0002", ... and
// implements report.IDGenerator.
type SequentialIDGenerator struct {
	n int
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("run-%04d", g.n)
}
