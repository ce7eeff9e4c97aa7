package simulation

import "fmt"

// Matrix is a (steps+1) × paths trajectory matrix stored row-major.
// Row 0 holds R0 for every path; row t holds every path's state after t steps.
type Matrix struct {
	steps int
	paths int
	data  []float64
}

func newMatrix(steps, paths int, r0 float64) *Matrix {
	m := &Matrix{steps: steps, paths: paths, data: make([]float64, (steps+1)*paths)}
	row0 := m.Row(0)
	for j := range row0 {
		row0[j] = r0
	}
	return m
}

// FromRows builds a Matrix from rows indexed [step][path], e.g. paths read back from an
// export. Every row must have the same non-zero length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: matrix needs at least one row and one path", ErrInvalidConfig)
	}
	paths := len(rows[0])
	m := &Matrix{steps: len(rows) - 1, paths: paths, data: make([]float64, 0, len(rows)*paths)}
	for t, row := range rows {
		if len(row) != paths {
			return nil, fmt.Errorf("%w: row %d has %d paths, want %d", ErrInvalidConfig, t, len(row), paths)
		}
		m.data = append(m.data, row...)
	}
	return m, nil
}

// Steps is the number of simulated increments (rows − 1).
func (m *Matrix) Steps() int { return m.steps }

// Paths is the number of independent trajectories (columns).
func (m *Matrix) Paths() int { return m.paths }

// At returns the state of path j after step t.
func (m *Matrix) At(t, j int) float64 {
	return m.data[t*m.paths+j]
}

// Row returns the states of all paths after step t. The slice aliases the matrix and
// must not be modified.
func (m *Matrix) Row(t int) []float64 {
	return m.data[t*m.paths : (t+1)*m.paths]
}

// Terminal returns the last row. Same aliasing rule as Row.
func (m *Matrix) Terminal() []float64 {
	return m.Row(m.steps)
}

// Path copies column j, from R0 to the terminal value.
func (m *Matrix) Path(j int) []float64 {
	out := make([]float64, m.steps+1)
	for t := range out {
		out[t] = m.data[t*m.paths+j]
	}
	return out
}

// Rows copies the matrix into a [][]float64 indexed [step][path].
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.steps+1)
	for t := range out {
		out[t] = append([]float64(nil), m.Row(t)...)
	}
	return out
}
