// Package targetfile reads and writes the whitespace-delimited ASCII
// target-point format consumed by the partitioning pipeline: a header line
// of ndim, npoints, nvar followed by one row per point of ndim coordinates
// and nvar interpolated variables.
package targetfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/hopi-go/hopi/internal/hopierr"
)

const maxDim = 3

// Targets holds the parsed contents of a target file: XYZ is row-major with
// NPoints rows of NDim coordinates each, and Vars is row-major with NPoints
// rows of NVar interpolated variables each.
type Targets struct {
	NDim    int
	NPoints int
	NVar    int
	XYZ     []float64
	Vars    []float64
}

// Read parses a target file from r. It rejects a dimension above 3 with a
// wrapped hopierr.ContractViolation rather than terminating the process -
// core library routines never call os.Exit, unlike the original read_target_file.
func Read(r io.Reader) (Targets, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	nextInt := func(what string) (int, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("targetfile: reading %s: %w", what, io.ErrUnexpectedEOF)
		}
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return 0, fmt.Errorf("targetfile: parsing %s %q: %w", what, scanner.Text(), err)
		}
		return v, nil
	}

	ndim, err := nextInt("ndim")
	if err != nil {
		return Targets{}, err
	}
	if ndim > maxDim {
		return Targets{}, fmt.Errorf("targetfile: ndim %d exceeds maximum of %d: %w", ndim, maxDim, hopierr.ContractViolation)
	}
	npoints, err := nextInt("npoints")
	if err != nil {
		return Targets{}, err
	}
	nvar, err := nextInt("nvar")
	if err != nil {
		return Targets{}, err
	}

	nextFloat := func(what string, i int) (float64, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("targetfile: reading %s %d: %w", what, i, io.ErrUnexpectedEOF)
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return 0, fmt.Errorf("targetfile: parsing %s %d %q: %w", what, i, scanner.Text(), err)
		}
		return v, nil
	}

	xyz := make([]float64, ndim*npoints)
	vars := make([]float64, nvar*npoints)
	for p := 0; p < npoints; p++ {
		for j := 0; j < ndim; j++ {
			v, err := nextFloat("coordinate", p*ndim+j)
			if err != nil {
				return Targets{}, err
			}
			xyz[p*ndim+j] = v
		}
		for j := 0; j < nvar; j++ {
			v, err := nextFloat("variable", p*nvar+j)
			if err != nil {
				return Targets{}, err
			}
			vars[p*nvar+j] = v
		}
	}

	if err := scanner.Err(); err != nil {
		return Targets{}, fmt.Errorf("targetfile: %w", err)
	}
	return Targets{NDim: ndim, NPoints: npoints, NVar: nvar, XYZ: xyz, Vars: vars}, nil
}

// Write emits ndim, npoints, nvar as a header line, then npoints rows of
// ndim coordinates followed by nvar variables, each field formatted
// %15.8e to match the original's setw(15)/setprecision(8)/scientific
// formatting. vars is row-major with npoints rows of nvar values each.
func Write(w io.Writer, ndim, npoints int, xyz []float64, nvar int, vars []float64) error {
	if len(xyz) != ndim*npoints {
		return fmt.Errorf("targetfile: xyz has %d entries, want ndim*npoints = %d: %w", len(xyz), ndim*npoints, hopierr.ContractViolation)
	}
	if nvar > 0 && len(vars) != nvar*npoints {
		return fmt.Errorf("targetfile: vars has %d entries, want nvar*npoints = %d: %w", len(vars), nvar*npoints, hopierr.ContractViolation)
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%10d%10d%10d\n", ndim, npoints, nvar); err != nil {
		return fmt.Errorf("targetfile: writing header: %w", err)
	}

	for i := 0; i < npoints; i++ {
		for j := 0; j < ndim; j++ {
			if _, err := fmt.Fprintf(bw, "%15.8e", xyz[i*ndim+j]); err != nil {
				return fmt.Errorf("targetfile: writing point %d: %w", i, err)
			}
		}
		for j := 0; j < nvar; j++ {
			if _, err := fmt.Fprintf(bw, "%15.8e", vars[i*nvar+j]); err != nil {
				return fmt.Errorf("targetfile: writing variable %d of point %d: %w", j, i, err)
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return fmt.Errorf("targetfile: writing newline after point %d: %w", i, err)
		}
	}
	return bw.Flush()
}
