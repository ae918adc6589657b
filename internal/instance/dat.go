package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrFormat is wrapped by every parse failure of the line-oriented instance format.
var ErrFormat = errors.New("instance: bad format")

// ParseDATFile opens path and parses it with ParseDATLimit. The instance is
// named after the file.
func ParseDATFile(path string, maxNodes int) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	in, err := ParseDATLimit(f, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	in.d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return in, nil
}

// ParseDAT reads the coordinate instance format:
//
//	n
//	m
//	m lines of depot "x y"
//	n lines of customer "x y"
//	vehicle capacity
//	m lines of depot capacity
//	n lines of customer demand
//	m lines of depot opening cost
//	route opening cost
//
// Blank lines are ignored. Distances are Euclidean.
func ParseDAT(r io.Reader) (*Instance, error) { return ParseDATLimit(r, 0) }

// ParseDATLimit is ParseDAT that fails with ErrTooLarge as soon as the header
// announces more than maxNodes depots and customers. Zero means no limit.
func ParseDATLimit(r io.Reader, maxNodes int) (*Instance, error) {
	lr := &lineReader{sc: bufio.NewScanner(r)}
	lr.sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	n, err := lr.count("customer count")
	if err != nil {
		return nil, err
	}
	m, err := lr.count("depot count")
	if err != nil {
		return nil, err
	}
	if err := CheckSize(m, n, maxNodes); err != nil {
		return nil, err
	}
	d := Data{NumCustomers: n, NumDepots: m}
	if d.DepotCoords, err = lr.points(m, "depot coordinates"); err != nil {
		return nil, err
	}
	if d.CustomerCoords, err = lr.points(n, "customer coordinates"); err != nil {
		return nil, err
	}
	if d.VehicleCapacity, err = lr.number("vehicle capacity"); err != nil {
		return nil, err
	}
	if d.DepotCapacities, err = lr.numbers(m, "depot capacity"); err != nil {
		return nil, err
	}
	if d.CustomerDemands, err = lr.numbers(n, "customer demand"); err != nil {
		return nil, err
	}
	if d.DepotOpeningCosts, err = lr.numbers(m, "depot opening cost"); err != nil {
		return nil, err
	}
	if d.RouteOpeningCost, err = lr.number("route opening cost"); err != nil {
		return nil, err
	}
	return New(d)
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func (lr *lineReader) next(what string) ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		fields := strings.Fields(lr.sc.Text())
		if len(fields) > 0 {
			return fields, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: unexpected end of input reading %s (line %d)", ErrFormat, what, lr.line+1)
}

func (lr *lineReader) number(what string) (float64, error) {
	fields, err := lr.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a number", ErrFormat, lr.line, what, fields[0])
	}
	return v, nil
}

func (lr *lineReader) count(what string) (int, error) {
	v, err := lr.number(what)
	if err != nil {
		return 0, err
	}
	if v < 0 || v != math.Trunc(v) || v > maxCount {
		return 0, fmt.Errorf("%w: line %d: %s must be an integer in [0,%d], got %g", ErrFormat, lr.line, what, maxCount, v)
	}
	return int(v), nil
}

// maxCount bounds header counts so they convert to int on every platform.
const maxCount = math.MaxInt32

// prealloc caps the capacity reserved from an unverified header count; the
// slices grow as lines actually arrive.
func prealloc(k int) int { return min(k, 1024) }

func (lr *lineReader) numbers(k int, what string) ([]float64, error) {
	out := make([]float64, 0, prealloc(k))
	for range k {
		v, err := lr.number(what)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (lr *lineReader) points(k int, what string) ([]Point, error) {
	out := make([]Point, 0, prealloc(k))
	for range k {
		fields, err := lr.next(what)
		if err != nil {
			return nil, err
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: %s needs two values, got %d", ErrFormat, lr.line, what, len(fields))
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: line %d: %s %q is not a coordinate pair", ErrFormat, lr.line, what, strings.Join(fields, " "))
		}
		out = append(out, Point{X: x, Y: y})
	}
	return out, nil
}
