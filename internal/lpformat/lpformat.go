// Package lpformat writes a model in CPLEX LP text format. Output depends only
// on the model, so equal models produce identical bytes.
package lpformat

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"

	"cmdvrp/internal/model"
)

const termsPerLine = 8

// Marshal returns the LP text of m.
func Marshal(m *model.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the LP text of m to w.
func Write(w io.Writer, m *model.Model) error {
	bw := bufio.NewWriter(w)
	lw := &lpWriter{w: bw, m: m}

	lw.write(`\ Problem: `, m.Variant(), "\n")
	lw.write("Minimize\n obj:")
	obj, constant := m.Objective()
	lw.expr(obj)
	if constant != 0 {
		lw.write(" ", signed(constant))
	}
	lw.write("\n")

	lw.write("Subject To\n")
	for _, c := range m.Constraints() {
		lw.write(" ", c.Name, ":")
		lw.expr(c.Terms)
		lw.write(" ", sense(c.Sense), " ", num(c.RHS), "\n")
	}

	var binaries []string
	lw.write("Bounds\n")
	for _, v := range m.Variables() {
		if v.Kind == model.Binary {
			binaries = append(binaries, v.Name)
			continue
		}
		switch {
		case v.Lower == v.Upper:
			lw.write(" ", v.Name, " = ", num(v.Lower), "\n")
		case math.IsInf(v.Upper, 1) && v.Lower == 0:
		case math.IsInf(v.Upper, 1):
			lw.write(" ", v.Name, " >= ", num(v.Lower), "\n")
		default:
			lw.write(" ", num(v.Lower), " <= ", v.Name, " <= ", num(v.Upper), "\n")
		}
	}
	if len(binaries) > 0 {
		lw.write("Binaries\n")
		for i := 0; i < len(binaries); i += termsPerLine {
			end := min(i+termsPerLine, len(binaries))
			lw.write(" ")
			for k, name := range binaries[i:end] {
				if k > 0 {
					lw.write(" ")
				}
				lw.write(name)
			}
			lw.write("\n")
		}
	}
	lw.write("End\n")
	if lw.err != nil {
		return lw.err
	}
	return bw.Flush()
}

type lpWriter struct {
	w   *bufio.Writer
	m   *model.Model
	err error
}

func (lw *lpWriter) write(parts ...string) {
	for _, p := range parts {
		if lw.err != nil {
			return
		}
		_, lw.err = lw.w.WriteString(p)
	}
}

// expr writes " c1 v1 + c2 v2 ...", wrapping long rows. An empty expression
// is written as a zero multiple of the first variable.
func (lw *lpWriter) expr(terms []model.Term) {
	if len(terms) == 0 {
		if lw.m.NumVars() > 0 {
			lw.write(" 0 ", lw.m.Variable(0).Name)
		}
		return
	}
	for k, t := range terms {
		if k > 0 && k%termsPerLine == 0 {
			lw.write("\n  ")
		}
		coef := signed(t.Coef)
		if k == 0 && t.Coef >= 0 {
			coef = num(t.Coef)
		}
		lw.write(" ", coef, " ", lw.m.Variable(t.Var).Name)
	}
}

func sense(s model.Sense) string {
	switch s {
	case model.LE:
		return "<="
	case model.GE:
		return ">="
	}
	return "="
}

func num(v float64) string {
	if math.IsInf(v, 1) {
		return "+inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func signed(v float64) string {
	if v < 0 {
		return "- " + num(-v)
	}
	return "+ " + num(v)
}
