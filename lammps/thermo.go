package lammps

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

//Thermo is one block of thermodynamic output from a LAMMPS log.
type Thermo struct {
	Columns []string
	Rows    [][]float64
}

//Col returns the index of the named column, or -1.
func (T *Thermo) Col(name string) int {
	for i, c := range T.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

//Last returns the last value of the named column.
func (T *Thermo) Last(name string) (float64, error) {
	c := T.Col(name)
	if c < 0 || len(T.Rows) == 0 {
		return 0, fmt.Errorf("no values for %s in thermo output", name)
	}
	return T.Rows[len(T.Rows)-1][c], nil
}

//ParseLog reads every thermo block in a LAMMPS log. Blocks start with a line whose
//first field is Step and end at the "Loop time" line. Lines that don't fit in the
//table, such as warnings, are skipped. A line starting with ERROR is returned as an error.
func ParseLog(r io.Reader) ([]*Thermo, error) {
	var ret []*Thermo
	var cur *Thermo
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "ERROR") {
			return ret, fmt.Errorf("%s", line)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if cur == nil {
			if fields[0] == "Step" {
				cur = &Thermo{Columns: fields}
			}
			continue
		}
		if strings.HasPrefix(line, "Loop time") {
			ret = append(ret, cur)
			cur = nil
			continue
		}
		if len(fields) != len(cur.Columns) {
			continue
		}
		row := make([]float64, len(fields))
		ok := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil && !isNaNString(f) {
				ok = false
				break
			}
			if err != nil {
				v = math.NaN()
			}
			row[i] = v
		}
		if ok {
			cur.Rows = append(cur.Rows, row)
		}
	}
	if err := sc.Err(); err != nil {
		return ret, err
	}
	//a log cut short still gives its last rows.
	if cur != nil && len(cur.Rows) > 0 {
		ret = append(ret, cur)
	}
	return ret, nil
}

func isNaNString(s string) bool {
	s = strings.ToLower(strings.TrimLeft(s, "+-"))
	return s == "nan" || s == "-nan" || s == "inf"
}

//ParseLogFile is ParseLog for a file name.
func ParseLogFile(name string) ([]*Thermo, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLog(f)
}
