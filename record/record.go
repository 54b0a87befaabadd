/*
 * record.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

//Record kinds
const (
	KindMonopole = "dislocation_monopole"
	KindScan     = "cohesive_energy_scan"
)

//Status values of a finished calculation.
const (
	StatusFinished = "finished"
	StatusError    = "error"
)

//UnitValue is a scalar with its unit.
type UnitValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

//NewUnitValue returns a UnitValue with the given value and unit.
func NewUnitValue(v float64, unit string) UnitValue { return UnitValue{Value: v, Unit: unit} }

func (U UnitValue) check(name string) error {
	if U.Unit == "" {
		return fmt.Errorf("%s has no unit", name)
	}
	if math.IsNaN(U.Value) || math.IsInf(U.Value, 0) {
		return fmt.Errorf("%s is not finite", name)
	}
	return nil
}

//Vector3Unit is a 3-vector with its unit.
type Vector3Unit struct {
	Value [3]float64 `json:"value"`
	Unit  string     `json:"unit"`
}

func (U Vector3Unit) check(name string) error {
	if U.Unit == "" {
		return fmt.Errorf("%s has no unit", name)
	}
	for _, v := range U.Value {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	return nil
}

//Matrix3Unit is a 3x3 tensor with its unit.
type Matrix3Unit struct {
	Value [3][3]float64 `json:"value"`
	Unit  string        `json:"unit"`
}

func (U Matrix3Unit) check(name string) error {
	if U.Unit == "" {
		return fmt.Errorf("%s has no unit", name)
	}
	for _, r := range U.Value {
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s is not finite", name)
			}
		}
	}
	return nil
}

//Artifact is a file produced by a calculation, and where it was stored.
type Artifact struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

//Stroh holds the upper half-plane Stroh eigenvalues (as real, imaginary pairs), the
//K tensor, and whether the stiffness had to be perturbed to solve the problem.
type Stroh struct {
	P         [3][2]float64 `json:"p"`
	K         Matrix3Unit   `json:"K"`
	Perturbed bool          `json:"perturbed"`
}

//NyeSummary contains the statistics of the per-atom lattice correspondence fit.
type NyeSummary struct {
	Atoms           int     `json:"atoms"`
	Defined         int     `json:"defined"`
	DefinedFraction float64 `json:"defined_fraction"`
	MeanResidual    float64 `json:"mean_residual"`
	MaxResidual     float64 `json:"max_residual"`
	IntegralAtoms   int     `json:"integral_atoms"`
}

//Record is the result of one dislocation monopole calculation.
type Record struct {
	Kind              string      `json:"kind"`
	Key               string      `json:"key"`
	Created           time.Time   `json:"created"`
	Status            string      `json:"status"`
	Potential         string      `json:"potential"`
	Crystal           string      `json:"crystal"`
	Symbols           []string    `json:"symbols"`
	Dislocation       string      `json:"dislocation"`
	LatticeConstant   UnitValue   `json:"lattice_constant"`
	Atoms             int         `json:"atoms"`
	PreLnFactor       UnitValue   `json:"preln_factor"`
	PrescribedBurgers Vector3Unit `json:"burgers"`
	NyeBurgers        Vector3Unit `json:"nye_burgers"`
	BaseEnergy        UnitValue   `json:"base_energy"`
	Energy            UnitValue   `json:"relaxed_energy"`
	Stroh             Stroh       `json:"stroh"`
	Nye               NyeSummary  `json:"nye"`
	Artifacts         []Artifact  `json:"artifacts,omitempty"`
}

//New returns a monopole record with a fresh key, the creation time set, and the
//finished status.
func New() *Record {
	return &Record{Kind: KindMonopole, Key: uuid.NewString(), Created: time.Now().UTC(), Status: StatusFinished}
}

//Check returns an error if any of the fields of R is missing or not finite.
//A record that doesn't pass Check is never written.
func (R *Record) Check() error {
	if R.Kind != KindMonopole {
		return newError(fmt.Sprintf("kind %q, expected %q", R.Kind, KindMonopole), "Record.Check")
	}
	if _, err := uuid.Parse(R.Key); err != nil {
		return newError(fmt.Sprintf("bad key %q: %s", R.Key, err), "Record.Check")
	}
	var missing []string
	for name, v := range map[string]string{"status": R.Status, "potential": R.Potential, "crystal": R.Crystal, "dislocation": R.Dislocation} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if R.Created.IsZero() {
		missing = append(missing, "created")
	}
	if len(R.Symbols) == 0 {
		missing = append(missing, "symbols")
	}
	if R.Atoms <= 0 {
		missing = append(missing, "atoms")
	}
	if len(missing) > 0 {
		return newError("missing fields: "+strings.Join(missing, ", "), "Record.Check")
	}
	checks := []error{
		R.LatticeConstant.check("lattice_constant"),
		R.PreLnFactor.check("preln_factor"),
		R.PrescribedBurgers.check("burgers"),
		R.NyeBurgers.check("nye_burgers"),
		R.BaseEnergy.check("base_energy"),
		R.Energy.check("relaxed_energy"),
		R.Stroh.K.check("stroh.K"),
	}
	for _, err := range checks {
		if err != nil {
			return newError(err.Error(), "Record.Check")
		}
	}
	if R.PrescribedBurgers.Value == [3]float64{} {
		return newError("zero Burgers vector", "Record.Check")
	}
	for _, a := range R.Artifacts {
		if a.Name == "" || a.Key == "" {
			return newError("incomplete artifact entry", "Record.Check")
		}
	}
	return nil
}

//Marshal checks the record and returns its indented JSON form.
func (R *Record) Marshal() ([]byte, error) {
	if err := R.Check(); err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(R, "", "  ")
	if err != nil {
		return nil, newError(err.Error(), "Record.Marshal")
	}
	return append(b, '\n'), nil
}

//Unmarshal decodes a monopole record and checks it.
func Unmarshal(data []byte) (*Record, error) {
	R := new(Record)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(R); err != nil {
		return nil, newError(err.Error(), "Unmarshal")
	}
	if err := R.Check(); err != nil {
		return nil, errDecorate(err, "Unmarshal")
	}
	return R, nil
}

//Point is one point of an energy scan. Failed points have no energy.
type Point struct {
	A      UnitValue  `json:"a"`
	Energy *UnitValue `json:"energy,omitempty"`
	Failed bool       `json:"failed,omitempty"`
}

//Minimum is one minimum found in a scan, or the reason none was. A and Energy
//are only set for found minima.
type Minimum struct {
	Status string     `json:"status"`
	Reason string     `json:"reason,omitempty"`
	A      *UnitValue `json:"a,omitempty"`
	Energy *UnitValue `json:"energy,omitempty"`
}

//ScanRecord is the result of a cohesive energy scan.
type ScanRecord struct {
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Created   time.Time `json:"created"`
	Potential string    `json:"potential"`
	Crystal   string    `json:"crystal"`
	Points    []Point   `json:"points"`
	Minima    []Minimum `json:"minima"`
}

//NewScan returns a scan record with a fresh key and the creation time set.
func NewScan() *ScanRecord {
	return &ScanRecord{Kind: KindScan, Key: uuid.NewString(), Created: time.Now().UTC()}
}

//Check returns an error if the scan record is incomplete.
func (R *ScanRecord) Check() error {
	switch {
	case R.Kind != KindScan:
		return newError(fmt.Sprintf("kind %q, expected %q", R.Kind, KindScan), "ScanRecord.Check")
	case R.Potential == "" || R.Crystal == "":
		return newError("missing potential or crystal", "ScanRecord.Check")
	case len(R.Points) == 0:
		return newError("no points", "ScanRecord.Check")
	}
	if _, err := uuid.Parse(R.Key); err != nil {
		return newError(fmt.Sprintf("bad key %q: %s", R.Key, err), "ScanRecord.Check")
	}
	for i, p := range R.Points {
		err := p.A.check(fmt.Sprintf("point %d lattice constant", i))
		if err == nil && !p.Failed {
			if p.Energy == nil {
				err = fmt.Errorf("point %d has no energy", i)
			} else {
				err = p.Energy.check(fmt.Sprintf("point %d energy", i))
			}
		}
		if err != nil {
			return newError(err.Error(), "ScanRecord.Check")
		}
	}
	for i, m := range R.Minima {
		if m.Status == "" {
			return newError("minimum without status", "ScanRecord.Check")
		}
		if m.Status != "found" {
			continue
		}
		if m.A == nil || m.Energy == nil {
			return newError(fmt.Sprintf("found minimum %d without a position or energy", i), "ScanRecord.Check")
		}
		if err := m.A.check("minimum lattice constant"); err != nil {
			return newError(err.Error(), "ScanRecord.Check")
		}
		if err := m.Energy.check("minimum energy"); err != nil {
			return newError(err.Error(), "ScanRecord.Check")
		}
	}
	return nil
}

//Marshal checks the scan record and returns its indented JSON form.
func (R *ScanRecord) Marshal() ([]byte, error) {
	if err := R.Check(); err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(R, "", "  ")
	if err != nil {
		return nil, newError(err.Error(), "ScanRecord.Marshal")
	}
	return append(b, '\n'), nil
}

//Document is any record kind.
type Document interface {
	Check() error
	Marshal() ([]byte, error)
}

//Decode reads a record of any kind, choosing the type from its kind field.
func Decode(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(err.Error(), "Decode")
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, newError(err.Error(), "Decode")
	}
	switch head.Kind {
	case KindMonopole:
		R, err := Unmarshal(data)
		if err != nil {
			return nil, errDecorate(err, "Decode")
		}
		return R, nil
	case KindScan:
		R := new(ScanRecord)
		if err := json.Unmarshal(data, R); err != nil {
			return nil, newError(err.Error(), "Decode")
		}
		if err := R.Check(); err != nil {
			return nil, errDecorate(err, "Decode")
		}
		return R, nil
	default:
		return nil, newError(fmt.Sprintf("unknown record kind %q", head.Kind), "Decode")
	}
}

//WriteFile writes the document to the file name. Nothing is written if the
//document is incomplete.
func WriteFile(name string, D Document) error {
	b, err := D.Marshal()
	if err != nil {
		return errDecorate(err, "WriteFile")
	}
	if err := os.WriteFile(name, b, 0644); err != nil {
		return newError(err.Error(), "WriteFile")
	}
	return nil
}

//ReadFile is Decode for a file name.
func ReadFile(name string) (Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, newError(err.Error(), "ReadFile")
	}
	defer f.Close()
	D, err := Decode(f)
	return D, errDecorate(err, "ReadFile")
}
