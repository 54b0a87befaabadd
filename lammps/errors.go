package lammps

import (
	"errors"
	"fmt"
	"path/filepath"
)

//ErrSimulation matches, with errors.Is, every error produced when running LAMMPS
//or reading back its results.
var ErrSimulation = errors.New("lammps simulation failed")

//Error messages
const (
	ErrNotRunning   = "LAMMPS exited with an error"
	ErrNoLog        = "log file missing or unreadable"
	ErrNoThermo     = "no thermodynamic output found"
	ErrNoEnergy     = "energy is missing or not finite"
	ErrNoGeometry   = "final configuration missing or unreadable"
	ErrAtomCount    = "number of atoms changed"
	ErrCantInput    = "can't write input files"
	ErrBadPotential = "bad potential definition"
)

//Error is the error type for the lammps package. It carries the working directory
//and the names of the input script and log, which are never deleted after a failure.
type Error struct {
	message  string
	dir      string
	files    []string
	detail   string
	deco     []string
	critical bool
	err      error
}

func newError(message, dir string, files []string, err error, caller string) *Error {
	e := &Error{message: message, dir: dir, files: files, deco: []string{caller}, critical: true, err: err}
	if err != nil {
		e.detail = err.Error()
	}
	return e
}

func (err *Error) Error() string {
	s := fmt.Sprintf("lammps: %s", err.message)
	if err.detail != "" {
		s += ": " + err.detail
	}
	if len(err.files) > 0 {
		s += fmt.Sprintf(" (see %v)", err.Files())
	}
	return s
}

//Decorate adds new information to the error
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

//Message returns the kind of failure, one of the Err constants.
func (err *Error) Message() string { return err.message }

//Dir returns the working directory of the failed calculation.
func (err *Error) Dir() string { return err.dir }

//Files returns the full paths of the files kept for inspection.
func (err *Error) Files() []string {
	r := make([]string, len(err.files))
	for i, f := range err.files {
		r[i] = filepath.Join(err.dir, f)
	}
	return r
}

func (err *Error) Unwrap() error { return err.err }

//Is makes every Error match ErrSimulation.
func (err *Error) Is(target error) bool { return target == ErrSimulation }
