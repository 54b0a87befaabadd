/*
 * interfaces.go, part of disloc.
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

package disloc

import (
	"errors"
	"fmt"
	"strings"
)

// Atomer is the basic interface for a set of atoms.
type Atomer interface {

	//Atom returns the Atom corresponding to the index i
	//of the Atom slice. Should panic if out of range.
	Atom(i int) *Atom

	Len() int
}

// Masser can return a slice with the masses of each atom in the reference.
type Masser interface {

	//Returns a slice with the masses of all atoms
	Masses() ([]float64, error)
}

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
// The decorate slice contains a list of functions in the calling stack, plus, for each function any relevant information, or nothing.
// If information is to be added to an element of the slice, it should be in this format: "FunctionName: Extra info"
type Error interface {
	Error() string
	Decorate(string) []string
	Critical() bool
}

// ConfigError signals an invalid calculation setup: a wrong orientation,
// a zero Burgers vector, an asymmetric or degenerate elastic tensor and the like.
// These are detected before any simulator run is started.
type ConfigError struct {
	message string
	deco    []string
	err     error
}

// NewConfigError returns a ConfigError with the given message, decorated with caller.
func NewConfigError(message, caller string) *ConfigError {
	return &ConfigError{message: message, deco: []string{caller}}
}

// WrapConfigError returns a ConfigError with the given message that wraps err.
func WrapConfigError(err error, message, caller string) *ConfigError {
	return &ConfigError{message: message, deco: []string{caller}, err: err}
}

func (err *ConfigError) Error() string {
	if err.err != nil {
		return fmt.Sprintf("configuration error: %s: %v", err.message, err.err)
	}
	return "configuration error: " + err.message
}

// Decorate adds new information to the error.
func (err *ConfigError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical is always true for configuration errors.
func (err *ConfigError) Critical() bool { return true }

func (err *ConfigError) Unwrap() error { return err.err }

// Trace returns the decoration as a single string, callee first.
func (err *ConfigError) Trace() string { return strings.Join(err.deco, " <- ") }

// IsConfigError reports whether err, or any error it wraps, is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

//ErrDecorate decorates the error with the caller's name if it
//implements Error, and returns it unchanged otherwise.
func ErrDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}
