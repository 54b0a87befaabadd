/*
 * doc.go, part of disloc.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*
Package disloc is the main package of the disloc library. It provides the atomic
configuration (System), simulation boxes in the LAMMPS convention, per-atom auxiliary
fields, and reading and writing of the LAMMPS files used to talk to the simulator.

disloc capabilities:

	Builds straight dislocation monopoles from a unit cell, a stiffness tensor and
	a set of crystallographic directions, using the Stroh solution of anisotropic
	linear elasticity (package stroh, lattice, elastic).

	Relaxes the resulting configurations with LAMMPS, which must be obtained
	independently (package lammps).

	Measures the dislocation content of a relaxed configuration through a per-atom
	lattice correspondence and the Nye tensor, and recovers the Burgers vector by
	integrating it (package nye).

	Writes typed result records in JSON, with every quantity carrying its unit
	(package record), compressed configuration artifacts (package archive) and
	stores them on disk or S3 (package blob).

	Runs many independent calculations concurrently, each in its own scratch
	directory (package runner, command disloc).

	Reads and writes LAMMPS custom dumps keeping the exact column format, and
	writes LAMMPS data files.
*/
package disloc
