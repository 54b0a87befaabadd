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

//In order to use this part of the library you need the LAMMPS program, which must be obtained
//independently (https://www.lammps.org). Please cite LAMMPS if you use it.

//Package lammps writes inputs for, runs, and reads the results of energy minimizations
//and single point calculations with LAMMPS. Every file is written to, and the program
//is run in, an explicit working directory, so several calculations can run at once
//in the same process.
package lammps
