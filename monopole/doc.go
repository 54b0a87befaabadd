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

//Package monopole builds, relaxes and analyzes a single straight dislocation in a
//supercell. The anisotropic elastic field of the dislocation is imposed on a perfect
//crystal, the atoms near the boundary are fixed, the rest are relaxed with LAMMPS and
//the Burgers vector is measured back from the Nye tensor of the relaxed configuration.
//
//Dislocation variants are described by YAML parameter files, see Params.
package monopole
