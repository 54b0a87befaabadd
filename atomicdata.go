/*
 * atomicdata.go, part of disloc.
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

//A map for assigning mass to elements.
//Note that mostly metals and common alloying elements are present.
//Values are standard atomic weights in g/mol.
var symbolMass = map[string]float64{
	"H":  1.008,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"Mg": 24.305,
	"Al": 26.9815385,
	"Si": 28.085,
	"Ti": 47.867,
	"V":  50.9415,
	"Cr": 51.9961,
	"Mn": 54.938044,
	"Fe": 55.845,
	"Co": 58.933194,
	"Ni": 58.6934,
	"Cu": 63.546,
	"Zn": 65.38,
	"Zr": 91.224,
	"Nb": 92.90637,
	"Mo": 95.95,
	"Pd": 106.42,
	"Ag": 107.8682,
	"Hf": 178.49,
	"Ta": 180.94788,
	"W":  183.84,
	"Pt": 195.084,
	"Au": 196.966569,
	"Pb": 207.2,
}

//Mass returns the standard atomic mass for the element symbol, and false
//if the element is not in the table.
func Mass(symbol string) (float64, bool) {
	m, ok := symbolMass[symbol]
	return m, ok
}
