//Package scan computes the energy per atom of a perfect crystal as a function of its
//lattice constant, using LAMMPS single point calculations, and locates the minima of
//that curve.
//
//A failed simulation never silently ends a search: every point and every minimum
//carries its own status, so "the curve has no minimum in this range" and "the
//simulator crashed" remain distinguishable.
package scan
