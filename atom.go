package disloc

//Atom contains the per-atom information of a System except for the coordinates,
//which are in a v3.Matrix, and the auxiliary properties, which are kept in the
//System's property table.
type Atom struct {
	ID     int //1-based, as in LAMMPS files
	Type   int //1-based atom type
	Symbol string
	Mass   float64
}

//Copy returns a copy of the atom.
func (A *Atom) Copy() *Atom {
	r := *A
	return &r
}
