//Package record holds the typed result records of disloc calculations and their
//JSON form. Computations work on the strongly typed structures; the documents are
//produced and read only at the I/O boundary. Every quantity with a dimension is
//stored as a (value, unit) pair.
package record
