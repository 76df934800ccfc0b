// Package library walks a reference image library and maps each image to
// the card and side it shows.
//
// Two layouts are recognised below the library root:
//
//	<set>/<card>.<ext>                 single-faced card, front side
//	<set>/<card>/<face>.<ext>          one face of a multi-faced card
//	<set>/<card>/<face>.back.<ext>     back face
//
// Path segments are URL-decoded (with "+" as space) to recover display
// names. Hidden files and files without an image extension are ignored.
package library
