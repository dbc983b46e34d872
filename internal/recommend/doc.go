// Package recommend ranks a pair's wishlist and nearby discoveries by how
// likely the pair is to enjoy them.
//
// The engine learns two affinities from the pair's rated, visited
// restaurants: a mean score per cuisine label and a mean score per price
// tier. Every wishlist restaurant and every externally discovered venue is
// then scored with a handful of additive rules (craving match, cuisine
// affinity, distance, price affinity, favorite flag, external rating) and
// the best five are returned with the reasons that fired.
//
// Reasons are symbolic keys with parameters. Rendering them into text is the
// job of the i18n package.
//
// Engine.Generate performs no I/O, holds no state between calls and never
// mutates its inputs, so one Engine can be shared by any number of
// goroutines.
package recommend
