// Package search answers text queries against stored episode embeddings and
// turns matches into playable time slices.
package search
