// Package reduce projects document embeddings into a low-dimensional layout
// that preserves local neighbourhoods.
//
// The reducer follows the UMAP construction: a fuzzy k-nearest-neighbour graph
// is built in embedding space, a PCA layout seeds the embedding, and
// stochastic gradient descent with negative sampling pulls graph neighbours
// together and pushes random pairs apart. Every random draw comes from a
// single seeded source, so a fixed seed gives a bit-for-bit identical layout.
package reduce
