// Package analysis provides read-only IR analyses whose results feed
// backend decisions. Analyses never mutate the module they walk.
//
// The one analysis currently here, GatherSubgroupMatrixInfo, collects the
// distinct cooperative-matrix configurations and matrix-multiply shapes a
// module uses, so a backend can declare or specialize exactly the matrix
// pipelines the shader needs.
package analysis
