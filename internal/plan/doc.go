// Declares the image build as an immutable plan.
//
// A [Plan] is a set of named stages. A root stage starts from a registry
// image; every other stage extends a parent stage. Stages may also copy files
// out of other stages. Parent and copy relations form a directed acyclic
// graph, and [Plan.Stages] returns the stages in a stable topological order so
// that every stage is built after the stages it depends on.
//
// The plan only describes the build. Engines execute it and return a handle
// to the materialized target stage.
//
// [New] returns the fxbuild plan:
//
//	base     alpine:edge, source label, workdir /app
//	builder  base + toolchain, go.mod/go.sum, go mod download, sources, go build
//	runtime  base + tzdata/ca-certificates, binary copied from builder
package plan
