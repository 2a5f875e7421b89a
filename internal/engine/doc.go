// Defines the contract between fxbuild and container build engines.
//
// An [Engine] executes a [plan.Plan] against a staged build context and
// returns an [Artifact]: a handle to the materialized target stage. The
// artifact can then be published under any number of references without
// rebuilding. Backends live in subpackages: daggerengine drives a Dagger
// engine session, ctrdengine drives a local containerd daemon.
package engine
