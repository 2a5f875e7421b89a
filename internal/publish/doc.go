// Publishes one materialized image under several tags.
//
// The image is built once and pushed under every tag concurrently. A failed
// push never cancels its siblings; all failures are reported together.
//
// Example usage:
//
//	refs := publish.Tags("ghcr.io/prod9/fx", "abc1234")
//	published, err := publish.Publish(ctx, artifact, refs)
package publish
