// Resolves the short revision identifier of the checkout being published.
//
// The identifier becomes the immutable image tag. Every source fails hard:
// there is no retry and no fallback tag, so a run without a revision never
// reaches the build or publish steps.
package revision
