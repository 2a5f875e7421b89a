// Sequences a full fxbuild run.
//
// A run resolves the source revision, stages the build context, plans the
// image, opens the build engine, materializes the runtime image once, and
// publishes it under the latest and revision tags. The engine is opened only
// after the cheap local steps succeed, so a missing checkout never starts a
// build.
//
// Example usage:
//
//	res, err := pipeline.Run(ctx, pipeline.Options{
//	    Config:   cfg,
//	    Resolver: resolver,
//	    Open:     openEngine,
//	})
package pipeline
