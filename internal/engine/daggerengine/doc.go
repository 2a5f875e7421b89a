// Executes build plans on a Dagger engine.
//
// Plan stages are translated into a lazily evaluated Dagger container graph.
// Nothing runs until the target stage is synchronized, at which point the
// engine evaluates exactly the stages the target depends on. Engine progress
// is streamed to the configured log output.
//
// Example usage:
//
//	eng, err := daggerengine.New(ctx, daggerengine.Options{LogOutput: os.Stderr, ExecuteTimeout: 5 * time.Minute})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	art, err := eng.Execute(ctx, p, bc)
package daggerengine
