// Executes build plans on a containerd daemon.
//
// Each stage runs in its own container started from the stage's root image.
// The steps of every ancestor stage are replayed before the stage's own, so
// a stage's filesystem and configuration match what layering would produce.
// Stages that are neither the target nor the source of a cross-stage copy are
// not run on their own. The target's filesystem changes are committed as a
// single layer on top of the root image.
//
// Example usage:
//
//	eng, err := ctrdengine.New(ctrdengine.Options{
//	    Address:   paths.ContainerdSocket(),
//	    Namespace: "fxbuild",
//	    LogOutput: os.Stderr,
//	})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	art, err := eng.Execute(ctx, p, bc)
package ctrdengine
