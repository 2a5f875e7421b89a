// Provides platform-appropriate default paths.
//
// Paths follow XDG conventions so that rootless containerd installations and
// per-user registry credentials are found without extra configuration.
package paths
