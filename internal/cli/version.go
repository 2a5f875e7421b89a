package cli

import (
	"context"
	"fmt"

	"github.com/prod9/fxbuild/internal"
)

// Represents the 'fxbuild version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
