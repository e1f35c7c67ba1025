package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/j-veylop/habitlens/internal/keyring"
)

// KeyringSetCmd stores the MongoDB connection string in the OS keyring.
type KeyringSetCmd struct {
	URI string `arg:"" optional:"" help:"MongoDB connection string. Read from stdin when omitted."`
}

func (c *KeyringSetCmd) Run(ctx *Context) error {
	uri := c.URI
	if uri == "" && ctx.In != nil {
		line, err := bufio.NewReader(ctx.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read URI: %w", err)
		}
		uri = strings.TrimSpace(line)
	}
	if uri == "" {
		return errors.New("no URI given")
	}

	if err := keyring.SetMongoURI(uri); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "MongoDB URI stored in the system keyring")
	return nil
}

// KeyringDeleteCmd removes the stored MongoDB connection string.
type KeyringDeleteCmd struct{}

func (c *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteMongoURI(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "MongoDB URI removed from the system keyring")
	return nil
}
