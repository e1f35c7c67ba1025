package cli

import "fmt"

// ImportCmd loads a JSON export of habits and check-ins into the record
// source.
type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Export file to import."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	n, err := mgr.Import(ctx.Ctx, c.File)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Imported %d check-ins from %s\n", n, c.File)
	return nil
}
