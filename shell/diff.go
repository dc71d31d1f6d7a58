package shell

import (
	"encoding/json"
	"errors"

	"github.com/abiosoft/ishell"

	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/session"
)

func diffCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "diff",
		Help: "compare the strokes with the last saved session",
		Func: func(c *ishell.Context) {
			if ctx.store == nil {
				c.Err(errors.New("no session cache"))
				return
			}
			saved, _, err := ctx.store.LoadSession()
			if err != nil {
				c.Err(err)
				return
			}
			result := session.Diff(saved, ctx.capture.Ink())

			if ctx.JSONOutput {
				jsonData, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(jsonData))
				return
			}
			if !result.HasChanges {
				c.Println("No changes")
				return
			}
			c.Printf("Changes detected:\n")
			printIDs(c, "New strokes", result.Added)
			printIDs(c, "Modified strokes", result.Modified)
			printIDs(c, "Removed strokes", result.Removed)
		},
	}
}

func printIDs(c *ishell.Context, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	c.Printf("  %s: %d\n", title, len(ids))
	for _, id := range ids {
		c.Printf("    - %s\n", id)
	}
}

// snapshot saves the session so that the next diff starts from here.
func snapshot(ctx *ShellCtxt, in ink.Ink) error {
	if ctx.store == nil {
		return nil
	}
	return ctx.store.SaveSession(in)
}
