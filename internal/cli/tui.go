package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/habitlens/internal/app"
	"github.com/j-veylop/habitlens/internal/ui/tabs/habits"
	"github.com/j-veylop/habitlens/internal/ui/tabs/info"
	"github.com/j-veylop/habitlens/internal/ui/tabs/insights"
)

// TuiCmd launches the interactive dashboard.
type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}

	model := app.NewModel(mgr)
	state := model.GetState()
	commands := model.GetCommands()
	model.SetTabs([]app.Tab{
		habits.New(state, commands),
		insights.New(state, commands),
		info.New(state, commands, mgr.Config()),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx.Ctx),
	)

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
