package cmd

import (
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/webitel/reactor-plant/internal/plant"
)

// RunPlantTop renders a live terminal dashboard of p's pools and reactions,
// refreshing once a second until 'q' or Ctrl-C is pressed. A standalone
// introspection surface alongside the JSON admin API, for interactive use.
func RunPlantTop(p *plant.Plant) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("planttop: init termui: %w", err)
	}
	defer ui.Close()

	poolsTable := widgets.NewTable()
	poolsTable.Title = "Pools"
	poolsTable.RowSeparator = false

	reactionsTable := widgets.NewTable()
	reactionsTable.Title = "Reactions"
	reactionsTable.RowSeparator = false

	grid := ui.NewGrid()
	w, h := ui.TerminalDimensions()
	grid.SetRect(0, 0, w, h)
	grid.Set(
		ui.NewRow(0.4, ui.NewCol(1.0, poolsTable)),
		ui.NewRow(0.6, ui.NewCol(1.0, reactionsTable)),
	)

	render := func() {
		poolsTable.Rows = [][]string{{"ID", "Name", "Queue depth"}}
		for _, pool := range p.Pools() {
			poolsTable.Rows = append(poolsTable.Rows, []string{
				fmt.Sprintf("%d", pool.ID()), pool.Name(), fmt.Sprintf("%d", pool.QueueDepth()),
			})
		}

		reactionsTable.Rows = [][]string{{"ID", "Label", "Enabled", "Active"}}
		for _, reaction := range p.Reactions() {
			reactionsTable.Rows = append(reactionsTable.Rows, []string{
				fmt.Sprintf("%d", reaction.ID()), reaction.Label(),
				fmt.Sprintf("%t", reaction.Enabled()), fmt.Sprintf("%d", reaction.ActiveTasks()),
			})
		}
		ui.Render(grid)
	}

	render()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				render()
			}
		case <-ticker.C:
			render()
		}
	}
}
