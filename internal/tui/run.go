package tui

import (
	"context"

	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/keynav"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts a search controller on searcher and blocks until the user quits.
// Controller output reaches the program through Send.
func Run(ctx context.Context, searcher geocode.Searcher, weather WeatherFunc, bindings keynav.Bindings, opts ...search.Option) error {
	var p *tea.Program
	ready := make(chan struct{})
	send := func(msg tea.Msg) {
		<-ready
		p.Send(msg)
	}

	opts = append(opts,
		search.WithBindings(bindings),
		search.WithRenderer(func(v search.View) { send(viewMsg(v)) }),
		search.WithNavigator(func(c models.Coordinates) { send(navigateMsg(c)) }),
	)
	ctrl := search.New(searcher, opts...)
	defer ctrl.Close()

	p = tea.NewProgram(NewModel(ctrl, weather, bindings),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	close(ready)

	_, err := p.Run()
	return err
}
