// Package tui is the terminal front end: a text box with a dropdown of city
// candidates under it and, once a candidate is committed, its weather.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/keynav"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controls is the input side of a search controller.
type Controls interface {
	Input(text string)
	Focus()
	Blur()
	Key(name string)
	Hover(i int)
	MouseDown(i int)
	MouseUp()
	Click(i int)
}

// WeatherFunc loads the weather detail for committed coordinates.
type WeatherFunc func(ctx context.Context, at models.Coordinates) (models.WeatherReport, error)

type (
	viewMsg     search.View
	navigateMsg models.Coordinates
	weatherMsg  struct {
		at     models.Coordinates
		report models.WeatherReport
		err    error
	}
)

// Rows above the first dropdown item: title, then the text box.
const listTop = 2

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	statusStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginTop(1)
)

type Model struct {
	ctrl    Controls
	weather WeatherFunc
	keys    *keynav.Handler
	timeout time.Duration

	input   textinput.Model
	view    search.View
	pressed int

	target         *models.Coordinates
	report         *models.WeatherReport
	weatherErr     error
	loadingWeather bool
}

func NewModel(ctrl Controls, weather WeatherFunc, bindings keynav.Bindings) Model {
	ti := textinput.New()
	ti.Placeholder = "Search for a city"
	ti.Prompt = "> "
	ti.CharLimit = 100
	ti.Focus()

	return Model{
		ctrl:    ctrl,
		weather: weather,
		keys:    keynav.New(bindings),
		timeout: 10 * time.Second,
		input:   ti,
		view:    search.View{Selected: -1},
		pressed: -1,
	}
}

func (m Model) Init() tea.Cmd {
	m.ctrl.Focus()
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	case viewMsg:
		m.view = search.View(msg)
		return m, nil
	case navigateMsg:
		at := models.Coordinates(msg)
		m.target = &at
		m.loadingWeather = true
		m.weatherErr = nil
		return m, m.fetchWeather(at)
	case weatherMsg:
		// Only the latest commit counts.
		if m.target == nil || *m.target != msg.at {
			return m, nil
		}
		m.loadingWeather = false
		m.weatherErr = msg.err
		if msg.err == nil {
			r := msg.report
			m.report = &r
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.input.Focused() {
			m.input.Blur()
			m.ctrl.Blur()
		} else {
			m.ctrl.Focus()
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.keys.Resolve(key) != keynav.None {
		m.ctrl.Key(key)
		return m, nil
	}
	if !m.input.Focused() {
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.Input(after)
	}
	return m, cmd
}

// itemAt maps a screen row to a dropdown index, or -1.
func (m Model) itemAt(y int) int {
	if !m.view.Open {
		return -1
	}
	i := y - listTop
	if i < 0 || i >= len(m.view.Items) {
		return -1
	}
	return i
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	i := m.itemAt(msg.Y)

	switch msg.Action {
	case tea.MouseActionMotion:
		if i >= 0 {
			m.ctrl.Hover(i)
		}
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		switch {
		case i >= 0:
			// A press on an item leaves focus in the text box.
			m.pressed = i
			m.ctrl.MouseDown(i)
		case msg.Y == listTop-1:
			m.input.Focus()
			m.ctrl.Focus()
		default:
			m.input.Blur()
			m.ctrl.Blur()
		}
	case tea.MouseActionRelease:
		if m.pressed < 0 {
			return m
		}
		if i == m.pressed {
			m.ctrl.Click(i)
		} else {
			m.ctrl.MouseUp()
		}
		m.pressed = -1
	}
	return m
}

func (m Model) fetchWeather(at models.Coordinates) tea.Cmd {
	if m.weather == nil {
		return nil
	}
	weather, timeout := m.weather, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		report, err := weather(ctx, at)
		return weatherMsg{at: at, report: report, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("City weather"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.view.Open {
		for _, it := range m.view.Items {
			if it.Selected {
				b.WriteString(selectedStyle.Render("›" + it.Label))
			} else {
				b.WriteString(itemStyle.Render(it.Label))
			}
			b.WriteString("\n")
		}
	}

	switch {
	case m.view.Err != "":
		b.WriteString(errorStyle.Render("search failed: " + m.view.Err))
		b.WriteString("\n")
	case m.view.Loading:
		b.WriteString(statusStyle.Render("searching..."))
		b.WriteString("\n")
	case strings.TrimSpace(m.view.Settled) != "" && len(m.view.Items) == 0:
		b.WriteString(statusStyle.Render("no matching cities"))
		b.WriteString("\n")
	}

	if panel := m.weatherPanel(); panel != "" {
		b.WriteString(panel)
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("↑/↓ select • enter open • tab focus • esc quit"))
	return b.String()
}

func (m Model) weatherPanel() string {
	switch {
	case m.loadingWeather:
		return panelStyle.Render("loading weather...")
	case m.weatherErr != nil:
		return panelStyle.Render(errorStyle.Render("weather unavailable: " + m.weatherErr.Error()))
	case m.report == nil:
		return ""
	}
	r := m.report
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s, %s", r.City, r.Country)),
		fmt.Sprintf("%.1f°C (feels like %.1f°C)", r.TempC, r.FeelsLikeC),
		fmt.Sprintf("high %.1f°C  low %.1f°C", r.HiC, r.LoC),
		fmt.Sprintf("pressure %.0f hPa  wind %.1f m/s", r.Pressure, r.WindSpeed),
	}
	for _, c := range r.Conditions {
		lines = append(lines, fmt.Sprintf("%s: %s", c.Main, c.Description))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
