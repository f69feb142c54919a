package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/sugar"
	"github.com/AndrewLester/ntpal-client/internal/ui"
	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

func newWatchCommand() *cobra.Command {
	var config string
	var period time.Duration
	var concurrency int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the configured servers and show their offsets in a live table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if period <= 0 {
				return fmt.Errorf("%w: period must be positive", ntpal.ErrInvalidArgument)
			}
			cfg, err := ntpal.LoadConfig(config)
			if err != nil {
				return err
			}
			if len(cfg.Servers) == 0 {
				return fmt.Errorf("no servers configured in %s", config)
			}

			// Bubble Tea owns the terminal, so only errors are logged.
			client := ntpal.NewClient(&ntpal.ClientConfig{StampTransmit: true})
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			m := watchModel{
				ctx:     ctx,
				cancel:  cancel,
				period:  period,
				table:   setupTable(len(cfg.Servers)),
				servers: cfg.Servers,
				query: func(ctx context.Context) []ntpal.ServerResult {
					return client.QueryServers(ctx, cfg.Servers, concurrency)
				},
			}
			_, err = sugar.RunProgramWithErrors(m)
			if err == sugar.ErrAborted {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", defaultConfig(), "Path to the NTP config file.")
	cmd.Flags().DurationVar(&period, "period", 5*time.Second, "Time between polls.")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Servers queried at once.")

	return cmd
}

type watchModel struct {
	ctx     context.Context
	cancel  context.CancelFunc
	period  time.Duration
	table   table.Model
	servers []ntpal.ServerConfig
	query   func(context.Context) []ntpal.ServerResult

	polls    int
	lastPoll time.Time
	err      error
}

type pollMessage []ntpal.ServerResult
type tickMsg time.Time

func pollCommand(m watchModel) tea.Cmd {
	return func() tea.Msg {
		return pollMessage(m.query(m.ctx))
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return tickCommand(0)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
			return m, nil
		case "ctrl+c", "q":
			m.cancel()
			m.err = sugar.ErrAborted
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case pollMessage:
		m.polls++
		m.lastPoll = time.Now()
		m.table.SetRows(watchRows(msg))
		return m, nil
	case tickMsg:
		return m, tea.Batch(tickCommand(m.period), pollCommand(m))
	default:
		return m, nil
	}
}

func (m watchModel) View() (s string) {
	s += ui.Title("NTPal - Watch") + "\n\n"
	s += baseStyle.Render(m.table.View()) + "\n\n"
	if m.polls > 0 {
		s += ui.Help(fmt.Sprintf("poll %d at %s, every %s", m.polls, m.lastPoll.Format(time.TimeOnly), m.period)) + "\n"
	}
	s += ui.Help("q: exit") + "\n"
	return
}

func (m watchModel) GetError() error {
	return m.err
}

func watchRows(results []ntpal.ServerResult) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, table.Row{r.Server.Address(), "", "", "", r.Err.Error()})
			continue
		}
		rows = append(rows, table.Row{
			r.Server.Address(),
			strconv.Itoa(int(r.Result.Packet.Stratum)),
			strconv.FormatFloat(r.Result.Offset.Seconds(), 'G', 5, 64),
			strconv.FormatFloat(r.Result.Delay.Seconds(), 'G', 5, 64),
			"",
		})
	}
	return rows
}

func setupTable(height int) table.Model {
	columns := []table.Column{
		{Title: "Address", Width: 28},
		{Title: "Stratum", Width: 8},
		{Title: "Offset", Width: 15},
		{Title: "Delay", Width: 15},
		{Title: "Error", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(height, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}
