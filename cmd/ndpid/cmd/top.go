package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ndpid/ndpid-go/pkg/formatting"
	"github.com/ndpid/ndpid-go/pkg/worker"
)

func newTopCmd() *cobra.Command {
	var apiAddr string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live worker dashboard for a running ndpid's status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := newTopModel(apiAddr, interval)
			_, err := tea.NewProgram(m).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&apiAddr, "api-addr", "http://127.0.0.1:6060", "address of ndpid's status API")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

type statsMsg struct {
	stats []worker.Stats
	err   error
}

type tickMsg struct{}

var topColumns = []table.Column{
	{Title: "thread", Width: 6},
	{Title: "captured", Width: 10},
	{Title: "processed", Width: 10},
	{Title: "l4 bytes", Width: 10},
	{Title: "detected", Width: 10},
	{Title: "flows", Width: 7},
	{Title: "stopped", Width: 7},
}

type topModel struct {
	apiAddr  string
	interval time.Duration

	tbl     table.Model
	lastErr error
}

func newTopModel(apiAddr string, interval time.Duration) topModel {
	tbl := table.New(
		table.WithColumns(topColumns),
		table.WithFocused(false),
		table.WithHeight(16),
	)
	tbl.SetStyles(table.DefaultStyles())

	return topModel{apiAddr: apiAddr, interval: interval, tbl: tbl}
}

func (m topModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := fetchStats(m.apiAddr)
		return statsMsg{stats: stats, err: err}
	}
}

func (m topModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m topModel) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.tickCmd())
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.tbl.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.pollCmd(), m.tickCmd())
	case statsMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.tbl.SetRows(statsToRows(msg.stats))
		}
	}
	return m, nil
}

func statsToRows(stats []worker.Stats) []table.Row {
	rows := make([]table.Row, len(stats))
	for i, st := range stats {
		rows[i] = table.Row{
			strconv.Itoa(st.ThreadID),
			formatting.Countable(st.PacketsCaptured).String(),
			formatting.Countable(st.PacketsProcessed).String(),
			formatting.Sizeable(st.TotalL4DataLen).String(),
			formatting.Countable(st.DetectedFlowProtocols).String(),
			strconv.Itoa(st.ActiveFlows),
			strconv.FormatBool(st.ErrorOrEOF),
		}
	}
	return rows
}

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleHelp   = lipgloss.NewStyle().Faint(true)
)

func (m topModel) View() string {
	if m.lastErr != nil {
		return styleError.Render(fmt.Sprintf("failed to fetch stats: %s", m.lastErr)) + "\n"
	}

	return styleHeader.Render("ndpid top") + "\n" +
		m.tbl.View() + "\n" +
		styleHelp.Render("q to quit") + "\n"
}
