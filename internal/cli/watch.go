package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"comfycam/internal/comfy"
	"comfycam/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive capture/generate loop",
	Long: `Opens the interactive watch screen. Keys:

  s  run a single cycle
  l  start the continuous loop
  x  stop the loop (the in-flight cycle finishes first)
  h  check server health
  q  quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

var (
	watchTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	watchMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	watchStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	watchLoopStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	watchIdleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	watchPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type watchTickMsg time.Time

type watchProgressMsg comfy.ProgressEvent

type watchHealthMsg struct {
	body string
	err  error
}

type watchModel struct {
	app      *app
	ctx      context.Context
	cancel   context.CancelFunc
	spin     spinner.Model
	events   chan comfy.ProgressEvent
	progress string
	health   string
	width    int
	quitting bool
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.device.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan comfy.ProgressEvent, 16)
	go listenProgress(ctx, a.client, events)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := watchModel{
		app:    a,
		ctx:    ctx,
		cancel: cancel,
		spin:   sp,
		events: events,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	// Cooperative shutdown: the in-flight cycle, if any, runs to completion.
	a.ctrl.StopLoop()
	cancel()
	a.ctrl.Wait()
	return nil
}

// listenProgress keeps a best-effort websocket subscription to the server's
// progress feed, reconnecting while the watch screen is open.
func listenProgress(ctx context.Context, client *comfy.Client, events chan<- comfy.ProgressEvent) {
	log := logging.Default().WithComponent("progress")
	for ctx.Err() == nil {
		err := client.ListenProgress(ctx, func(ev comfy.ProgressEvent) {
			select {
			case events <- ev:
			default:
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debug("progress feed dropped", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func watchTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) waitProgress() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return watchProgressMsg(ev)
	}
}

func (m watchModel) checkHealth() tea.Cmd {
	client := m.app.client
	ctx := m.ctx
	return func() tea.Msg {
		body, err := client.QueueStatus(ctx)
		return watchHealthMsg{body: body, err: err}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, watchTick(), m.waitProgress())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			m.app.ctrl.StartSingleRun(m.ctx)
			return m, nil
		case "l":
			m.app.ctrl.StartLoop(m.ctx)
			return m, nil
		case "x":
			m.app.ctrl.StopLoop()
			return m, nil
		case "h":
			m.health = "checking..."
			return m, m.checkHealth()
		case "q", "ctrl+c":
			m.quitting = true
			m.app.ctrl.StopLoop()
			return m, tea.Quit
		}
		return m, nil

	case watchTickMsg:
		return m, watchTick()

	case watchProgressMsg:
		if msg.Max > 0 {
			m.progress = fmt.Sprintf("%d/%d", msg.Value, msg.Max)
		} else if msg.Node != "" {
			m.progress = "node " + msg.Node
		} else {
			m.progress = ""
		}
		return m, m.waitProgress()

	case watchHealthMsg:
		if msg.err != nil {
			m.health = msg.err.Error()
		} else {
			m.health = strings.TrimSpace(msg.body)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	state := m.app.ctrl.Snapshot()

	var mode string
	switch {
	case state.LoopRequested:
		mode = watchLoopStyle.Render("LOOP")
	case state.Working:
		mode = watchLoopStyle.Render("RUNNING")
	default:
		mode = watchIdleStyle.Render("IDLE")
	}

	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("comfycam"))
	b.WriteString(watchMutedStyle.Render("  " + m.app.client.Host()))
	b.WriteString("\n\n")

	status := m.app.status.Text()
	if state.Working {
		status = m.spin.View() + " " + status
	}
	b.WriteString(watchStatusStyle.Render(status))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s  cycles: %d", mode, state.Cycles))
	if m.progress != "" && state.Working {
		b.WriteString("  progress: " + m.progress)
	}
	b.WriteString("\n")

	if _, name := m.app.status.Result(); name != "" {
		b.WriteString(watchMutedStyle.Render("last result: " + name))
		b.WriteString("\n")
	}
	if m.health != "" {
		b.WriteString(watchMutedStyle.Render("health: " + m.health))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(watchMutedStyle.Render("s single  l loop  x stop  h health  q quit"))

	return watchPanelStyle.Render(b.String()) + "\n"
}
