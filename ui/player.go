package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	te "github.com/muesli/termenv"

	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/playback"
	"github.com/dgnsrekt/readaloud/internal/progress"
)

const (
	statusMessageTimeout = time.Second * 3
	doubleTapWindow      = 400 * time.Millisecond
	commandTimeout       = 5 * time.Second
)

// Player is the playback controller as driven by the play bar.
type Player interface {
	State() playback.State
	Load(ctx context.Context, chapter string, progress float64) error
	Toggle() error
	Stop(source playback.StopSource) error
	SetProgress(progress float64) error
	SetShouldAutoPlay(v bool) error
	Cleanup() error
}

// Chapters resolves neighbouring chapters.
type Chapters interface {
	Entries(ctx context.Context) ([]library.Entry, error)
	Next(ctx context.Context, current string) (string, bool)
}

type (
	tickMsg       time.Time
	toastMsg      string
	clearToastMsg int
	// resultMsg reports the outcome of a player call.
	resultMsg struct {
		note string
		err  error
	}
)

// Model is the play bar.
type Model struct {
	cfg      Config
	player   Player
	chapters Chapters
	toasts   <-chan string
	keys     keyMap
	help     help.Model
	bar      bar.Model
	now      func() time.Time

	state    playback.State
	width    int
	height   int
	toast    string
	toastID  int
	note     string
	lastTap  time.Time
	quitting bool
}

// New creates the play bar. toasts delivers error messages to show; it may
// be nil.
func New(cfg Config, player Player, chapters Chapters, toasts <-chan string) Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return Model{
		cfg:      cfg,
		player:   player,
		chapters: chapters,
		toasts:   toasts,
		keys:     newKeyMap(),
		help:     help.New(),
		bar:      bar.New(bar.WithDefaultGradient(), bar.WithoutPercentage()),
		now:      time.Now,
		state:    player.State(),
		width:    80,
	}
}

// NewProgram returns a new Tea program for m.
func NewProgram(m Model) *tea.Program {
	log.Debug("starting play bar", "chapter", m.cfg.Chapter, "autoplay", m.cfg.AutoPlay)

	var opts []tea.ProgramOption
	if m.cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if m.cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(m, opts...)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.poll(), waitForToast(m.toasts)}
	if m.cfg.Chapter != "" {
		cmds = append(cmds, openCmd(m.player, m.cfg.Chapter, m.cfg.Progress, m.cfg.AutoPlay))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.state = m.player.State()
		return m, m.poll()

	case toastMsg:
		m.toastID++
		m.toast = string(msg)
		return m, tea.Batch(waitForToast(m.toasts), clearToastAfter(m.toastID))

	case clearToastMsg:
		if int(msg) == m.toastID {
			m.toast = ""
			m.note = ""
		}
		return m, nil

	case resultMsg:
		m.state = m.player.State()
		var ce *playback.ContentError
		switch {
		case msg.err != nil && errors.As(msg.err, &ce):
			// Already shown through the notifier.
		case msg.err != nil:
			m.toastID++
			m.toast = msg.err.Error()
			return m, clearToastAfter(m.toastID)
		case msg.note != "":
			m.toastID++
			m.note = msg.note
			return m, clearToastAfter(m.toastID)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, quitCmd(m.player)

	case key.Matches(msg, m.keys.Toggle):
		return m, call(m.player.Toggle)

	case key.Matches(msg, m.keys.Stop):
		return m, call(func() error { return m.player.Stop(playback.StopSourcePlayBarStop) })

	case key.Matches(msg, m.keys.Tap):
		now := m.now()
		if !m.lastTap.IsZero() && now.Sub(m.lastTap) <= doubleTapWindow {
			m.lastTap = time.Time{}
			return m, call(func() error { return m.player.Stop(playback.StopSourceDoubleTap) })
		}
		m.lastTap = now
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m, m.step(-1)

	case key.Matches(msg, m.keys.Forward):
		return m, m.step(1)

	case key.Matches(msg, m.keys.Next):
		return m, nextChapterCmd(m.player, m.chapters, m.state.Chapter)

	case key.Matches(msg, m.keys.Previous):
		return m, previousChapterCmd(m.player, m.chapters, m.state.Chapter)

	case key.Matches(msg, m.keys.AutoPlay):
		v := !m.state.ShouldAutoPlay
		note := "autoplay off"
		if v {
			note = "autoplay on"
		}
		return m, func() tea.Msg {
			return resultMsg{note: note, err: m.player.SetShouldAutoPlay(v)}
		}

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.state.Unit)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

// step scrubs by n units from the current one.
func (m Model) step(n int) tea.Cmd {
	count := m.state.UnitCount
	if count == 0 {
		return nil
	}
	idx := m.state.UnitIndex + n
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	if idx == m.state.UnitIndex {
		return nil
	}
	p := progress.FromUnitIndex(idx, count)
	return call(func() error { return m.player.SetProgress(p) })
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	m.bar.Width = max(10, m.width-4)
	b.WriteString("  " + m.bar.ViewAs(m.state.Progress))
	b.WriteString("\n")

	unit := m.state.Unit
	if unit == "" {
		unit = "Nothing loaded."
	}
	lines := 6
	if m.height > 0 {
		lines = max(1, m.height-10)
	}
	b.WriteString(unitStyle.Render(wrapUnit(unit, m.width-4, lines)))
	b.WriteString("\n")

	switch {
	case m.toast != "":
		b.WriteString(toastStyle.Render("✗ " + m.toast))
	case m.note != "":
		b.WriteString(noteStyle.Render(m.note))
	}
	b.WriteString("\n\n")
	b.WriteString(noteStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) headerView() string {
	st := m.state

	counter := "–"
	if st.UnitCount > 0 {
		counter = fmt.Sprintf("%d/%d", st.UnitIndex+1, st.UnitCount)
	}
	if st.ShouldAutoPlay {
		counter = "auto · " + counter
	}
	right := counterStyle.Render(counter)

	name := st.Chapter
	if name == "" {
		name = "readaloud"
	}
	room := m.width - lipgloss.Width(right) - 6
	if room < 1 {
		room = 1
	}
	name = runewidth.Truncate(name, room, ellipsis)
	left := statusIcon(st.Status.String()) + " " + chapterStyle.Render(name)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	fill := lipgloss.NewStyle().Background(barBg).Render(strings.Repeat(" ", gap))
	return left + fill + right
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForToast(toasts <-chan string) tea.Cmd {
	if toasts == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-toasts
		if !ok {
			return nil
		}
		return toastMsg(msg)
	}
}

func clearToastAfter(id int) tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return clearToastMsg(id)
	})
}

func call(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{err: fn()}
	}
}

func openCmd(p Player, chapter string, at float64, autoPlay bool) tea.Cmd {
	return func() tea.Msg {
		if err := p.SetShouldAutoPlay(autoPlay); err != nil {
			return resultMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return resultMsg{err: p.Load(ctx, chapter, at)}
	}
}

func nextChapterCmd(p Player, chapters Chapters, current string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		next, ok := chapters.Next(ctx, current)
		if !ok {
			return resultMsg{note: "last chapter"}
		}
		return resultMsg{err: p.Load(ctx, next, 0)}
	}
}

func previousChapterCmd(p Player, chapters Chapters, current string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		entries, err := chapters.Entries(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		for i, e := range entries {
			if e.Name == current && i > 0 {
				return resultMsg{err: p.Load(ctx, entries[i-1].Name, 0)}
			}
		}
		return resultMsg{note: "first chapter"}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return nil
		}
		// Try the system clipboard first, then OSC 52 for remote sessions.
		if err := clipboard.WriteAll(text); err != nil {
			te.Copy(text)
		}
		return resultMsg{note: "copied sentence"}
	}
}

func quitCmd(p Player) tea.Cmd {
	return func() tea.Msg {
		if err := p.Cleanup(); err != nil {
			log.Debug("cleanup on quit failed", "err", err)
		}
		return tea.Quit()
	}
}
