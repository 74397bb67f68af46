package main

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
	"github.com/jwebster45206/dialogue-engine/pkg/variable"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Enter to continue, or type /help"
	revealInterval  = 50 * time.Millisecond
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Controls connects the UI to the running session.
type Controls struct {
	SessionID string
	Script    string
	Vars      func() []variable.Snapshot
	Phase     func() int
	Skip      func()
}

// entry is one block of the dialogue pane: a spoken line or a UI note.
type entry struct {
	line  *capability.Line
	note  string
	style lipgloss.Style
}

// ConsoleUI is the BubbleTea model that plays a dialogue.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	title        string
	controls     Controls
	memory       *transcript.Memory
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error

	entries []entry

	// Line waiting for the player to continue
	pending  *lineMsg
	revealed int

	// Choice modal state
	choice   *choiceMsg
	selected int

	done bool

	// Quit confirmation state
	showQuitModal bool
}

type revealTickMsg struct {
	ack chan struct{}
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(title string, controls Controls, memory *transcript.Memory) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	if title == "" {
		title = controls.Script
	}
	return ConsoleUI{
		title:        title,
		controls:     controls,
		memory:       memory,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	id := m.controls.SessionID
	if len(id) > 8 {
		id = id[:8] + "..."
	}
	content.WriteString("Session ID:\n" + id + "\n\n")
	content.WriteString("Script:\n" + m.controls.Script + "\n\n")
	if m.controls.Phase != nil {
		content.WriteString(fmt.Sprintf("Phase:\n%d\n\n", m.controls.Phase()))
	}
	if m.memory != nil {
		content.WriteString(fmt.Sprintf("Lines:\n%d shown\n\n", len(m.memory.Entries())))
	}

	vars := m.vars()
	if len(vars) > 0 {
		content.WriteString("Variables:\n")
		for _, v := range vars {
			content.WriteString(fmt.Sprintf("• %s: %s\n", v.Key, v.Value))
		}
	} else {
		content.WriteString("Variables:\nNone set\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Continue\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /vars: Variables\n")
	content.WriteString("• /copy: Copy log\n")
	content.WriteString("• /skip: Skip\n")

	return content.String()
}

func (m ConsoleUI) vars() []variable.Snapshot {
	if m.controls.Vars == nil {
		return nil
	}
	return m.controls.Vars()
}

// chatContent renders every entry for the current viewport width. The
// pending line is cut at the revealed rune count.
func (m ConsoleUI) chatContent() string {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.title)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for i, e := range m.entries {
		if e.line == nil {
			content.WriteString(e.style.Render(wordwrap.String(e.note, chatWidth)) + "\n\n")
			continue
		}
		line := *e.line
		if i == len(m.entries)-1 && m.pending != nil {
			line.Text = truncateRunes(line.Text, m.revealed)
		}
		content.WriteString(formatLine(line, chatWidth) + "\n\n")
	}

	if m.pending != nil && m.lineRevealed() {
		content.WriteString(promptStyle.Render("▼") + "\n")
	}
	return content.String()
}

func (m *ConsoleUI) writeChatContent() {
	m.chatViewport.SetContent(m.chatContent())
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

// formatLine styles the talker prefix and wraps the text to width.
func formatLine(line capability.Line, width int) string {
	if line.Talker == "" || line.HideName {
		return narratorStyle.Render(wordwrap.String(line.Text, width))
	}
	prefix := line.Talker + ": "
	style := speakerStyle
	if line.IsPlayer {
		style = userStyle
	}
	wrapped := wordwrap.String(line.Text, width-utf8.RuneCountInString(prefix))
	return style.Render(prefix) + wrapped
}

func truncateRunes(s string, n int) string {
	if n >= utf8.RuneCountInString(s) {
		return s
	}
	return string([]rune(s)[:n])
}

func (m ConsoleUI) lineRevealed() bool {
	return m.pending == nil || m.revealed >= utf8.RuneCountInString(m.pending.line.Text)
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case lineMsg:
		return m.showLine(msg)
	case choiceMsg:
		m.choice = &msg
		m.selected = 0
		m.writeChatContent()
		return m, nil
	case runDoneMsg:
		return m.finish(msg.err), nil
	case revealTickMsg:
		if m.pending == nil || m.pending.ack != msg.ack || m.lineRevealed() {
			return m, nil
		}
		m.revealed += revealStep(m.pending.line.CPS)
		m.writeChatContent()
		return m, revealTick(msg.ack)
	}

	if m.choice != nil {
		return m.updateChoiceModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true
		m.writeChatContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			m.textarea.Reset()
			return m.advance(), nil
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize(width, height int) {
	m.width = width
	m.height = height
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) showLine(msg lineMsg) (tea.Model, tea.Cmd) {
	line := msg.line
	m.entries = append(m.entries, entry{line: &line})
	m.pending = &msg
	m.revealed = utf8.RuneCountInString(line.Text)
	var cmd tea.Cmd
	if line.CPS > 0 {
		m.revealed = 0
		cmd = revealTick(msg.ack)
	}
	m.writeChatContent()
	return m, cmd
}

// advance completes the typing of the current line, or releases it.
// Unskippable lines have to finish typing on their own.
func (m ConsoleUI) advance() ConsoleUI {
	if m.pending == nil {
		return m
	}
	if !m.lineRevealed() {
		if !m.pending.line.Unskippable {
			m.revealed = utf8.RuneCountInString(m.pending.line.Text)
			m.writeChatContent()
		}
		return m
	}
	close(m.pending.ack)
	m.pending = nil
	m.writeChatContent()
	return m
}

func (m ConsoleUI) finish(err error) ConsoleUI {
	m.done = true
	m.err = err
	m.pending = nil
	m.choice = nil
	if err != nil {
		m.note("Error: "+err.Error(), errorStyle)
	} else {
		m.note("The End.", titleStyle)
	}
	m.note("Press Ctrl+C to quit.", promptStyle)
	m.writeChatContent()
	return m
}

func (m *ConsoleUI) note(text string, style lipgloss.Style) {
	m.entries = append(m.entries, entry{note: text, style: style})
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/help":
		m.note(`Commands:
• /help - Show this help
• /vars - Show variables
• /copy - Copy the dialogue log to the clipboard
• /skip - Skip the rest of the scene
• Ctrl+C - Quit

Press Enter to continue a line. Enter during typing shows the whole line.`, narratorStyle)

	case "/vars":
		var varsText strings.Builder
		varsText.WriteString("Variables:\n")
		vars := m.vars()
		if len(vars) == 0 {
			varsText.WriteString("No variables are set.")
		}
		for _, v := range vars {
			varsText.WriteString(fmt.Sprintf("• %s = %s (%s)\n", v.Key, v.Value, v.Type))
		}
		m.note(strings.TrimRight(varsText.String(), "\n"), narratorStyle)

	case "/copy":
		var entries []transcript.Entry
		if m.memory != nil {
			entries = m.memory.Entries()
		}
		if err := writeClipboard(transcript.Format(entries)); err != nil {
			m.note("Copy failed: "+err.Error(), errorStyle)
		} else {
			m.note(fmt.Sprintf("Copied %d lines.", len(entries)), promptStyle)
		}

	case "/skip":
		if m.done || m.controls.Skip == nil {
			break
		}
		m.note("Skipping...", loadingStyle)
		m.writeChatContent()
		skip := m.controls.Skip
		return m, func() tea.Msg {
			skip()
			return nil
		}

	default:
		m.note("Unknown command "+cmd+". Type /help.", errorStyle)
	}

	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) updateChoiceModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true
		m.writeChatContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < len(m.choice.choices)-1 {
				m.selected++
			}
		case tea.KeyEnter:
			picked := m.choice.choices[m.selected]
			m.choice.reply <- picked.Dest
			m.choice = nil
			m.note("> "+picked.Text, userStyle)
			m.writeChatContent()
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case runDoneMsg:
		m = m.finish(msg.err)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved when the scene ends.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderChoiceModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Choose"))
	content.WriteString("\n\n")

	for i, c := range m.choice.choices {
		if i == m.selected {
			content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", c.Text)))
		} else {
			content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", c.Text)))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	if m.choice != nil {
		return m.renderChoiceModal()
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// revealStep is how many runes one tick uncovers at cps characters per second.
func revealStep(cps int) int {
	n := int(time.Duration(cps) * revealInterval / time.Second)
	if n < 1 {
		n = 1
	}
	return n
}

// revealTick schedules the next typing step for the line behind ack.
func revealTick(ack chan struct{}) tea.Cmd {
	return tea.Tick(revealInterval, func(time.Time) tea.Msg {
		return revealTickMsg{ack: ack}
	})
}
