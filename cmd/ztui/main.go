package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/haldor-if/zvm/selectstoryui"
	"github.com/haldor-if/zvm/zmachine"
	"github.com/muesli/reflow/wordwrap"
)

var (
	romFilePath  string
	cacheDirPath string
	baseAppStyle lipgloss.Style
)

type stepResultMsg zmachine.StepResult
type tickMsg time.Time

// keyToZChar maps Bubble Tea key messages to Z-machine character codes, per
// the function/cursor key table in the input chapter of the standard.
func keyToZChar(msg tea.KeyMsg) uint8 {
	switch msg.Type {
	case tea.KeyUp:
		return 129
	case tea.KeyDown:
		return 130
	case tea.KeyLeft:
		return 131
	case tea.KeyRight:
		return 132
	case tea.KeyF1:
		return 133
	case tea.KeyF2:
		return 134
	case tea.KeyF3:
		return 135
	case tea.KeyF4:
		return 136
	case tea.KeyF5:
		return 137
	case tea.KeyF6:
		return 138
	case tea.KeyF7:
		return 139
	case tea.KeyF8:
		return 140
	case tea.KeyF9:
		return 141
	case tea.KeyF10:
		return 142
	case tea.KeyF11:
		return 143
	case tea.KeyF12:
		return 144
	case tea.KeyEscape:
		return 27
	case tea.KeyEnter:
		return 13
	case tea.KeyDelete:
		return 8
	default:
		return 0
	}
}

type runningStoryState int

const (
	appRunning runningStoryState = iota
	appWaitingForInput
	appWaitingForCharacter
)

// fileStorage satisfies zmachine.Storage by saving/restoring a file in the
// working directory: the given name, or by default the story file's base
// name with its .z* extension replaced by .sav.
type fileStorage struct {
	romPath string
}

func (f fileStorage) Save(name string, data []byte) error {
	return os.WriteFile(f.saveFilePath(name), data, 0644)
}

func (f fileStorage) Load(name string) ([]byte, error) {
	return os.ReadFile(f.saveFilePath(name))
}

func (f fileStorage) saveFilePath(name string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(f.romPath)
	ext := filepath.Ext(base)
	if len(ext) >= 2 && (ext[1] == 'z' || ext[1] == 'Z') {
		base = base[:len(base)-len(ext)]
	}
	return base + ".sav"
}

type runStoryModel struct {
	z           *zmachine.Machine
	romBytes    []byte
	romFilePath string

	statusBar                zmachine.StatusBar
	screenModel              zmachine.ScreenModel
	lowerWindowTextPreStyled string
	lowerWindowText          string
	upperWindowText          []string
	upperWindowStyle         [][]lipgloss.Style
	appState                 runningStoryState
	inputBox                 textinput.Model
	width                    int
	height                   int
	backgroundStyle          lipgloss.Style
	statusBarStyle           lipgloss.Style
	upperWindowStyleCurrent  lipgloss.Style
	lowerWindowStyle         lipgloss.Style
	runtimeError             string
}

func (m runStoryModel) Init() tea.Cmd {
	return tea.Batch(
		stepCmd(m.z),
		tickCmd(),
		tea.Sequence(
			tea.SetWindowTitle(romFilePath),
			tea.WindowSize(),
		),
	)
}

func stepCmd(z *zmachine.Machine) tea.Cmd {
	return func() tea.Msg {
		return stepResultMsg(z.Step())
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m runStoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if m.height < len(m.upperWindowText) {
			m.upperWindowText = m.upperWindowText[:m.height]
			m.upperWindowStyle = m.upperWindowStyle[:m.height]
		} else {
			for range int(math.Min(float64(m.height-len(m.upperWindowText)), float64(m.screenModel.UpperWindowHeight))) {
				m.upperWindowText = append(m.upperWindowText, strings.Repeat(" ", m.width))
				m.upperWindowStyle = append(m.upperWindowStyle, slices.Repeat([]lipgloss.Style{baseAppStyle}, m.width))
			}
		}

		for ix, row := range m.upperWindowText {
			if m.width < len(row) {
				m.upperWindowText[ix] = row[:m.width]
				m.upperWindowStyle[ix] = m.upperWindowStyle[ix][:m.width]
			} else if m.width > len(row) {
				for ii := len(row); ii < m.width; ii++ {
					m.upperWindowText[ix] = m.upperWindowText[ix] + " "
					m.upperWindowStyle[ix] = append(m.upperWindowStyle[ix], baseAppStyle)
				}
			}
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			os.Exit(0)
		}

		switch m.appState {
		case appWaitingForCharacter:
			m.appState = appRunning
			if len(msg.Runes) > 0 {
				m.z.CompleteChar(uint8(msg.Runes[0]))
			} else {
				m.z.CompleteChar(keyToZChar(msg))
			}
			return m, stepCmd(m.z)
		case appWaitingForInput:
			if msg.Type == tea.KeyEnter {
				m.appState = appRunning
				m.lowerWindowText += m.inputBox.Value() + "\n"
				text := m.inputBox.Value()
				m.inputBox.SetValue("")
				if err := m.z.CompleteLine(text, 13); err != nil {
					m.runtimeError = err.Error()
					return m, tea.Quit
				}
				return m, stepCmd(m.z)
			}
		}

	case tickMsg:
		m.z.Tick(1)
		cmds := []tea.Cmd{tickCmd()}
		if m.appState != appRunning {
			// The timed-input interrupt may have completed the read itself.
			cmds = append(cmds, stepCmd(m.z))
		}
		return m, tea.Batch(cmds...)

	case stepResultMsg:
		for _, event := range msg.Events {
			switch event := event.(type) {
			case string:
				m.appendScreenText(event)
			case zmachine.ScreenModel:
				m.applyScreenModel(event)
			case zmachine.StatusBar:
				m.statusBar = event
			case zmachine.EraseWindowRequest:
				m.eraseWindow(int(event))
			case zmachine.RuntimeError:
				m.runtimeError = event.Err.Error()
			case zmachine.Warning:
				fmt.Fprintf(os.Stderr, "%s\n", event.Message)
			}
		}

		switch msg.Kind {
		case zmachine.Stepped, zmachine.Restarted:
			return m, stepCmd(m.z)
		case zmachine.AwaitingLine:
			m.appState = appWaitingForInput
		case zmachine.AwaitingChar:
			m.appState = appWaitingForCharacter
		case zmachine.Halted:
			if m.runtimeError != "" {
				return m, tea.Quit
			}
			return m, tea.Quit
		}
	}

	if m.appState == appWaitingForInput {
		m.inputBox, cmd = m.inputBox.Update(msg)
	}

	return m, cmd
}

func (m *runStoryModel) appendScreenText(s string) {
	if m.screenModel.LowerWindowActive {
		m.lowerWindowText += s
		return
	}

	segments := strings.Split(s, "\n")
	cursorX := m.screenModel.UpperWindowCursorX
	cursorY := m.screenModel.UpperWindowCursorY

	for segIdx, segment := range segments {
		if cursorY >= 0 && cursorY < len(m.upperWindowText) {
			row := m.upperWindowText[cursorY]
			if cursorY < len(m.upperWindowStyle) {
				for i := 0; i < len(segment) && cursorX+i < len(m.upperWindowStyle[cursorY]); i++ {
					m.upperWindowStyle[cursorY][cursorX+i] = m.upperWindowStyleCurrent
				}
			}
			if cursorX < len(row) {
				before := row[:cursorX]
				afterStart := cursorX + len(segment)
				after := ""
				if afterStart < len(row) {
					after = row[afterStart:]
				}
				fullText := before + segment + after
				if len(fullText) > m.width {
					fullText = fullText[:m.width]
				}
				m.upperWindowText[cursorY] = fullText
			}
		}
		if segIdx < len(segments)-1 {
			cursorY++
			cursorX = 0
		}
	}
}

func (m *runStoryModel) applyScreenModel(sm zmachine.ScreenModel) {
	m.screenModel = sm
	if len(m.upperWindowText) != sm.UpperWindowHeight {
		if m.z.Version() == 3 {
			for row := range sm.UpperWindowHeight {
				m.upperWindowText[row] = strings.Repeat(" ", m.width)
				m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{baseAppStyle}, m.width)
			}
		} else if len(m.upperWindowText) > sm.UpperWindowHeight {
			m.upperWindowText = m.upperWindowText[:sm.UpperWindowHeight]
			m.upperWindowStyle = m.upperWindowStyle[:sm.UpperWindowHeight]
		} else {
			for range sm.UpperWindowHeight - len(m.upperWindowText) {
				m.upperWindowText = append(m.upperWindowText, strings.Repeat(" ", m.width))
				m.upperWindowStyle = append(m.upperWindowStyle, slices.Repeat([]lipgloss.Style{baseAppStyle}, m.width))
			}
		}
	}

	prerenderLowerWindowText(m)

	m.lowerWindowStyle = m.lowerWindowStyle.
		Background(lipgloss.Color(sm.LowerWindowBackground.ToHex())).
		Foreground(lipgloss.Color(sm.LowerWindowForeground.ToHex())).
		Bold(sm.LowerWindowTextStyle&zmachine.Bold == zmachine.Bold).
		Italic(sm.LowerWindowTextStyle&zmachine.Italic == zmachine.Italic).
		Reverse(sm.LowerWindowTextStyle&zmachine.ReverseVideo == zmachine.ReverseVideo).
		Inline(true)
	m.upperWindowStyleCurrent = m.upperWindowStyleCurrent.
		Background(lipgloss.Color(sm.UpperWindowBackground.ToHex())).
		Foreground(lipgloss.Color(sm.UpperWindowForeground.ToHex())).
		Bold(sm.UpperWindowTextStyle&zmachine.Bold == zmachine.Bold).
		Italic(sm.UpperWindowTextStyle&zmachine.Italic == zmachine.Italic).
		Reverse(sm.UpperWindowTextStyle&zmachine.ReverseVideo == zmachine.ReverseVideo)
	m.statusBarStyle = m.lowerWindowStyle.Reverse(true)
	m.backgroundStyle = m.backgroundStyle.
		Background(lipgloss.Color(sm.DefaultLowerWindowBackground.ToHex())).
		Foreground(lipgloss.Color(sm.DefaultLowerWindowForeground.ToHex()))
}

func (m *runStoryModel) eraseWindow(window int) {
	switch window {
	case -2, -1:
		m.lowerWindowText = ""
		m.lowerWindowTextPreStyled = ""
		for row := range m.upperWindowText {
			m.upperWindowText[row] = strings.Repeat(" ", m.width)
			m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{baseAppStyle}, m.width)
		}
	case 0:
		m.lowerWindowText = ""
		m.lowerWindowTextPreStyled = ""
	case 1:
		for row := range m.screenModel.UpperWindowHeight {
			if row < len(m.upperWindowText) {
				m.upperWindowText[row] = strings.Repeat(" ", m.width)
				m.upperWindowStyle[row] = slices.Repeat([]lipgloss.Style{baseAppStyle}, m.width)
			}
		}
	}
}

func prerenderLowerWindowText(m *runStoryModel) {
	if m.lowerWindowText != "" {
		lines := strings.Split(m.lowerWindowText, "\n")
		for ix, line := range lines {
			lines[ix] = m.lowerWindowStyle.Render(line)
		}
		m.lowerWindowTextPreStyled += strings.Join(lines, "\n")
		m.lowerWindowText = ""
	}
}

func createStatusLine(width int, placeName string, scoreOrHours int, movesOrMinutes int, isTimeBasedGame bool) string {
	rightHandSide := fmt.Sprintf("Score: %d    Moves %d", scoreOrHours, movesOrMinutes)
	if isTimeBasedGame {
		rightHandSide = fmt.Sprintf("Time: %d:%d", scoreOrHours, movesOrMinutes)
	}

	if len(rightHandSide) >= width {
		return rightHandSide[:width]
	}
	if len(placeName)+len(rightHandSide)+1 >= width {
		return fmt.Sprintf("%s %s", placeName[:width-len(rightHandSide)-1], rightHandSide)
	}
	numberSpaces := width - len(placeName) - len(rightHandSide)
	return fmt.Sprintf("%s%s%s", placeName, strings.Repeat(" ", numberSpaces), rightHandSide)
}

func (m runStoryModel) View() string {
	if m.runtimeError != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
		return fmt.Sprintf("\n%s\n\n%s\n", errorStyle.Render("Z-Machine Error:"), m.runtimeError)
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	s := strings.Builder{}
	lowerWindowHeight := m.height

	if m.statusBar.PlaceName != "" {
		s.WriteString(m.statusBarStyle.Render(createStatusLine(m.width, m.statusBar.PlaceName, m.statusBar.Score, m.statusBar.Moves, m.statusBar.IsTimeBased)))
		s.WriteString(m.lowerWindowStyle.Render("\n"))
		lowerWindowHeight -= 2
	} else {
		lowerWindowHeight -= m.screenModel.UpperWindowHeight

		var text strings.Builder
		var currentText strings.Builder
		var currentStyle lipgloss.Style
		for row, styleRow := range m.upperWindowStyle {
			for col, chrStyle := range styleRow {
				if chrStyle.GetBackground() != currentStyle.GetBackground() ||
					chrStyle.GetForeground() != currentStyle.GetForeground() ||
					chrStyle.GetBold() != currentStyle.GetBold() ||
					chrStyle.GetItalic() != currentStyle.GetItalic() ||
					chrStyle.GetReverse() != currentStyle.GetReverse() {
					if currentText.Len() > 0 {
						text.WriteString(currentStyle.Render(currentText.String()))
					}
					currentStyle = chrStyle
					currentText.Reset()
				}
				currentText.WriteRune([]rune(m.upperWindowText[row])[col])
			}
			currentText.WriteByte('\n')
		}
		if currentText.Len() > 0 {
			text.WriteString(currentStyle.Render(currentText.String()))
		}
		s.WriteString(text.String())
	}

	prerenderLowerWindowText(&m)
	fullLowerWindowText := m.lowerWindowTextPreStyled

	wordWrappedBody := wordwrap.String(fullLowerWindowText, m.width)
	lines := strings.Split(wordWrappedBody, "\n")
	if len(lines) > lowerWindowHeight-2 {
		lines = lines[len(lines)-lowerWindowHeight+2:]
	}
	s.WriteString(strings.Join(lines, "\n"))

	if m.appState == appWaitingForInput {
		s.WriteString(m.lowerWindowStyle.Render("\n" + m.inputBox.View()))
	}

	return m.backgroundStyle.Width(m.width).Height(m.height).Render(s.String())
}

func newApplicationModel(z *zmachine.Machine, romBytes []byte, romPath string) tea.Model {
	z.SetStorage(fileStorage{romPath: romPath})

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 20
	ti.Prompt = ""

	return runStoryModel{
		z:                       z,
		romBytes:                romBytes,
		romFilePath:             romPath,
		appState:                appRunning,
		inputBox:                ti,
		upperWindowStyleCurrent: lipgloss.NewStyle(),
		lowerWindowStyle:        lipgloss.NewStyle(),
		statusBarStyle:          lipgloss.NewStyle(),
		backgroundStyle:         lipgloss.NewStyle(),
	}
}

func init() {
	flag.StringVar(&romFilePath, "rom", "", "The path of a z-machine rom")
	flag.StringVar(&cacheDirPath, "cache", "", "Directory to cache the IF Archive story index and downloads")
	flag.Parse()
}

func main() {
	var model tea.Model

	if romFilePath != "" {
		romFileBytes, err := os.ReadFile(romFilePath)
		if err != nil {
			panic(err)
		}
		z, err := zmachine.LoadRom(romFileBytes)
		if err != nil {
			panic(err)
		}
		model = newApplicationModel(z, romFileBytes, romFilePath)
	} else {
		model = selectstoryui.NewUIModel(func(z *zmachine.Machine, romBytes []byte, romPath string) tea.Model {
			return newApplicationModel(z, romBytes, romPath)
		}, cacheDirPath)
	}

	tui := tea.NewProgram(model)
	if _, err := tui.Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}
