package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/microsoft/hat/bench"
	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/loader"
	"github.com/microsoft/hat/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateEditOptions
	stateRunning
	stateShowResult
)

type interactiveModel struct {
	err      error
	pkg      *loader.Package
	filename string
	opts     bench.Options
	funcs    []funcInfo
	inputs   []textinput.Model
	result   *bench.Result
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name      string
	signature string
}

func newInteractiveModel(filename string, opts bench.Options) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		opts:     opts,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	pkg   *loader.Package
	funcs []funcInfo
}

type benchDoneMsg struct {
	err    error
	result *bench.Result
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadPackage
}

func (m *interactiveModel) loadPackage() tea.Msg {
	pkg, err := loader.LoadPackage(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, name := range pkg.HAT.FunctionNames() {
		fn, err := pkg.HAT.Function(name)
		if err != nil {
			continue
		}
		funcs = append(funcs, funcInfo{name: name, signature: signature(fn)})
	}
	return loadedMsg{pkg: pkg, funcs: funcs}
}

func signature(fn *schema.Function) string {
	var params []string
	for _, p := range fn.Arguments {
		params = append(params, p.Name+": "+typeStyle.Render(paramType(&p)))
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if !fn.Return.IsVoid() {
		sig += " -> " + typeStyle.Render(paramType(&fn.Return))
	}
	return sig
}

func paramType(p *schema.Parameter) string {
	switch p.LogicalType {
	case schema.AffineArray:
		dims := make([]string, len(p.Shape))
		for i, d := range p.Shape {
			dims[i] = strconv.FormatInt(d, 10)
		}
		return fmt.Sprintf("%s[%s]", p.ElementType, strings.Join(dims, "x"))
	case schema.RuntimeArray:
		return fmt.Sprintf("%s[%s]", p.ElementType, p.Size)
	default:
		return string(p.ElementType)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateRunning {
				return m, nil
			}
			if m.pkg != nil {
				m.pkg.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				m.state = stateEditOptions

			case stateEditOptions:
				m.applyInputs()
				m.state = stateRunning
				return m, m.runBenchmark

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = nil
				m.err = nil
			}

		case "tab":
			if m.state == stateEditOptions && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateEditOptions:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pkg = msg.pkg
		m.funcs = msg.funcs

	case benchDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateEditOptions {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	fields := []struct {
		prompt string
		value  string
	}{
		{"min iterations: ", strconv.FormatInt(m.opts.MinIterations, 10)},
		{"min time (sec): ", strconv.FormatFloat(m.opts.MinTime.Seconds(), 'g', -1, 64)},
		{"working set (MB): ", strconv.FormatInt(m.opts.MinWorkingSetBytes>>20, 10)},
	}
	m.inputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = f.prompt
		ti.SetValue(f.value)
		ti.Width = 20
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) applyInputs() {
	if v, err := strconv.ParseInt(m.inputs[0].Value(), 10, 64); err == nil && v > 0 {
		m.opts.MinIterations = v
	}
	if v, err := strconv.ParseFloat(m.inputs[1].Value(), 64); err == nil && v >= 0 {
		m.opts.MinTime = time.Duration(v * float64(time.Second))
	}
	if v, err := strconv.ParseInt(m.inputs[2].Value(), 10, 64); err == nil && v >= 0 {
		m.opts.MinWorkingSetBytes = v << 20
	}
	m.inputs = nil
}

func (m *interactiveModel) runBenchmark() tea.Msg {
	f := m.funcs[m.selected]

	fn, sym, err := m.pkg.Function(f.name)
	if err != nil {
		return benchDoneMsg{err: err}
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	plan, err := bind.Resolve(fn, bind.SynthesizeDims(fn, rng))
	if err != nil {
		return benchDoneMsg{err: err}
	}

	res, err := bench.Run(context.Background(), sym, plan, m.opts)
	return benchDoneMsg{result: res, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return failStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading package..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("HAT Benchmark"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to benchmark:\n\n")
		for i, f := range m.funcs {
			line := nameStyle.Render(f.name) + f.signature
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.name + f.signature))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter configure • q quit"))

	case stateEditOptions:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Benchmarking %s\n\n", nameStyle.Render(f.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateRunning:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Running %s...\n", nameStyle.Render(f.name)))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Results for %s:\n\n", nameStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		if m.result != nil {
			b.WriteString(resultStyle.Render(fmt.Sprintf(
				"iterations:          %d\nmean:                %s\nmedian of means:     %s\nmean of small means: %s\nrobust mean:         %s\nmin of means:        %s",
				m.result.Iterations,
				formatDuration(m.result.Mean),
				formatDuration(m.result.MedianOfMeans),
				formatDuration(m.result.MeanOfSmallMeans),
				formatDuration(m.result.RobustMean),
				formatDuration(m.result.MinOfMeans),
			)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(filename string, opts bench.Options) error {
	p := tea.NewProgram(newInteractiveModel(filename, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
