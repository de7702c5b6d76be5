package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zwiftdocs/zwobuild/config"
	"github.com/zwiftdocs/zwobuild/executor"
	"github.com/zwiftdocs/zwobuild/fs"
)

func main() {
	configPath := flag.String("f", config.DefaultConfigName, "Path to the target declaration file")
	dryRun := flag.Bool("n", false, "Print recipes without executing them")
	list := flag.Bool("list", false, "List declared targets and exit")
	format := flag.String("format", "table", "Output format for -list (table, json, yaml)")
	status := flag.Bool("status", false, "Interactive staleness inspector")
	flag.Parse()

	fsys := fs.RealFileSystem{}

	cfg, err := config.Load(fsys, *configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if *list {
		if !slices.Contains([]string{"table", "json", "yaml"}, *format) {
			log.Fatalf("Unknown -format value: %s", *format)
		}
		if err := listTargets(cfg, *format); err != nil {
			log.Fatalf("Error listing targets: %v", err)
		}
		return
	}

	orch := executor.NewOrchestrator(cfg, fsys, executor.RealCommandExecutor{}, executor.NewStatusManager())
	if err := orch.Initialize(); err != nil {
		log.Fatalf("Error initializing build: %v", err)
	}

	if *status {
		p := tea.NewProgram(initialModel(orch))
		if _, err := p.Run(); err != nil {
			log.Fatalf("Error running status view: %v", err)
		}
		return
	}

	orch.SetDryRun(*dryRun)

	names := flag.Args()
	if len(names) == 0 {
		names = []string{cfg.DefaultTarget()}
	}
	for _, name := range names {
		if err := orch.Build(name); err != nil {
			log.Fatalf("Error building target %s: %v", name, err)
		}
	}
}

type targetInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Phony      bool     `json:"phony,omitempty" yaml:"phony,omitempty"`
	Deps       []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	TargetDeps []string `json:"target_deps,omitempty" yaml:"target_deps,omitempty"`
}

func listTargets(cfg *config.Config, format string) error {
	infos := make([]targetInfo, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		tgt := cfg.Targets[name]
		deps := append([]string{}, tgt.Dependencies...)
		deps = append(deps, tgt.OptionalDependencies...)
		infos = append(infos, targetInfo{
			Name:       name,
			Phony:      tgt.Phony,
			Deps:       deps,
			TargetDeps: tgt.TargetDeps,
		})
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"default": cfg.DefaultTarget(),
			"targets": infos,
		})
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer func() { _ = encoder.Close() }()
		return encoder.Encode(map[string]interface{}{
			"default": cfg.DefaultTarget(),
			"targets": infos,
		})
	default:
		maxNameLen := 0
		for _, info := range infos {
			if len(info.Name) > maxNameLen {
				maxNameLen = len(info.Name)
			}
		}
		fmt.Println("Declared targets:")
		for _, info := range infos {
			padding := strings.Repeat(" ", maxNameLen-len(info.Name)+2)
			kind := ""
			if info.Phony {
				kind = " (phony)"
			}
			deps := append(append([]string{}, info.TargetDeps...), info.Deps...)
			depNote := ""
			if len(deps) > 0 {
				depNote = fmt.Sprintf("depends: %s", strings.Join(deps, ", "))
			}
			fmt.Printf("  %s%s%s%s\n", info.Name, padding, depNote, kind)
		}
		fmt.Printf("\nDefault: %s\n", cfg.DefaultTarget())
		return nil
	}
}

type model struct {
	viewport      viewport.Model
	detailView    viewport.Model
	orch          *executor.Orchestrator
	reports       []executor.TargetReport
	selectedIdx   int
	showingDetail bool
	done          bool
}

func initialModel(orch *executor.Orchestrator) *model {
	return &model{
		viewport:   viewport.New(160, 40),
		detailView: viewport.New(160, 20),
		orch:       orch,
		reports:    orch.Inspect(),
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if !m.showingDetail {
				m.selectedIdx = (m.selectedIdx - 1 + len(m.reports)) % len(m.reports)
			} else {
				m.detailView, cmd = m.detailView.Update(msg)
				cmds = append(cmds, cmd)
			}
		case "down", "j":
			if !m.showingDetail {
				m.selectedIdx = (m.selectedIdx + 1) % len(m.reports)
			} else {
				m.detailView, cmd = m.detailView.Update(msg)
				cmds = append(cmds, cmd)
			}
		case "enter", " ":
			m.showingDetail = !m.showingDetail
			if m.showingDetail {
				m.updateDetailView()
			}
		case "r":
			m.reports = m.orch.Inspect()
			if m.showingDetail {
				m.updateDetailView()
			}
		case "esc":
			m.showingDetail = false
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 1
		m.detailView.Width = msg.Width
		m.detailView.Height = msg.Height / 2
		return m, nil
	}

	m.viewport.SetContent(m.statusView())
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if m.done {
		return "Exiting...\n"
	}
	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	if m.showingDetail {
		sb.WriteString("\n\nPrerequisites:\n")
		sb.WriteString(m.detailView.View())
	}
	sb.WriteString("\n\033[1mPress q to quit, enter/space to toggle prerequisites, r to refresh, up/down or j/k to navigate\033[0m")
	return sb.String()
}

func (m *model) statusView() string {
	var sb strings.Builder
	sb.WriteString("zwobuild Target Status\n\n")

	staleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	freshStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	problemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("160"))

	for i, report := range m.reports {
		state := freshStyle.Render("up to date")
		switch {
		case report.Problem != "":
			state = problemStyle.Render("error")
		case report.Phony:
			state = staleStyle.Render("phony")
		case report.Stale:
			state = staleStyle.Render("stale")
		}

		prefix := "  "
		if i == m.selectedIdx {
			prefix = "> "
		}

		sb.WriteString(fmt.Sprintf(
			"%s%-40s | %-12s | %d prerequisite(s)\n",
			prefix,
			report.Name,
			state,
			len(report.Prereqs),
		))
	}

	return sb.String()
}

func (m *model) updateDetailView() {
	if m.selectedIdx >= len(m.reports) {
		return
	}
	report := m.reports[m.selectedIdx]

	var sb strings.Builder
	if report.Problem != "" {
		sb.WriteString(report.Problem + "\n")
	}
	if len(report.Prereqs) == 0 && report.Problem == "" {
		sb.WriteString("This target has no prerequisites")
	}
	for _, p := range report.Prereqs {
		if p.Missing {
			sb.WriteString(fmt.Sprintf("%-50s (missing)\n", p.Path))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-50s %s\n", p.Path, p.ModTime.Format("2006-01-02 15:04:05")))
	}

	m.detailView.SetContent(sb.String())
	m.detailView.GotoTop()
}
