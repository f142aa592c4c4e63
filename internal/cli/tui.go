package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// explorerTheme holds the explorer's styles, drawn from a catppuccin flavor.
type explorerTheme struct {
	title  lipgloss.Style
	item   lipgloss.Style
	focus  lipgloss.Style
	cursor lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
	warn   lipgloss.Style
}

// themeNames lists the accepted --theme values.
var themeNames = []string{"latte", "frappe", "macchiato", "mocha"}

func flavorFromName(name string) (catppuccin.Flavor, error) {
	switch name {
	case "latte":
		return catppuccin.Latte, nil
	case "frappe":
		return catppuccin.Frappe, nil
	case "macchiato":
		return catppuccin.Macchiato, nil
	case "mocha", "":
		return catppuccin.Mocha, nil
	default:
		return nil, fmt.Errorf("unknown theme %q (want one of %s)", name, strings.Join(themeNames, ", "))
	}
}

func newExplorerTheme(f catppuccin.Flavor) explorerTheme {
	fg := func(c catppuccin.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex))
	}
	return explorerTheme{
		title:  fg(f.Mauve()).Bold(true),
		item:   fg(f.Overlay1()),
		focus:  fg(f.Teal()).Bold(true),
		cursor: fg(f.Green()),
		dim:    fg(f.Subtext0()),
		header: fg(f.Subtext1()).Bold(true),
		cell:   fg(f.Text()),
		border: fg(f.Surface1()),
		warn:   fg(f.Yellow()),
	}
}

// explorerKeys is the explorer's key map.
type explorerKeys struct {
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultExplorerKeys() explorerKeys {
	return explorerKeys{
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "move left")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "move right")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "expand/collapse")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload ratios")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k explorerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Toggle, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k explorerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Toggle},
		{k.Reload, k.Help, k.Quit},
	}
}

// pointsPerColumn maps layout points to terminal columns.
const pointsPerColumn = 3.0

// tuiCommand creates the interactive strip explorer.
func (c *CLI) tuiCommand() *cobra.Command {
	var (
		opts  stripOpts
		watch bool
		theme string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore a strip interactively",
		Long: `Explore a strip in the terminal.

  ←/→    move the focus (or the cursor while collapsed)
  space  expand the item under the cursor, or collapse
  r      re-read aspect ratios
  ?      show all keys
  q      quit

With --dir --watch, images added, removed or rewritten in the directory show
up in the strip as they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && opts.dir == "" {
				return fmt.Errorf("--watch requires --dir")
			}
			flavor, err := flavorFromName(theme)
			if err != nil {
				return err
			}
			return c.runTUI(cmd.Context(), cmd, &opts, watch, flavor)
		},
	}

	opts.bind(cmd.Flags())
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow changes to --dir")
	cmd.Flags().StringVar(&theme, "theme", "mocha", "color theme: "+strings.Join(themeNames, ", "))

	return cmd
}

func (c *CLI) runTUI(ctx context.Context, cmd *cobra.Command, opts *stripOpts, watch bool, flavor catppuccin.Flavor) error {
	env, err := c.newStrip(ctx, cmd.Flags(), opts)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newExplorerModel(ctx, env)
	m.theme = newExplorerTheme(flavor)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())

	if env.lib != nil {
		env.lib.OnChange(func(index int) { p.Send(ratioChangedMsg{index: index}) })
		if watch {
			logger := loggerFromContext(ctx)
			go func() {
				if err := env.lib.Watch(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("watch stopped", "dir", env.lib.Dir(), "error", err)
				}
			}()
		}
	}

	_, err = p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// explorerModel - Interactive strip explorer
// =============================================================================

// ratioChangedMsg reports a ratio the library learned, or
// [aspect.ListingChanged] when the directory listing changed.
type ratioChangedMsg struct{ index int }

// reloadedMsg is sent when a manual reload finishes.
type reloadedMsg struct{ err error }

type explorerModel struct {
	ctx    context.Context
	env    *stripEnv
	ctrl   *controller.Controller
	keys   explorerKeys
	help   help.Model
	theme  explorerTheme
	cursor int
	offset strip.Point
	status string
	err    error
}

func newExplorerModel(ctx context.Context, env *stripEnv) explorerModel {
	m := explorerModel{
		ctx:   ctx,
		env:   env,
		ctrl:  env.ctrl,
		keys:  defaultExplorerKeys(),
		help:  help.New(),
		theme: newExplorerTheme(catppuccin.Mocha),
	}
	if i, ok := m.ctrl.Style().FocusIndex(); ok {
		m.cursor = i
	}
	m.settle()
	return m
}

func (m explorerModel) Init() tea.Cmd {
	return nil
}

func (m explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Left):
			m.move(-1)
		case key.Matches(msg, m.keys.Right):
			m.move(1)
		case key.Matches(msg, m.keys.Toggle):
			m.toggle()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Reload):
			m.status = "reloading…"
			return m, m.reload()
		}
	case ratioChangedMsg:
		m.ratioChanged(msg.index)
	case reloadedMsg:
		m.err = msg.err
		m.status = "reloaded"
		if msg.err == nil {
			m.ctrl.RatioChanged(m.ctx, -1)
		}
	case tea.WindowSizeMsg:
		// Give the strip the terminal's width, in points.
		size := m.ctrl.Viewport()
		size.Width = float64(msg.Width) * pointsPerColumn
		m.err = m.ctrl.SetViewport(size)
		m.help.Width = msg.Width
	}
	m.settle()
	return m, nil
}

// move steps the focus when expanded, the cursor when collapsed.
func (m *explorerModel) move(delta int) {
	if next, ok := m.ctrl.Step(m.ctx, delta); ok {
		m.cursor = next
		return
	}
	if m.ctrl.Style().IsExpanded() {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), max(m.ctrl.ItemCount()-1, 0))
}

func (m *explorerModel) toggle() {
	if m.ctrl.Style().IsExpanded() {
		m.ctrl.Collapse(m.ctx)
		return
	}
	if m.ctrl.ItemCount() == 0 {
		return
	}
	m.err = m.ctrl.Expand(m.ctx, m.cursor)
}

func (m explorerModel) reload() tea.Cmd {
	lib := m.env.lib
	ctx := m.ctx
	if lib == nil {
		m.ctrl.Invalidate(ctx)
		return func() tea.Msg { return reloadedMsg{} }
	}
	return func() tea.Msg { return reloadedMsg{err: lib.Load(ctx)} }
}

func (m *explorerModel) ratioChanged(index int) {
	if index != aspect.ListingChanged {
		m.ctrl.RatioChanged(m.ctx, index)
		return
	}
	n := m.env.lib.Len()
	if err := m.ctrl.SetItemCount(n); err != nil {
		// The focus item is gone; collapse before shrinking.
		m.ctrl.Collapse(m.ctx)
		m.err = m.ctrl.SetItemCount(n)
	}
	m.cursor = min(m.cursor, max(n-1, 0))
	m.status = fmt.Sprintf("%d images", n)
}

// settle scrolls so the focus item, or the item under the cursor, is centered.
func (m *explorerModel) settle() {
	res, err := m.ctrl.Layout(m.ctx)
	if err != nil {
		m.err = err
		return
	}
	g, ok := res.Frame(m.cursor)
	if !ok {
		m.offset = strip.Point{}
		return
	}
	proposed := strip.Point{X: g.CenterX() - m.ctrl.Viewport().Width/2}
	p, err := m.ctrl.Settle(m.ctx, proposed)
	if err != nil {
		m.err = err
		return
	}
	m.offset = p
}

func (m explorerModel) View() string {
	var b strings.Builder

	b.WriteString(m.theme.title.Render("Pagestrip"))
	if m.env.lib != nil {
		b.WriteString(m.theme.dim.Render("  " + m.env.lib.Dir()))
	}
	b.WriteString("\n\n")

	res, err := m.ctrl.Layout(m.ctx)
	if err != nil {
		b.WriteString(m.theme.warn.Render(err.Error()))
		return b.String()
	}

	vp := m.ctrl.Viewport()
	b.WriteString(m.renderStrip(res, vp))
	b.WriteString("\n\n")

	window := strip.Rect{X: m.offset.X, Y: 0, Width: vp.Width, Height: math.Max(res.ContentHeight(), 1)}
	b.WriteString(m.renderVisible(res, res.ItemsIn(window)))
	b.WriteString("\n")

	info := fmt.Sprintf("  %s · offset %s · content %s pt",
		m.ctrl.Style(), formatPoints(m.offset.X), formatPoints(res.ContentWidth()))
	b.WriteString(m.theme.dim.Render(info))
	if m.status != "" {
		b.WriteString(m.theme.dim.Render(" · " + m.status))
	}
	if m.err != nil {
		b.WriteString("\n" + m.theme.warn.Render(m.err.Error()))
	}
	b.WriteString("\n\n" + m.help.View(m.keys))
	return b.String()
}

// renderStrip draws the visible part of the strip as one row of blocks.
func (m explorerModel) renderStrip(res strip.Result, vp strip.Size) string {
	focus, expanded := m.ctrl.Style().FocusIndex()
	cols := int(vp.Width / pointsPerColumn)
	if cols <= 0 {
		cols = 80
	}
	line := make([]string, cols)
	marks := make([]string, cols)
	for i := range line {
		line[i], marks[i] = " ", " "
	}

	for _, g := range res.Geometries() {
		from := int(math.Round((g.X - m.offset.X) / pointsPerColumn))
		to := int(math.Round((g.MaxX() - m.offset.X) / pointsPerColumn))
		style := m.theme.item
		if expanded && g.Index == focus {
			style = m.theme.focus
		}
		for col := max(from, 0); col < min(to, cols); col++ {
			line[col] = style.Render("█")
		}
		if g.Index == m.cursor {
			if mid := (from + to) / 2; mid >= 0 && mid < cols {
				marks[mid] = m.theme.cursor.Render("▲")
			}
		}
	}
	return strings.Join(line, "") + "\n" + strings.Join(marks, "")
}

// renderVisible lists the items intersecting the viewport.
func (m explorerModel) renderVisible(res strip.Result, visible []int) string {
	focus, expanded := m.ctrl.Style().FocusIndex()

	rows := make([][]string, 0, len(visible))
	for _, i := range visible {
		g, _ := res.Frame(i)
		ratio := "-"
		if r, ok := m.ratio(i); ok {
			ratio = strconv.FormatFloat(r, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatPoints(g.X),
			formatPoints(g.Width),
			ratio,
			m.env.name(i),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(m.theme.border).
		Headers("Item", "X", "Width", "Ratio", "Image").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return m.theme.header
			}
			if row < len(visible) {
				switch i := visible[row]; {
				case expanded && i == focus:
					return m.theme.focus
				case i == m.cursor:
					return m.theme.cursor
				}
			}
			return m.theme.cell
		})
	return t.Render()
}

func (m explorerModel) ratio(i int) (float64, bool) {
	if m.env.lib != nil {
		return m.env.lib.AspectRatio(i)
	}
	if r, ok := m.ctrl.Style().AspectRatioOverride(); ok {
		if f, _ := m.ctrl.Style().FocusIndex(); f == i {
			return r, true
		}
	}
	return 0, false
}
