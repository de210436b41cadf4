package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/internal/timeline"
	"github.com/chris/railtl/pkg/models"
)

const (
	defaultReloadInterval = 15 * time.Second
	defaultIdleAfter      = 3 * time.Second
	actionTimeout         = 30 * time.Second
)

// Actions starts and stops services on the platform
type Actions interface {
	DeployService(ctx context.Context, serviceID, environmentID string) error
	RemoveDeployment(ctx context.Context, deploymentID string) error
}

// Refresher pulls a fresh project snapshot into the store
type Refresher interface {
	Sync(ctx context.Context) (*models.Project, error)
}

// ServiceRow is one service with its deployments in the visible range
type ServiceRow struct {
	Service models.Service
	// Latest is the newest deployment in the environment, visible or not
	Latest      *models.Deployment
	Deployments []models.Deployment
}

// Model represents the TUI state
type Model struct {
	store     db.Store
	projectID string
	actions   Actions
	refresher Refresher

	nav *timeline.Navigator

	// Data
	project    *models.Project
	envID      string
	envPref    string
	lastSynced time.Time

	// Selection
	selectedIdx int
	cursor      int

	// scrolling is set while the cursor is moved by hand and suppresses
	// re-centring on now until the idle timer fires
	scrolling bool
	scrollSeq int

	showHelp bool
	busy     bool
	status   string
	err      error

	// UI dimensions
	width  int
	height int

	focused bool

	reloadEvery time.Duration
	idleAfter   time.Duration
	zoom        timeline.ZoomLevel
	loc         *time.Location

	// For testing - allows injecting "now"
	now func() time.Time
}

// Option is a functional option for configuring the Model
type Option func(*Model)

// WithNow sets the function used to get the current time (for testing)
func WithNow(fn func() time.Time) Option {
	return func(m *Model) {
		m.now = fn
	}
}

// WithLocation sets the zone used for "today" and day columns
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithZoom sets the initial zoom level
func WithZoom(z timeline.ZoomLevel) Option {
	return func(m *Model) {
		m.zoom = z
	}
}

// WithEnvironment selects the initial environment by id or name
func WithEnvironment(env string) Option {
	return func(m *Model) {
		m.envPref = env
	}
}

// WithActions enables start/stop
func WithActions(a Actions) Option {
	return func(m *Model) {
		m.actions = a
	}
}

// WithRefresher makes "r" and post-action reloads sync from the platform
func WithRefresher(r Refresher) Option {
	return func(m *Model) {
		m.refresher = r
	}
}

// WithReloadInterval sets how often the store is re-read. Zero disables it.
func WithReloadInterval(d time.Duration) Option {
	return func(m *Model) {
		m.reloadEvery = d
	}
}

// WithIdleAfter sets how long after the last cursor move the cursor
// returns to following now
func WithIdleAfter(d time.Duration) Option {
	return func(m *Model) {
		m.idleAfter = d
	}
}

// New creates a new Model for a stored project
func New(store db.Store, projectID string, opts ...Option) *Model {
	m := &Model{
		store:       store,
		projectID:   projectID,
		focused:     true,
		reloadEvery: defaultReloadInterval,
		idleAfter:   defaultIdleAfter,
		zoom:        timeline.DefaultZoom,
		loc:         time.Local,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.nav = timeline.NewNavigator(
		timeline.WithClock(m.now),
		timeline.WithLocation(m.loc),
		timeline.WithZoom(m.zoom),
	)
	m.followNow()

	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadProject, m.tick())
}

// loadProject reads the project snapshot from the store
func (m *Model) loadProject() tea.Msg {
	p, err := m.store.GetProject(m.projectID)
	if err != nil {
		return errMsg{err}
	}
	synced, err := m.store.LastSynced(m.projectID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return errMsg{err}
	}
	return projectLoadedMsg{project: p, synced: synced}
}

func (m *Model) tick() tea.Cmd {
	if m.reloadEvery <= 0 {
		return nil
	}
	return tea.Tick(m.reloadEvery, func(t time.Time) tea.Msg {
		return reloadTickMsg(t)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.FocusMsg:
		m.focused = true
		return m, nil

	case tea.BlurMsg:
		m.focused = false
		return m, nil

	case projectLoadedMsg:
		m.applyProject(msg.project)
		m.lastSynced = msg.synced
		m.err = nil
		if !m.scrolling {
			m.followNow()
		}
		return m, nil

	case reloadTickMsg:
		return m, tea.Batch(m.loadProject, m.tick())

	case scrollIdleMsg:
		if int(msg) == m.scrollSeq {
			m.scrolling = false
		}
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = msg.status
		return m, m.refresh()

	case yankResultMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "URL copied"
		}
		return m, nil

	case errMsg:
		log.Error().Err(msg.err).Msg("tui load failed")
		m.busy = false
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// applyProject stores a snapshot and keeps the environment selection
// stable across reloads
func (m *Model) applyProject(p *models.Project) {
	m.project = p
	if m.selectedIdx >= len(p.Services) {
		m.selectedIdx = max(0, len(p.Services)-1)
	}

	envs := p.Environments
	if len(envs) == 0 {
		m.envID = ""
		return
	}
	if m.envIndex() >= 0 {
		return
	}
	m.envID = envs[0].ID
	for _, env := range envs {
		if m.envPref != "" && (env.ID == m.envPref || env.Name == m.envPref) {
			m.envID = env.ID
			break
		}
	}
}

func (m *Model) envIndex() int {
	if m.project == nil {
		return -1
	}
	for i, env := range m.project.Environments {
		if env.ID == m.envID {
			return i
		}
	}
	return -1
}

func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "h":
		m.nav.MoveLeft()
		m.afterNavigate()
		return m, nil

	case "l":
		m.nav.MoveRight()
		m.afterNavigate()
		return m, nil

	case "t":
		m.nav.ResetToToday()
		m.scrolling = false
		m.followNow()
		return m, nil

	case "+", "=":
		if m.nav.ZoomIn() {
			m.afterNavigate()
		}
		return m, nil

	case "-":
		if m.nav.ZoomOut() {
			m.afterNavigate()
		}
		return m, nil

	case "left":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, m.startScrolling()

	case "right":
		if m.cursor < len(m.Columns())-1 {
			m.cursor++
		}
		return m, m.startScrolling()

	case "enter":
		cols := m.Columns()
		if m.cursor >= len(cols) {
			return m, nil
		}
		target := cols[m.cursor].Time
		if m.nav.ZoomToTime(target) {
			m.cursorTo(target)
		}
		return m, nil

	case "j", "down":
		if m.project != nil && m.selectedIdx < len(m.project.Services)-1 {
			m.selectedIdx++
		}
		return m, nil

	case "k", "up":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case "tab":
		if m.project != nil && len(m.project.Environments) > 0 {
			next := (m.envIndex() + 1) % len(m.project.Environments)
			m.envID = m.project.Environments[next].ID
		}
		return m, nil

	case "s":
		return m, m.toggleSelected()

	case "y":
		row, ok := m.selectedRow()
		if !ok || row.Latest == nil || row.Latest.URL == nil {
			m.status = "no URL for this service"
			return m, nil
		}
		return m, yankToClipboard("https://" + *row.Latest.URL)

	case "r":
		m.status = "refreshing"
		return m, m.refresh()
	}

	return m, nil
}

// afterNavigate re-centres the cursor after the range changes
func (m *Model) afterNavigate() {
	if m.scrolling {
		m.cursor = min(m.cursor, max(0, len(m.Columns())-1))
		return
	}
	m.followNow()
}

// followNow puts the cursor on the column nearest now, or the first column
// when now is off-screen
func (m *Model) followNow() {
	now := m.now()
	if m.nav.Range().Contains(now) {
		m.cursorTo(now)
		return
	}
	m.cursor = 0
}

// cursorTo moves the cursor to the last column at or before t
func (m *Model) cursorTo(t time.Time) {
	m.cursor = 0
	for i, col := range m.Columns() {
		if col.Time.After(t) {
			break
		}
		m.cursor = i
	}
}

func (m *Model) startScrolling() tea.Cmd {
	m.scrolling = true
	m.scrollSeq++
	seq := m.scrollSeq
	return tea.Tick(m.idleAfter, func(time.Time) tea.Msg {
		return scrollIdleMsg(seq)
	})
}

// refresh syncs from the platform when possible, then reloads the store
func (m *Model) refresh() tea.Cmd {
	if m.refresher == nil {
		return m.loadProject
	}
	refresher := m.refresher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if _, err := refresher.Sync(ctx); err != nil {
			return errMsg{err}
		}
		return m.loadProject()
	}
}

// toggleSelected stops a running service or starts a stopped one
func (m *Model) toggleSelected() tea.Cmd {
	if m.actions == nil {
		m.status = "start/stop needs an API token"
		return nil
	}
	if m.busy {
		return nil
	}
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}

	actions := m.actions
	envID := m.envID
	m.busy = true

	if row.Latest != nil && row.Latest.IsRunning() {
		deploymentID := row.Latest.ID
		name := row.Service.Name
		m.status = "stopping " + name
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
			defer cancel()
			if err := actions.RemoveDeployment(ctx, deploymentID); err != nil {
				return actionDoneMsg{err: fmt.Errorf("stop %s: %w", name, err)}
			}
			return actionDoneMsg{status: "stopped " + name}
		}
	}

	serviceID := row.Service.ID
	name := row.Service.Name
	m.status = "starting " + name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := actions.DeployService(ctx, serviceID, envID); err != nil {
			return actionDoneMsg{err: fmt.Errorf("start %s: %w", name, err)}
		}
		return actionDoneMsg{status: "started " + name}
	}
}

// Columns returns the columns of the visible range
func (m *Model) Columns() []timeline.Column {
	cols, err := timeline.Intervals(m.nav.Start(), m.nav.End(), m.nav.Zoom())
	if err != nil {
		return nil
	}
	return cols
}

// Rows returns one row per service in the selected environment, each with
// the deployments overlapping the visible range
func (m *Model) Rows() []ServiceRow {
	if m.project == nil {
		return nil
	}
	rng := m.nav.Range()
	now := m.now()

	rows := make([]ServiceRow, 0, len(m.project.Services))
	for _, svc := range m.project.Services {
		all := m.project.ServiceDeployments(svc.ID, m.envID)
		row := ServiceRow{Service: svc, Deployments: timeline.Visible(all, rng, now)}
		if len(all) > 0 {
			row.Latest = &all[0]
		}
		rows = append(rows, row)
	}
	return rows
}

func (m *Model) selectedRow() (ServiceRow, bool) {
	rows := m.Rows()
	if m.selectedIdx < 0 || m.selectedIdx >= len(rows) {
		return ServiceRow{}, false
	}
	return rows[m.selectedIdx], true
}

// View implements tea.Model
func (m *Model) View() string {
	return m.renderView()
}

// Messages
type projectLoadedMsg struct {
	project *models.Project
	synced  time.Time
}

type reloadTickMsg time.Time

type scrollIdleMsg int

type actionDoneMsg struct {
	status string
	err    error
}

type errMsg struct {
	err error
}

// Getters for testing
func (m *Model) Navigator() *timeline.Navigator {
	return m.nav
}

func (m *Model) SelectedIdx() int {
	return m.selectedIdx
}

func (m *Model) Cursor() int {
	return m.cursor
}

func (m *Model) Scrolling() bool {
	return m.scrolling
}

func (m *Model) EnvironmentID() string {
	return m.envID
}

func (m *Model) Project() *models.Project {
	return m.project
}

func (m *Model) Focused() bool {
	return m.focused
}

func (m *Model) Busy() bool {
	return m.busy
}

func (m *Model) Status() string {
	return m.status
}

func (m *Model) Err() error {
	return m.err
}

func (m *Model) ShowHelp() bool {
	return m.showHelp
}
