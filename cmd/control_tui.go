// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/anemostat/pkg/api"
	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/livebuffer"
	"github.com/Thermoquad/anemostat/pkg/logquery"
	"github.com/Thermoquad/anemostat/pkg/session"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxEventLogEntries = 100
	eventLogLines      = 8
	masterPanelWidth   = 34
)

// Focus states
const (
	focusMasterList = iota
	focusFrequency
	focusDateFilter
	focusLogTable
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// masterItem adapts a controller to the list component.
type masterItem struct {
	master blower.Master
}

// Implement list.Item interface
func (i masterItem) Title() string { return i.master.Name }
func (i masterItem) Description() string {
	if i.master.Location == "" {
		return i.master.IPAddress
	}
	return fmt.Sprintf("%s (%s)", i.master.IPAddress, i.master.Location)
}
func (i masterItem) FilterValue() string { return i.master.Name }

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx     context.Context
	sess    *session.Session
	api     *api.Client // nil without --api
	samples *livebuffer.Buffer[blower.TemperatureSample]

	// Broker link
	endpoint string
	link     session.LinkState
	linkErr  error

	// Latest telemetry
	device      *blower.DeviceStatus
	controller  *blower.ConnectionStatus
	temperature *blower.TemperatureSample
	parameters  *blower.BlowerParameters
	stats       session.Statistics

	// Controllers
	masterList list.Model

	// Blower control
	freqInput textinput.Model

	// Temperature history
	logs        *logquery.Coordinator
	logTable    table.Model
	dateInput   textinput.Model
	logsLoading bool

	// Event log
	eventLog      []eventLogEntry
	maxLogEntries int

	// UI state
	focusedField int
	styles       tuiStyles
	width        int
	height       int
	quitting     bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type sessionEventMsg struct {
	event session.Event
}

type sessionStartMsg struct {
	err error
}

type mastersLoadedMsg struct {
	masters []blower.Master
	err     error
}

type logsLoadedMsg struct {
	query logquery.Query
	page  blower.TemperatureLogPage
	err   error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, sess *session.Session, client *api.Client, samples *livebuffer.Buffer[blower.TemperatureSample]) controlModel {
	// Frequency setpoint in hertz
	freq := textinput.New()
	freq.Placeholder = "35.00"
	freq.CharLimit = 8
	freq.Width = 10

	// History date filter
	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10
	date.Width = 12

	// Controller list
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	masterList := list.New([]list.Item{}, delegate, masterPanelWidth-4, 8)
	masterList.Title = "Controllers"
	masterList.SetShowStatusBar(false)
	masterList.SetShowHelp(false)
	masterList.SetFilteringEnabled(false)

	// History table
	logTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 24},
			{Title: "Temp", Width: 10},
			{Title: "Device", Width: 14},
			{Title: "Master", Width: 14},
			{Title: "Location", Width: 16},
		}),
		table.WithHeight(logquery.PageSize+1),
	)

	return controlModel{
		ctx:           ctx,
		sess:          sess,
		api:           client,
		samples:       samples,
		endpoint:      sess.Endpoint(),
		link:          sess.State(),
		stats:         *session.NewStatistics(),
		masterList:    masterList,
		freqInput:     freq,
		logs:          logquery.New(),
		logTable:      logTable,
		dateInput:     date,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: maxEventLogEntries,
		focusedField:  focusMasterList,
		styles:        newTUIStyles(),
		width:         100,
		height:        40,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		controlTickCmd(),
		startSessionCmd(m.ctx, m.sess),
	}
	if m.api != nil {
		cmds = append(cmds, loadMastersCmd(m.ctx, m.api), loadLogsCmd(m.ctx, m.api, m.logs.CurrentQuery()))
	}
	return tea.Batch(cmds...)
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func startSessionCmd(ctx context.Context, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		return sessionStartMsg{err: sess.Start(ctx)}
	}
}

// sendCommandCmd publishes off the UI goroutine. The outcome comes back as a
// CommandSent or CommandRejected session event.
func sendCommandCmd(sess *session.Session, cmd blower.Command) tea.Cmd {
	return func() tea.Msg {
		_ = sess.SendCommand(cmd)
		return nil
	}
}

func loadMastersCmd(ctx context.Context, client *api.Client) tea.Cmd {
	return func() tea.Msg {
		masters, err := client.Masters(ctx)
		return mastersLoadedMsg{masters: masters, err: err}
	}
}

func loadLogsCmd(ctx context.Context, client *api.Client, q logquery.Query) tea.Cmd {
	return func() tea.Msg {
		page, err := client.TemperatureLogs(ctx, q)
		return logsLoadedMsg{query: q, page: page, err: err}
	}
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := m.handleKeyMsg(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.stats = m.sess.Snapshot().Stats
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case sessionStartMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Cannot start session: %v", msg.err), true)
		}

	case sessionEventMsg:
		m.applyEvent(msg.event)

	case mastersLoadedMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Cannot load controllers: %v", msg.err), true)
			break
		}
		m.setMasters(msg.masters)
		m.addLogEntry(fmt.Sprintf("Loaded %d controller(s)", len(msg.masters)), false)

	case logsLoadedMsg:
		return m, m.applyLogs(msg)
	}

	// Update child components
	var cmd tea.Cmd
	switch m.focusedField {
	case focusFrequency:
		m.freqInput, cmd = m.freqInput.Update(msg)
		cmds = append(cmds, cmd)
	case focusDateFilter:
		m.dateInput, cmd = m.dateInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	switch key {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit

	case "tab":
		return m.cycleFocus(1)

	case "shift+tab":
		return m.cycleFocus(-1)

	case "enter":
		return m.handleEnter()

	case "esc":
		if m.focusedField == focusDateFilter {
			m.dateInput.Reset()
			return m.queryLogs(m.logs.ClearDateFilter())
		}
		return nil
	}

	if !m.inputFocused() {
		switch key {
		case "q":
			m.quitting = true
			return tea.Quit
		case "o":
			return sendCommandCmd(m.sess, blower.BlowerOn{})
		case "x":
			return sendCommandCmd(m.sess, blower.BlowerOff{})
		case "d":
			return sendCommandCmd(m.sess, blower.DisconnectMaster{})
		case "r":
			return m.refresh()
		case "up", "k", "down", "j":
			if m.focusedField == focusMasterList {
				m.masterList, _ = m.masterList.Update(msg)
			}
			if m.focusedField == focusLogTable {
				m.logTable, _ = m.logTable.Update(msg)
			}
			return nil
		case "left", "p":
			if m.focusedField == focusLogTable && m.logs.HasPrev() {
				return m.queryLogs(m.logs.PrevPage())
			}
			return nil
		case "right", "n":
			if m.focusedField == focusLogTable && m.logs.HasNext() {
				return m.queryLogs(m.logs.NextPage())
			}
			return nil
		}
		return nil
	}

	// Pass through to focused input
	var cmd tea.Cmd
	switch m.focusedField {
	case focusFrequency:
		m.freqInput, cmd = m.freqInput.Update(msg)
	case focusDateFilter:
		m.dateInput, cmd = m.dateInput.Update(msg)
	}
	return cmd
}

func (m *controlModel) inputFocused() bool {
	return m.focusedField == focusFrequency || m.focusedField == focusDateFilter
}

func (m *controlModel) cycleFocus(delta int) tea.Cmd {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	// History panels need the REST API
	if m.api == nil && (m.focusedField == focusDateFilter || m.focusedField == focusLogTable) {
		if delta > 0 {
			m.focusedField = focusMasterList
		} else {
			m.focusedField = focusFrequency
		}
	}

	m.freqInput.Blur()
	m.dateInput.Blur()
	m.logTable.Blur()

	switch m.focusedField {
	case focusFrequency:
		return m.freqInput.Focus()
	case focusDateFilter:
		return m.dateInput.Focus()
	case focusLogTable:
		m.logTable.Focus()
	}
	return nil
}

func (m *controlModel) handleEnter() tea.Cmd {
	switch m.focusedField {
	case focusMasterList:
		// Enter toggles the backend's controller link
		if m.controller != nil && m.controller.Status == blower.LinkConnected {
			m.addLogEntry(fmt.Sprintf("Disconnecting controller (master %d)", m.controller.MasterID), false)
			return sendCommandCmd(m.sess, blower.DisconnectMaster{})
		}
		item, ok := m.masterList.SelectedItem().(masterItem)
		if !ok {
			m.addLogEntry("No controller selected", true)
			return nil
		}
		m.addLogEntry("Connecting controller "+blower.FormatMaster(item.master), false)
		return sendCommandCmd(m.sess, blower.ConnectMaster{IPAddress: item.master.IPAddress})

	case focusFrequency:
		cmd, err := blower.ParseFrequency(m.freqInput.Value())
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid frequency: %v", err), true)
			return nil
		}
		m.freqInput.Reset()
		return sendCommandCmd(m.sess, cmd)

	case focusDateFilter:
		text := strings.TrimSpace(m.dateInput.Value())
		if text == "" {
			return m.queryLogs(m.logs.ClearDateFilter())
		}
		date, err := logquery.ParseDate(text)
		if err != nil {
			m.addLogEntry(err.Error(), true)
			return nil
		}
		return m.queryLogs(m.logs.SetDateFilter(date))
	}
	return nil
}

func (m *controlModel) refresh() tea.Cmd {
	if m.api == nil {
		m.addLogEntry("No API configured (use --api)", true)
		return nil
	}
	return tea.Batch(loadMastersCmd(m.ctx, m.api), m.queryLogs(m.logs.CurrentQuery()))
}

// queryLogs fetches q. Results for queries that are no longer current are
// dropped by the coordinator when they arrive.
func (m *controlModel) queryLogs(q logquery.Query) tea.Cmd {
	if m.api == nil {
		return nil
	}
	m.logsLoading = true
	return loadLogsCmd(m.ctx, m.api, q)
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	st := m.styles
	var s strings.Builder

	// Header
	s.WriteString(st.title.Render("ANEMOSTAT CONTROL"))
	s.WriteString(" ")
	s.WriteString(st.header.Render(fmt.Sprintf("| %s | ", m.endpoint)))
	s.WriteString(m.renderLinkState())
	s.WriteString(st.header.Render(" | q=quit Tab=switch r=refresh"))
	s.WriteString("\n")
	if !m.stats.StartTime.IsZero() {
		s.WriteString(fmt.Sprintf(" %s %s",
			st.label.Render("Session:"),
			st.value.Render(formatUptime(time.Since(m.stats.StartTime)))))
	}
	s.WriteString("\n\n")

	// Layout: left panel (controllers) | right panel (blower)
	rightWidth := m.width - masterPanelWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := st.box.Width(masterPanelWidth)
	if m.focusedField == focusMasterList {
		listStyle = st.focusedBox.Width(masterPanelWidth)
	}
	var masterPanel string
	if m.api == nil {
		masterPanel = listStyle.Render(st.header.Render("No API configured"))
	} else {
		masterPanel = listStyle.Render(m.masterList.View())
	}

	blowerStyle := st.box.Width(rightWidth)
	if m.focusedField == focusFrequency {
		blowerStyle = st.focusedBox.Width(rightWidth)
	}
	blowerPanel := blowerStyle.Render(m.renderBlowerPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, masterPanel, " ", blowerPanel))
	s.WriteString("\n")

	s.WriteString(m.renderTelemetry())
	s.WriteString("\n")
	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n")
	s.WriteString(m.renderHistory())
	s.WriteString("\n")
	s.WriteString(m.renderEventLog())

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderLinkState() string {
	st := m.styles
	switch m.link {
	case session.Connected:
		return st.value.Render(m.link.String())
	case session.Connecting:
		return st.warning.Render(m.link.String() + "...")
	case session.Failed:
		return st.err.Render(m.link.String())
	}
	return st.header.Render(m.link.String())
}

func (m controlModel) renderBlowerPanel() string {
	st := m.styles
	var s strings.Builder

	power := blower.NotAvailable
	if m.device != nil {
		power = string(m.device.Status)
	}
	s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render("Blower:"), st.value.Render(power)))

	controller := blower.NotAvailable
	if m.controller != nil {
		controller = fmt.Sprintf("%s (master %d)", m.controller.Status, m.controller.MasterID)
	}
	s.WriteString(fmt.Sprintf("%s %s\n\n", st.label.Render("Controller:"), st.value.Render(controller)))

	s.WriteString(st.label.Render("Frequency (Hz): "))
	if m.focusedField == focusFrequency {
		s.WriteString(m.freqInput.View())
	} else {
		// Show as plain text when not focused
		val := m.freqInput.Value()
		if val == "" {
			val = m.freqInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	on, off, disconnect := "[ o: On ]", "[ x: Off ]", "[ d: Disconnect ]"
	if m.device != nil && m.device.Status == blower.PowerOn {
		s.WriteString(st.button.Render(off))
	} else {
		s.WriteString(st.focusedButton.Render(on))
	}
	s.WriteString(" ")
	s.WriteString(st.button.Render(disconnect))

	if m.link != session.Connected {
		s.WriteString("\n")
		s.WriteString(st.warning.Render("Commands are rejected until the link is up"))
	}
	if m.link == session.Failed && m.linkErr != nil {
		s.WriteString("\n")
		s.WriteString(st.err.Render(m.linkErr.Error()))
	}
	return s.String()
}

func (m controlModel) renderTelemetry() string {
	st := m.styles
	var content strings.Builder
	content.WriteString(st.label.Render("TELEMETRY"))
	content.WriteString(" | ")

	content.WriteString(fmt.Sprintf("%s %s  ",
		st.label.Render("Temp:"),
		st.value.Render(blower.FormatSample(m.temperature))))

	if m.samples != nil {
		recent := m.samples.Snapshot()
		values := make([]float64, len(recent))
		for i, r := range recent {
			values[i] = r.Value
		}
		if len(values) > 0 {
			content.WriteString(st.spark.Render(sparkline(values)))
			content.WriteString("  ")
		}
	}

	content.WriteString(fmt.Sprintf("%s %s",
		st.label.Render("Blower:"),
		st.value.Render(blower.FormatParameters(m.parameters))))

	if m.temperature != nil && !m.temperature.Timestamp.IsZero() {
		content.WriteString(fmt.Sprintf("  %s %s",
			st.label.Render("At:"),
			st.header.Render(m.temperature.Timestamp.Clock())))
	}

	return st.box.Width(m.width - 4).Render(content.String())
}

func (m controlModel) renderStatisticsBar() string {
	st := m.styles
	var validPercent, errorPercent float64
	if m.stats.TotalMessages > 0 {
		validPercent = float64(m.stats.ValidMessages) * 100.0 / float64(m.stats.TotalMessages)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalMessages)
	}

	errText := st.value.Render("0.0%")
	if errorPercent > 0 {
		errText = st.err.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		st.label.Render("Total:"), st.value.Render(fmt.Sprintf("%d", m.stats.TotalMessages)),
		st.label.Render("Valid:"), st.value.Render(fmt.Sprintf("%.1f%%", validPercent)),
		st.label.Render("Errors:"), errText,
		st.label.Render("Rate:"), st.value.Render(fmt.Sprintf("%.1f msg/s", m.stats.MessageRate)),
		st.label.Render("Commands:"), st.value.Render(fmt.Sprintf("%d", m.stats.CommandsSent)),
	)

	return st.box.Width(m.width - 4).Render(content)
}

func (m controlModel) renderHistory() string {
	st := m.styles
	box := st.box
	if m.focusedField == focusDateFilter || m.focusedField == focusLogTable {
		box = st.focusedBox
	}

	var s strings.Builder
	s.WriteString(st.label.Render("HISTORY"))
	s.WriteString(" | ")

	if m.api == nil {
		s.WriteString(st.header.Render("No API configured (use --api)"))
		return box.Width(m.width - 4).Render(s.String())
	}

	s.WriteString(st.value.Render(m.logs.Label()))
	s.WriteString(fmt.Sprintf(" (%d records) | ", m.logs.TotalItems()))
	s.WriteString(st.label.Render("Date: "))
	if m.focusedField == focusDateFilter {
		s.WriteString(m.dateInput.View())
	} else {
		date := m.logs.CurrentQuery().Date.String()
		if date == "" {
			date = "all"
		}
		s.WriteString(fmt.Sprintf("[%s]", date))
	}
	if m.logsLoading {
		s.WriteString(" ")
		s.WriteString(st.warning.Render("loading..."))
	}
	s.WriteString("\n")
	s.WriteString(st.header.Render("←/→ page  enter apply date  esc clear date"))
	s.WriteString("\n")
	s.WriteString(m.logTable.View())

	return box.Width(m.width - 4).Render(s.String())
}

func (m controlModel) renderEventLog() string {
	st := m.styles
	var s strings.Builder
	s.WriteString(st.label.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := eventLogLines
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(st.header.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := st.warning
			if entry.isError {
				icon = "x"
				style = st.err
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				st.header.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return st.box.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) applyEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.LinkChanged:
		m.link = e.To
		m.linkErr = e.Err
		switch e.To {
		case session.Connected:
			m.addLogEntry(fmt.Sprintf("Connected to %s", m.endpoint), false)
		case session.Connecting:
			if e.From == session.Failed {
				m.addLogEntry("Reconnecting...", false)
			} else {
				m.addLogEntry(fmt.Sprintf("Connecting to %s", m.endpoint), false)
			}
		case session.Failed:
			m.addLogEntry(fmt.Sprintf("Connection failed: %v", e.Err), true)
		case session.Disconnected:
			m.addLogEntry("Disconnected", false)
		}

	case session.DeviceStatusUpdated:
		if m.device == nil || m.device.Status != e.Status.Status {
			m.addLogEntry(fmt.Sprintf("Blower is %s", e.Status.Status), false)
		}
		status := e.Status
		m.device = &status

	case session.ConnectionStatusUpdated:
		if m.controller == nil || m.controller.Status != e.Status.Status {
			m.addLogEntry(fmt.Sprintf("Controller link %s (master %d)", e.Status.Status, e.Status.MasterID), false)
		}
		status := e.Status
		m.controller = &status

	case session.TemperatureUpdated:
		sample := e.Sample
		m.temperature = &sample

	case session.BlowerParametersUpdated:
		params := e.Parameters
		m.parameters = &params

	case session.DecodeFailed:
		m.addLogEntry(fmt.Sprintf("Dropped message on %s: %v", e.Topic, e.Err), true)

	case session.CommandSent:
		m.addLogEntry(fmt.Sprintf("Sent %s", e.Command.Name()), false)

	case session.CommandRejected:
		m.addLogEntry(fmt.Sprintf("%s not sent: %v", e.Command.Name(), e.Err), true)
	}
}

// applyLogs hands a history result to the coordinator and returns a refetch
// when the page had to move back.
func (m *controlModel) applyLogs(msg logsLoadedMsg) tea.Cmd {
	current := msg.query == m.logs.CurrentQuery()

	if msg.err != nil {
		if current {
			m.logsLoading = false
			m.addLogEntry(fmt.Sprintf("Cannot load history: %v", msg.err), true)
		}
		return nil
	}

	switch m.logs.Apply(msg.query, msg.page) {
	case logquery.Stale:
		return nil
	case logquery.Clamped:
		m.updateLogTable()
		return m.queryLogs(m.logs.CurrentQuery())
	}

	m.logsLoading = false
	m.updateLogTable()
	return nil
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) setMasters(masters []blower.Master) {
	items := make([]list.Item, len(masters))
	for i, master := range masters {
		items[i] = masterItem{master: master}
	}
	m.masterList.SetItems(items)
}

func (m *controlModel) updateLogTable() {
	rows := m.logs.Rows()
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row{
			r.Timestamp.String(),
			blower.FormatTemperature(r.Value),
			r.DeviceName,
			r.MasterName,
			r.MasterLocation,
		}
	}
	m.logTable.SetRows(tableRows)
	m.logTable.SetCursor(0)
}

func (m *controlModel) updateListSize() {
	// Adjust list size based on terminal size
	listHeight := m.height / 4
	if listHeight < 6 {
		listHeight = 6
	}
	m.masterList.SetSize(masterPanelWidth-4, listHeight)
}
