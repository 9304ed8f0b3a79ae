package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// TransactionLog источник последних записей журнала
type TransactionLog interface {
	Recent() []journal.Entry
}

// TermUI представляет терминальный интерфейс
type TermUI struct {
	config  config.UIConfig
	journal TransactionLog
	logFile string // JSON-лог программы

	mu           sync.RWMutex
	program      *tea.Program
	statuses     []models.SymbolStatus
	transactions []journal.Entry
	logs         []string

	selectedIndex int
	width         int
	height        int
}

// Сообщения для обновления UI
type refreshMsg struct{}
type tickMsg time.Time

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI создает интерфейс. logFile - JSON-лог, который пишет pkg/logger.
func NewTermUI(cfg config.UIConfig, logFile string, transactions TransactionLog) *TermUI {
	return &TermUI{
		config:  cfg,
		journal: transactions,
		logFile: logFile,
		logs:    []string{"spothook запущен. Ожидание данных..."},
		width:   120,
		height:  40,
	}
}

// Update принимает состояния символов после цикла планировщика
func (ui *TermUI) Update(statuses []models.SymbolStatus) {
	ui.mu.Lock()
	ui.statuses = statuses
	if ui.selectedIndex >= len(statuses) {
		ui.selectedIndex = max(0, len(statuses)-1)
	}
	program := ui.program
	ui.mu.Unlock()

	// Send ждет цикл событий, поэтому вне блокировки
	if program != nil {
		program.Send(refreshMsg{})
	}
}

// Run блокирует до выхода из интерфейса или отмены ctx.
// Выход по клавише отменяет работу всего бота через cancel.
func (ui *TermUI) Run(ctx context.Context, cancel context.CancelFunc) error {
	defer cancel()

	ui.refresh()
	program := tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen(), tea.WithContext(ctx))
	ui.mu.Lock()
	ui.program = program
	ui.mu.Unlock()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (ui *TermUI) refreshRate() time.Duration {
	if ui.config.RefreshRate <= 0 {
		return time.Second
	}
	return time.Duration(ui.config.RefreshRate) * time.Millisecond
}

// refresh перечитывает журнал и лог программы
func (ui *TermUI) refresh() {
	var transactions []journal.Entry
	if ui.journal != nil {
		transactions = ui.journal.Recent()
	}

	logs, err := loadLogs(ui.logFile, maxLogLines)
	if err != nil {
		logger.Warn("Ошибка загрузки логов", zap.Error(err))
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()
	ui.transactions = transactions
	if len(logs) > 0 {
		ui.logs = logs
	}
}

func (m bubbleModel) tick() tea.Cmd {
	return tea.Tick(m.ui.refreshRate(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return m.tick()
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			m.ui.mu.Lock()
			m.ui.selectedIndex = max(0, m.ui.selectedIndex-1)
			m.ui.mu.Unlock()
		case "down":
			m.ui.mu.Lock()
			m.ui.selectedIndex = max(0, min(len(m.ui.statuses)-1, m.ui.selectedIndex+1))
			m.ui.mu.Unlock()
		case "r":
			m.ui.refresh()
		}

	case tea.WindowSizeMsg:
		m.ui.mu.Lock()
		m.ui.width = msg.Width
		m.ui.height = msg.Height
		m.ui.mu.Unlock()

	case tickMsg:
		m.ui.refresh()
		return m, m.tick()

	case refreshMsg:
		// Просто обновляем UI
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.mu.RLock()
	defer m.ui.mu.RUnlock()

	title := titleStyle.Render("spothook - Binance spot hook trader")
	data := renderDataSection(m.ui.statuses, m.ui.selectedIndex)
	transactions := renderTransactionsSection(m.ui.transactions, 8)
	logs := renderLogsSection(m.ui.logs, logsToShow(m.ui.height))
	footer := footerStyle.Render("Клавиши: ↑/↓ - навигация, R - перезагрузить логи, Q - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			data,
			"\n",
			transactions,
			"\n",
			logs,
			"\n",
			footer,
		),
	)
}

// logsToShow сколько строк лога помещается под таблицей
func logsToShow(height int) int {
	n := height - 30
	if n < 6 {
		return 6
	}
	return n
}
