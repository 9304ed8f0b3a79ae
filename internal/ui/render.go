package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/models"
)

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	debugColor     = lipgloss.Color("#9999ff")
	selectedColor  = lipgloss.Color("#222222")
	// Главный контейнер
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
)

const tableHeader = "  OWN FAV SYMBOL       PRICE         LOP           DIFF %   SIGNALS          HOOK"

// renderDataSection таблица состояний символов
func renderDataSection(statuses []models.SymbolStatus, selectedIndex int) string {
	header := headerStyle.Render("ДАННЫЕ")
	content := strings.Builder{}

	if len(statuses) == 0 {
		content.WriteString("  Ожидание данных...\n")
	} else {
		content.WriteString(tableHeader + "\n")
		for i, st := range statuses {
			prefix, style := "  ", rowStyle(st)
			if i == selectedIndex {
				prefix, style = "> ", style.Background(selectedColor)
			}
			content.WriteString(style.Render(prefix+formatStatusRow(st)) + "\n")
			if st.Error != "" {
				content.WriteString(lipgloss.NewStyle().Foreground(errorColor).Render("    "+st.Error) + "\n")
			}
		}
	}

	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			content.String(),
		),
	)
}

// formatStatusRow строка таблицы без оформления
func formatStatusRow(st models.SymbolStatus) string {
	return fmt.Sprintf("%-3s %-3s %-12s %-13s %-13s %-8s %-16s %s",
		yesNo(st.Owned),
		yesNo(st.InFavor),
		st.Symbol,
		formatPrice(st.CurrentPrice),
		formatPrice(st.LastOperationPrice),
		fmt.Sprintf("%+.2f", st.DifferencePercent),
		st.Signals,
		hookMarker(st),
	)
}

// hookMarker отметка взведенного хука
func hookMarker(st models.SymbolStatus) string {
	if !st.Hooked {
		return "-"
	}
	side := "BUY"
	if st.Owned {
		side = "SELL"
	}
	return fmt.Sprintf("%s @ %s", side, formatPrice(st.HookPrice))
}

func rowStyle(st models.SymbolStatus) lipgloss.Style {
	switch {
	case st.Error != "":
		return lipgloss.NewStyle().Foreground(warningColor)
	case st.InFavor:
		return lipgloss.NewStyle().Foreground(successColor)
	default:
		return lipgloss.NewStyle()
	}
}

func formatPrice(v float64) string {
	if v <= 0 {
		return "-"
	}
	return journal.FormatAmount(v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// renderTransactionsSection последние записи журнала сделок
func renderTransactionsSection(entries []journal.Entry, limit int) string {
	header := headerStyle.Render("ТРАНЗАКЦИИ")
	content := strings.Builder{}

	if len(entries) == 0 {
		content.WriteString("  Сделок пока нет\n")
	}
	start := max(0, len(entries)-limit)
	for _, e := range entries[start:] {
		line := fmt.Sprintf("  [%s] %s", e.Time.Format("02.01 15:04:05"), e.Message)
		switch e.Category {
		case journal.CategoryTrade:
			line = lipgloss.NewStyle().Foreground(successColor).Render(line)
		case journal.CategoryError:
			line = lipgloss.NewStyle().Foreground(errorColor).Render(line)
		case journal.CategoryHook, journal.CategoryIdle:
			line = lipgloss.NewStyle().Foreground(warningColor).Render(line)
		}
		content.WriteString(line + "\n")
	}

	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			content.String(),
		),
	)
}

func renderLogsSection(logs []string, limit int) string {
	header := headerStyle.Render("ЛОГИ")
	content := strings.Builder{}

	start := max(0, len(logs)-limit)
	for _, log := range logs[start:] {
		// Выделение по уровню логирования
		if strings.Contains(log, "[ERROR]") {
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		} else if strings.Contains(log, "[INFO]") {
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		} else if strings.Contains(log, "[WARN]") {
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		} else if strings.Contains(log, "[DEBUG]") {
			log = lipgloss.NewStyle().Foreground(debugColor).Render(log)
		}

		content.WriteString("  " + log + "\n")
	}

	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			content.String(),
		),
	)
}
