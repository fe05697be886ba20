package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/ui/keyboard/inline"
)

const helpText = "Команды:\n" +
	"/subscribe <date> <from> <to> <fromHH:MM> <toHH:MM>\n" +
	"  где <from>/<to> — ЛИБО id (например 78/2), ЛИБО имя точки (Vilnius/Minsk)\n" +
	"  пример: /subscribe 01.09.2025 78 2 20:00 23:00\n" +
	"          /subscribe 01.09.2025 Vilnius Minsk 20:00 23:00\n" +
	"/subs — список подписок\n" +
	"/status — когда был последний сниф и какие были сохранённые результаты\n" +
	"/unsubscribe <id> — удалить подписку\n" +
	"/points [query] — показать доступные точки (или поиск)\n"

const noResultsText = "— нет сохранённых результатов (ещё не было подходящих рейсов)"

// telegramNotifier delivers monitor notifications as bot messages.
type telegramNotifier struct {
	b *bot.Bot
}

func (n *telegramNotifier) Send(ctx context.Context, chatID int64, text string) error {
	_, err := n.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func sendMessage(ctx context.Context, b *bot.Bot, chatID int64, msg string) error {
	for _, chunk := range splitMessage(msg, maxMessageLen) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			return err
		}
	}
	return nil
}

func sendButtonList(ctx context.Context, b *bot.Bot, chatID int64, names, data []string, text string, onSelect inline.OnSelect) error {
	kb := inline.New(b, inline.NoDeleteAfterClick())

	for i, name := range names {
		kb.Row().Button(name, []byte(data[i]), onSelect)
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	})
	return err
}

// ---- texts ----

func formatRoute(s Subscription) string {
	return fmt.Sprintf("%s %s(%s) → %s(%s)", s.DateStr, s.FromName, s.CityFromID, s.ToName, s.CityToID)
}

func formatSubscription(s Subscription) string {
	return fmt.Sprintf("#%d %s в %s–%s", s.ID, formatRoute(s), s.DepFromHHMM, s.DepToHHMM)
}

func formatNotification(s Subscription, matches []RouteOffer, isChange bool) string {
	header := "⏱ Периодический отчёт"
	if isChange {
		header = "⚡️ Обновление"
	}

	lines := []string{
		fmt.Sprintf("%s по подписке #%d:", header, s.ID),
		formatRoute(s),
		fmt.Sprintf("диапазон отправления %s–%s", s.DepFromHHMM, s.DepToHHMM),
		"",
	}
	for _, o := range matches {
		lines = append(lines, fmt.Sprintf("• %s → %s  (€%s, ⭐ %s)", o.Depart, o.Arrive, o.Price, o.Rating))
	}
	return strings.Join(lines, "\n")
}

// formatLastResults renders a stored fingerprint as a bullet list.
func formatLastResults(fp string) string {
	pairs := fingerprintPairs(fp)
	if len(pairs) == 0 {
		return noResultsText
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, fmt.Sprintf("• %s → %s", p[0], p[1]))
	}
	return strings.Join(lines, "\n")
}

func formatStatus(lastCheckTS, checksCount string, subs []Subscription) string {
	var header string
	if ts, ok := parseUnix(lastCheckTS); ok {
		if checksCount == "" {
			checksCount = "0"
		}
		header = fmt.Sprintf("Последняя проверка: %s\nВсего проверок: %s\n",
			time.Unix(ts, 0).Format("2006-01-02 15:04:05"), checksCount)
	} else {
		header = "Пока ни одной проверки не было.\n"
	}

	if len(subs) == 0 {
		return header + "\nПодписок нет."
	}

	chunks := []string{header, "Последние сохранённые результаты по твоим подпискам:"}
	for _, s := range subs {
		chunks = append(chunks, "\n"+formatSubscription(s)+"\n"+formatLastResults(s.LastHash))
	}
	return strings.Join(chunks, "\n")
}

func formatPoints(ps []Point) string {
	lines := make([]string, 0, len(ps))
	for _, p := range ps {
		lines = append(lines, fmt.Sprintf("• %s — id %s", p.Canonical, p.ID))
	}
	return "Доступные точки:\n" + strings.Join(lines, "\n")
}
