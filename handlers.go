package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// handlers implements the bot commands on top of the store.
type handlers struct {
	store  *Store
	points *pointIndex
	logger *slog.Logger
}

func (h *handlers) register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "start", bot.MatchTypeCommand, h.startHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "subscribe", bot.MatchTypeCommand, h.subscribeHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "unsubscribe", bot.MatchTypeCommand, h.unsubscribeHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "subs", bot.MatchTypeCommand, h.subsHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "status", bot.MatchTypeCommand, h.statusHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "points", bot.MatchTypeCommand, h.pointsHandler)
}

func (h *handlers) reply(ctx context.Context, b *bot.Bot, update *models.Update, msg string) {
	if err := sendMessage(ctx, b, update.Message.Chat.ID, msg); err != nil {
		h.logger.Error("could not send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

// userID returns 0 when the sender is unknown (channel posts).
func userID(update *models.Update) int64 {
	if update.Message.From == nil {
		return 0
	}
	return update.Message.From.ID
}

// handle all non-command messages
func (h *handlers) messageHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, "Введите команду /start, чтобы начать.")
}

// when user typed `/start`
func (h *handlers) startHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.reply(ctx, b, update, "Привет! Я бот для слежения за билетами.\n"+helpText)
}

// when user typed `/subscribe <date> <from> <to> <fromHH:MM> <toHH:MM>`
func (h *handlers) subscribeHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.reply(ctx, b, update, "Формат:\n"+helpText)
		return
	}

	uid := userID(update)
	if uid == 0 {
		h.reply(ctx, b, update, "Не могу определить твоего пользователя.")
		return
	}

	ns, err := parseSubscribeArgs(uid, args, h.points)
	switch {
	case errors.Is(err, ErrUnknownPoint):
		h.reply(ctx, b, update, fmt.Sprintf("Не нашёл такую точку (%v)\nПодсказка: /points для списка точек.", err))
		return
	case errors.Is(err, ErrInvalidSubscribeArgs):
		h.reply(ctx, b, update, "Неверные аргументы. Пример: /subscribe 01.09.2025 78 2 20:00 23:00")
		return
	case err != nil:
		h.logger.Error("could not parse subscribe", "error", err)
		return
	}

	id, err := h.store.InsertSubscription(ns)
	if err != nil {
		h.logger.Error("could not insert subscription", "user_id", uid, "error", err)
		h.reply(ctx, b, update, "Не получилось сохранить подписку, попробуй позже.")
		return
	}

	h.logger.Info("subscription added", "sub_id", id, "user_id", uid)
	h.reply(ctx, b, update, fmt.Sprintf("✅ Подписка #%d добавлена:\n%s %s(%s) → %s(%s) в %s–%s",
		id, ns.DateStr, ns.FromName, ns.CityFromID, ns.ToName, ns.CityToID, ns.DepFromHHMM, ns.DepToHHMM))
}

// when user typed `/unsubscribe <id>`
func (h *handlers) unsubscribeHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.reply(ctx, b, update, "Укажи ID: /unsubscribe <id>")
		return
	}

	if strings.EqualFold(args[0], "all") {
		n, err := h.store.DeleteAllForOwner(userID(update))
		if err != nil {
			h.logger.Error("could not delete subscriptions", "user_id", userID(update), "error", err)
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("🗑 Удалено подписок: %d.", n))
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, b, update, "ID должен быть числом.")
		return
	}

	h.reply(ctx, b, update, h.unsubscribe(userID(update), id))
}

func (h *handlers) unsubscribe(uid, id int64) string {
	ok, err := h.store.DeleteSubscription(uid, id)
	if err != nil {
		h.logger.Error("could not delete subscription", "sub_id", id, "user_id", uid, "error", err)
		return "Не получилось удалить подписку, попробуй позже."
	}
	if !ok {
		return "Не нашёл такую подписку."
	}
	h.logger.Info("subscription removed", "sub_id", id, "user_id", uid)
	return fmt.Sprintf("🗑 Подписка #%d удалена.", id)
}

// when user typed `/subs`
func (h *handlers) subsHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	uid := userID(update)
	items, err := h.store.ListByOwner(uid)
	if err != nil {
		h.logger.Error("could not list subscriptions", "user_id", uid, "error", err)
		return
	}
	if len(items) == 0 {
		h.reply(ctx, b, update, "Подписок нет.")
		return
	}

	lines := make([]string, 0, len(items))
	names := make([]string, 0, len(items))
	buttonData := make([]string, 0, len(items))
	for _, s := range items {
		lines = append(lines, formatSubscription(s))
		names = append(names, fmt.Sprintf("🗑 Удалить #%d", s.ID))
		buttonData = append(buttonData, strconv.FormatInt(s.ID, 10))
	}

	chatID := update.Message.Chat.ID
	err = sendButtonList(ctx, b, chatID, names, buttonData, strings.Join(lines, "\n"),
		func(ctx context.Context, b *bot.Bot, _ models.MaybeInaccessibleMessage, data []byte) {
			id, err := strconv.ParseInt(string(data), 10, 64)
			if err != nil {
				h.logger.Error("bad unsubscribe button data", "data", string(data))
				return
			}
			if err := sendMessage(ctx, b, chatID, h.unsubscribe(uid, id)); err != nil {
				h.logger.Error("could not send reply", "chat_id", chatID, "error", err)
			}
		})
	if err != nil {
		h.logger.Error("could not send subscriptions", "chat_id", chatID, "error", err)
	}
}

// when user typed `/status`
func (h *handlers) statusHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	lastTS, err := h.store.GetMeta(metaLastCheckTS)
	if err != nil {
		h.logger.Error("could not read meta", "error", err)
		return
	}
	checks, err := h.store.GetMeta(metaChecksCount)
	if err != nil {
		h.logger.Error("could not read meta", "error", err)
		return
	}
	items, err := h.store.ListByOwner(userID(update))
	if err != nil {
		h.logger.Error("could not list subscriptions", "user_id", userID(update), "error", err)
		return
	}

	h.reply(ctx, b, update, formatStatus(lastTS, checks, items))
}

// when user typed `/points [query]`
func (h *handlers) pointsHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := strings.Join(commandArgs(update.Message.Text), " ")

	var found []Point
	if q == "" {
		found = h.points.List()
	} else {
		found = h.points.Search(q)
	}
	if len(found) == 0 {
		h.reply(ctx, b, update, "Ничего не нашёл. Попробуй /points без параметров.")
		return
	}

	h.reply(ctx, b, update, formatPoints(found))
}
