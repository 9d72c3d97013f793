// Package telegram is the user-facing side of the bot: saved-search
// management commands plus the outbound Sender used by the notifier.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wallawatch/wallawatch/internal/models"
	"github.com/wallawatch/wallawatch/internal/store"
)

type Bot struct {
	api   *tgbotapi.BotAPI
	store *store.Store
}

// NewBot creates the bot with a request-timeout-bounded HTTP client so a
// hung Telegram call cannot stall the scheduler loop.
func NewBot(token string, st *store.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Bot{api: api, store: st}, nil
}

// Start begins long polling for updates and handles them until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	go func() {
		for update := range updates {
			b.handleUpdate(ctx, update)
		}
	}()

	log.Printf("Telegram bot @%s listening", b.api.Self.UserName)
}

// SendMessage implements the notifier's Sender.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	switch {
	case strings.HasPrefix(text, "/start"):
		b.handleStart(ctx, userID, chatID, update.Message.From.UserName)
	case strings.HasPrefix(text, "/stop"):
		b.handleStop(ctx, userID, chatID)
	case strings.HasPrefix(text, "/buscar"):
		b.handleBuscar(ctx, userID, chatID, update.Message.From.UserName, text)
	case strings.HasPrefix(text, "/mis_busquedas"):
		b.handleMisBusquedas(ctx, userID, chatID)
	case strings.HasPrefix(text, "/help"):
		b.reply(chatID, helpText)
	default:
		b.reply(chatID, "Comando desconocido. Usa /help para ver los comandos disponibles.")
	}
}

const helpText = `Comandos:
/start - Activar el bot
/stop - Desactivar las alertas
/buscar <texto> [opciones] - Crear una búsqueda
/mis_busquedas - Listar y gestionar búsquedas

Opciones de /buscar:
• min=10 max=50 - límites de precio
• km=100 - radio de búsqueda
• envio - solo con envío disponible
• flexible - coincidencia flexible (cualquier palabra)
• omitir=roto,caja - palabras a excluir del título

Ejemplo:
/buscar iphone 13 min=200 max=450 envio omitir=roto,pantalla`

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64, username string) {
	if err := b.store.EnsureUser(ctx, userID, username); err != nil {
		log.Printf("[bot] ensure user: %v", err)
		b.reply(chatID, "❌ Error interno, inténtalo de nuevo.")
		return
	}
	if err := b.store.SetUserActive(ctx, userID, true); err != nil {
		log.Printf("[bot] activate user: %v", err)
	}
	b.reply(chatID, "✅ Bot activado. Usa /buscar <texto> para crear una búsqueda.")
}

func (b *Bot) handleStop(ctx context.Context, userID, chatID int64) {
	if err := b.store.SetUserActive(ctx, userID, false); err != nil {
		log.Printf("[bot] deactivate user: %v", err)
		b.reply(chatID, "❌ Error interno, inténtalo de nuevo.")
		return
	}
	b.reply(chatID, "⛔ Bot desactivado. No recibirás más alertas.")
}

func (b *Bot) handleBuscar(ctx context.Context, userID, chatID int64, username, text string) {
	args := strings.Fields(text)[1:]
	if len(args) == 0 {
		b.reply(chatID, "Uso: /buscar <texto> [min=10] [max=50] [km=100] [envio] [flexible] [omitir=a,b]")
		return
	}

	query, filters, err := parseBuscarArgs(args)
	if err != nil {
		b.reply(chatID, "❌ "+err.Error())
		return
	}
	if query == "" {
		b.reply(chatID, "❌ Falta el texto de la búsqueda.")
		return
	}

	if err := b.store.EnsureUser(ctx, userID, username); err != nil {
		log.Printf("[bot] ensure user: %v", err)
		b.reply(chatID, "❌ Error interno, inténtalo de nuevo.")
		return
	}
	id, err := b.store.Add(ctx, userID, query, filters)
	if err != nil {
		log.Printf("[bot] add search: %v", err)
		b.reply(chatID, "❌ No se pudo guardar la búsqueda.")
		return
	}

	confirm := fmt.Sprintf("🔎 Guardada búsqueda #%d: %s", id, query)
	if pretty := formatFiltersPretty(filters); pretty != "" {
		confirm += "\n" + pretty
	}
	b.reply(chatID, confirm)
}

// parseBuscarArgs splits "/buscar" arguments into free query text and
// key=value / flag options. Option tokens may appear anywhere after the
// command; everything else is query text.
func parseBuscarArgs(args []string) (string, models.FilterSet, error) {
	filters := models.DefaultFilters()
	var queryWords []string

	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case lower == "envio" || lower == "envío":
			filters.Shipping = true
		case lower == "flexible":
			filters.Strict = false
		case strings.HasPrefix(lower, "min="):
			v, err := strconv.ParseFloat(lower[len("min="):], 64)
			if err != nil || v < 0 {
				return "", filters, fmt.Errorf("valor no válido para min: %q", arg)
			}
			filters.Min = &v
		case strings.HasPrefix(lower, "max="):
			v, err := strconv.ParseFloat(lower[len("max="):], 64)
			if err != nil || v < 0 {
				return "", filters, fmt.Errorf("valor no válido para max: %q", arg)
			}
			filters.Max = &v
		case strings.HasPrefix(lower, "km="):
			v, err := strconv.Atoi(lower[len("km="):])
			if err != nil || v < 0 {
				return "", filters, fmt.Errorf("valor no válido para km: %q", arg)
			}
			filters.Km = &v
		case strings.HasPrefix(lower, "omitir=") || strings.HasPrefix(lower, "omit="):
			_, list, _ := strings.Cut(lower, "=")
			for _, w := range strings.Split(list, ",") {
				if w = strings.TrimSpace(w); w != "" {
					filters.Omit = append(filters.Omit, w)
				}
			}
		default:
			queryWords = append(queryWords, arg)
		}
	}

	if filters.Min != nil && filters.Max != nil && *filters.Max < *filters.Min {
		return "", filters, fmt.Errorf("max no puede ser menor que min")
	}
	return strings.Join(queryWords, " "), filters, nil
}

func (b *Bot) handleMisBusquedas(ctx context.Context, userID, chatID int64) {
	searches, err := b.store.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("[bot] list searches: %v", err)
		b.reply(chatID, "❌ Error interno, inténtalo de nuevo.")
		return
	}
	if len(searches) == 0 {
		b.reply(chatID, "📭 No tienes búsquedas guardadas.")
		return
	}

	b.reply(chatID, "📋 Tus búsquedas guardadas\nPulsa los botones para gestionarlas")
	for _, ss := range searches {
		msg := tgbotapi.NewMessage(chatID, searchSummary(ss))
		msg.ReplyMarkup = manageKeyboard(ss)
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("[bot] send search card: %v", err)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("[bot] answer callback: %v", err)
	}

	action, idStr, ok := strings.Cut(cq.Data, ":")
	if !ok {
		return
	}
	searchID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID

	switch action {
	case "del":
		if err := b.store.Delete(ctx, searchID, userID); err != nil {
			log.Printf("[bot] delete search: %v", err)
			b.editMessage(chatID, messageID, "❌ No encontré esa búsqueda.")
			return
		}
		b.editMessage(chatID, messageID, fmt.Sprintf("🗑️ Búsqueda %d eliminada.", searchID))
	case "toggle":
		if _, err := b.store.Toggle(ctx, searchID, userID); err != nil {
			log.Printf("[bot] toggle search: %v", err)
			b.editMessage(chatID, messageID, "❌ No encontré esa búsqueda.")
			return
		}
		searches, err := b.store.ListByUser(ctx, userID)
		if err != nil {
			log.Printf("[bot] reload searches: %v", err)
			return
		}
		for _, ss := range searches {
			if ss.ID == searchID {
				edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, searchSummary(ss), manageKeyboard(ss))
				if _, err := b.api.Send(edit); err != nil {
					log.Printf("[bot] edit search card: %v", err)
				}
				return
			}
		}
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		log.Printf("[bot] edit message: %v", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		log.Printf("[bot] send to %d: %v", chatID, err)
	}
}

func searchSummary(ss models.SavedSearch) string {
	estado := "🔴 Inactiva"
	if ss.Active {
		estado = "🟢 Activa"
	}
	text := fmt.Sprintf("#%d  🔎 %s\nEstado: %s", ss.ID, ss.Query, estado)
	if pretty := formatFiltersPretty(ss.Filters); pretty != "" {
		text += "\n" + pretty
	}
	return text
}

func manageKeyboard(ss models.SavedSearch) tgbotapi.InlineKeyboardMarkup {
	toggleText := "🟩 Activar"
	if ss.Active {
		toggleText = "🟥 Desactivar"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleText, fmt.Sprintf("toggle:%d", ss.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Borrar", fmt.Sprintf("del:%d", ss.ID)),
		),
	)
}

func formatFiltersPretty(f models.FilterSet) string {
	if f.Empty() {
		return ""
	}
	var lines []string
	if f.Min != nil {
		lines = append(lines, fmt.Sprintf("  💶 Min: %.2f €", *f.Min))
	}
	if f.Max != nil {
		lines = append(lines, fmt.Sprintf("  💰 Max: %.2f €", *f.Max))
	}
	if f.Km != nil {
		lines = append(lines, fmt.Sprintf("  📍 Distancia: %d km", *f.Km))
	}
	if f.Shipping {
		lines = append(lines, "  📦 Con envío")
	}
	modo := "Estricta"
	if !f.Strict {
		modo = "Flexible"
	}
	lines = append(lines, "  🎯 Coincidencia: "+modo)
	if len(f.Omit) > 0 {
		lines = append(lines, "  🚫 Omitir: "+strings.Join(f.Omit, ", "))
	}
	return "Filtros:\n" + strings.Join(lines, "\n")
}
