package telegram

import (
	"fmt"
	"net/url"

	"github.com/go-telegram/bot/models"
)

const communityURL = "https://t.me/secco_community"

func playButton(text, webAppURL string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, WebApp: &models.WebAppInfo{URL: webAppURL}}
}

// MainKeyboard returns the welcome menu keyboard
func MainKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{playButton("🎮 Play SECCO Tap Game", webAppURL)},
			{{Text: "📊 My Stats", CallbackData: "stats"}},
			{{Text: "👥 Invite Friends", CallbackData: "referral"}},
			{{Text: "ℹ️ Help", CallbackData: "help"}},
		},
	}
}

// GameKeyboard returns a single launch button
func GameKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{playButton("🎮 Launch Game", webAppURL)},
		},
	}
}

// StatsKeyboard returns the keyboard under the stats message
func StatsKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{playButton("🎮 Continue Mining", webAppURL)},
			{
				{Text: "🔄 Refresh Stats", CallbackData: "stats"},
				{Text: "👛 Change Wallet", CallbackData: "wallet"},
			},
			{{Text: "⬅️ Back", CallbackData: "back"}},
		},
	}
}

// HelpKeyboard returns the keyboard under the help message
func HelpKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{playButton("🎮 Play Now", webAppURL)},
			{{Text: "📱 Join Community", URL: communityURL}},
		},
	}
}

// ReferralKeyboard returns a share button for the referral link
func ReferralKeyboard(link string) *models.InlineKeyboardMarkup {
	share := fmt.Sprintf("https://t.me/share/url?url=%s&text=%s",
		url.QueryEscape(link),
		url.QueryEscape("Join me in SECCO Tap Game! 🚀"),
	)
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📤 Share Link", URL: share}},
			{{Text: "⬅️ Back", CallbackData: "back"}},
		},
	}
}

// BackKeyboard returns a simple back button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ Back", CallbackData: "back"},
			},
		},
	}
}
