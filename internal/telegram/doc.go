// Package telegram adapts the Telegram Bot API, through telego, to the
// transport-neutral types of package bot.
//
// Client implements bot.Responder and Poll feeds long-polled updates to a
// dispatcher. Only messages, callback queries, inline queries and chosen
// inline results are requested; chosen inline results additionally require
// inline feedback to be enabled for the bot in BotFather.
package telegram
