// ABOUTME: Texts the bot sends to users
// ABOUTME: Kept together so wording can be reviewed in one place

package bot

import "strings"

const (
	msgStart = "Hi! I can remember stickers and your labels for them. " +
		"You can easily search and send your stickers with me. " +
		"Try it now! Send me a sticker you want to label."
	msgHelp = msgStart + "\n\n" +
		"/cancel stops labelling the current sticker.\n" +
		"Type @stickertaggerbot <label> in any chat to find your stickers."

	msgLabel   = "Great! Now, send me label(s). Labels must be separated by spaces."
	msgReLabel = "Please send your label(s) again."
	msgConfirm = "Label(s) received:\n"

	msgNotStarted    = "Please send a sticker to start labelling."
	msgStickerExists = "This sticker has already been labelled. " +
		"Please label another sticker. " +
		"Editing and viewing of labels are not yet supported."
	msgUnknown      = "An unknown error has occurred. Please try again later."
	msgRestart      = "You are still labelling another sticker. Finish it first, or send /cancel to start over."
	msgLabelMissing = "No labels were detected. Please send again. " +
		"Labels must be separated by spaces, tabs or line breaks."
	msgStale     = "That button belongs to an earlier sticker."
	msgCancelled = "Labelling cancelled. Send me a sticker to start again."
	msgSuccess   = "Your sticker is labelled! You can now use @stickertaggerbot <label> to find it"

	inlineNotStarted  = "You have not labelled any stickers."
	inlineStartButton = "Start"
	inlineNoResults   = "No results found."
	inlineChatToStart = "Chat with me to start labelling!"
	inlineChatToLabel = "Chat with me to label stickers!"
)

// confirmText lists the labels awaiting confirmation.
func confirmText(labels []string) string {
	return msgConfirm + strings.Join(labels, "\n")
}
