package bot

import (
	"errors"
	"fmt"

	"github.com/teragrab/teragrab/gate"
	"github.com/teragrab/teragrab/pipeline"
	"github.com/teragrab/teragrab/resolver"
	"github.com/teragrab/teragrab/utils"
)

const startText = `👋 Hello!

I am the <b>Terabox Downloader Bot</b> 🚀

Send me any valid Terabox video link (from <code>1024terabox.com</code>, <code>teraboxlink.com</code> or <code>terafileshare.com</code>) and I will download the video and send it directly to you.

<b>Before you start:</b>
1. Join our update channel if one is required (button below).
2. Use /get_token to get your access token.

Happy downloading!`

const helpText = `<b>How to use this bot</b>

1. Join the required channel if the bot asks you to.
2. Use /get_token to receive a token valid for %d hours.
3. Send a valid Terabox video link. Supported domains: <code>1024terabox.com</code>, <code>teraboxlink.com</code>, <code>terafileshare.com</code>.
4. The video is downloaded and sent back as an MP4 (up to 2 GiB).

If your token expires, run /get_token again. If you hit the spam cooldown, wait and retry.

<b>Admin commands</b>
/broadcast &lt;message&gt; — send a message to all bot users.`

const invalidLinkText = `❌ <b>Invalid input</b>
Please send a valid Terabox link from one of the supported domains:
• <code>1024terabox.com</code>
• <code>teraboxlink.com</code>
• <code>terafileshare.com</code>`

// decisionMessage maps a non-admitted gate result to its remediation text.
func decisionMessage(res gate.Result) string {
	switch res.Decision {
	case gate.NotSubscribed:
		return "🔒 <b>Subscription required</b>\nYou need to join our channel to use this bot. Join and try again."
	case gate.TokenMissing:
		return "❌ <b>Token required</b>\nYou need a valid token to download. Use /get_token first."
	case gate.TokenExpired:
		return "⏳ <b>Token expired</b>\nYour token has expired. Use /get_token to get a new one."
	case gate.RateLimited:
		return fmt.Sprintf("⏳ <b>Slow down</b>\nPlease wait %s before your next download.", utils.FormatDuration(res.RetryAfter))
	}
	return ""
}

// failureMessage maps a pipeline/resolver error to user-facing text.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, resolver.ErrUnsupportedDomain):
		return invalidLinkText
	case errors.Is(err, resolver.ErrUpstreamFormat):
		return "❌ <b>Resolution failed</b>\nTerabox seems to have changed their page format. The bot needs an update; please report this to an admin."
	case errors.Is(err, resolver.ErrUpstreamUnreachable):
		return "❌ <b>Resolution failed</b>\nCould not reach Terabox. The link might be invalid or private, or the service is down. Try again later."
	case errors.Is(err, pipeline.ErrSizeLimit):
		return "❌ <b>File too large</b>\nThe file exceeds the 2 GiB upload limit."
	case errors.Is(err, pipeline.ErrDownload):
		return "❌ <b>Download failed</b>\nA network error interrupted the transfer. You can retry by sending the link again."
	case errors.Is(err, pipeline.ErrUpload):
		return "❌ <b>Upload failed</b>\nThe video was downloaded but could not be sent. Please try again later."
	}
	return "❌ <b>Something went wrong</b>\nPlease try again later or contact an admin."
}
