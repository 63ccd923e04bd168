package bot

import (
	"github.com/shopspring/decimal"
)

const welcomeText = `🎮 *Welcome to Nova Arcade Glitch, %s!*

%d Arcade Games | Battle Arena | Token Swaps

%s

_Play now, connect your wallet for unlimited access!_`

const trialLimitText = `*🔒 Trial Limit Reached*

You've used all 3 free trials!

*Connect your wallet to:*
✅ Play unlimited games
✅ Enter Battle Arena competitions
✅ Win NAG token prizes
✅ Track your stats on the leaderboard

_Holding NAG tokens unlocks unlimited play._`

const trialLimitShortText = `*🔒 Trial Limit Reached*

Connect your wallet to continue playing!`

const lastTrialText = `*%s*

Entry Fee: %s
⚠️ *This is your LAST free trial!*

After this game, connect your wallet to keep playing.`

const connectWalletText = `*🔗 Connect Your Wallet*

Open the app and connect Phantom, Solflare or any Solana wallet.

Wallet holders get unlimited plays, Battle Arena entries and NAG prizes.`

const whyConnectText = `*❓ Why Connect a Wallet?*

*Free trial users:*
• 3 plays per 24 hours
• No prizes

*Connected wallets:*
• Unlimited plays while holding NAG
• Battle Arena competitions
• NAG token prizes
• Leaderboard ranking

Your wallet is only used to sign in and check balances. We never ask for your seed phrase.`

const helpText = `*🎮 Nova Arcade Glitch Help*

*Commands:*
/start - Welcome and trial status
/menu - Main menu
/play - Choose a game
/battle - Battle Arena modes
/help - This message

*Free trials:* 3 plays every 24 hours.
*Unlimited:* connect a wallet holding NAG.`

// formatUSDC renders an amount like "5 USDC" or "2.5 USDC".
func formatUSDC(v float64) string {
	return decimal.NewFromFloat(v).String() + " USDC"
}

// formatPrice renders a USD price with up to 6 decimals.
func formatPrice(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return d.StringFixed(2)
	}
	return d.Round(6).String()
}
