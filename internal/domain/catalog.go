package domain

// Token is a swappable SPL token.
type Token struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Mint     string `json:"mint" yaml:"mint"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
	LogoURI  string `json:"logoURI,omitempty" yaml:"logo_uri"`
}

// Game is an arcade game offered to players.
type Game struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Emoji     string  `json:"emoji" yaml:"emoji"`
	EntryUSDC float64 `json:"entryUsdc" yaml:"entry_usdc"`
}

// Title returns the display name prefixed with the emoji.
func (g Game) Title() string {
	if g.Emoji == "" {
		return g.Name
	}
	return g.Emoji + " " + g.Name
}

// BattleMode is a Battle Arena competition format.
type BattleMode struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Emoji       string  `json:"emoji" yaml:"emoji"`
	EntryUSDC   float64 `json:"entryUsdc" yaml:"entry_usdc"`
	PrizeNAG    string  `json:"prizeNag" yaml:"prize_nag"`
	Players     string  `json:"players" yaml:"players"`
	Description string  `json:"description" yaml:"description"`
}

// Title returns the display name prefixed with the emoji.
func (m BattleMode) Title() string {
	if m.Emoji == "" {
		return m.Name
	}
	return m.Emoji + " " + m.Name
}
