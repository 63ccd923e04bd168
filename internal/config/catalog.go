package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nova-arcade/internal/domain"
)

// Well-known mints.
const (
	SOLMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

const tokenListLogo = "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/"

// Catalog lists the supported tokens, games and battle modes.
type Catalog struct {
	Tokens      []domain.Token      `yaml:"tokens"`
	Games       []domain.Game       `yaml:"games"`
	BattleModes []domain.BattleMode `yaml:"battle_modes"`
}

// DefaultCatalog returns the built-in catalog. nagMint replaces the NAG
// entry mint when non-empty.
func DefaultCatalog(nagMint string) *Catalog {
	if nagMint == "" {
		nagMint = DefaultNAGMint
	}
	return &Catalog{
		Tokens: []domain.Token{
			{Symbol: "SOL", Name: "Solana", Mint: SOLMint, Decimals: 9, LogoURI: tokenListLogo + SOLMint + "/logo.png"},
			{Symbol: "USDC", Name: "USD Coin", Mint: USDCMint, Decimals: 6, LogoURI: tokenListLogo + USDCMint + "/logo.png"},
			{Symbol: "USDT", Name: "Tether USD", Mint: USDTMint, Decimals: 6, LogoURI: tokenListLogo + USDTMint + "/logo.svg"},
			{Symbol: "NAG", Name: "Nova Arcade Glitch", Mint: nagMint, Decimals: 6, LogoURI: "/nag-logo.png"},
		},
		Games: []domain.Game{
			{ID: "snake", Name: "Snake Classic", Emoji: "🐍", EntryUSDC: 5},
			{ID: "flappy", Name: "Flappy Nova", Emoji: "🐤", EntryUSDC: 5},
			{ID: "memory", Name: "Memory Match", Emoji: "🧠", EntryUSDC: 5},
			{ID: "bonk", Name: "Bonk Ryder", Emoji: "🏍️", EntryUSDC: 10},
			{ID: "pacman", Name: "PacCoin Rush", Emoji: "👾", EntryUSDC: 10},
			{ID: "tetris", Name: "TetraMem", Emoji: "🎮", EntryUSDC: 10},
		},
		BattleModes: []domain.BattleMode{
			{ID: "1v1", Name: "1v1 Duel", Emoji: "⚔️", EntryUSDC: 10, PrizeNAG: "180", Players: "2", Description: "Head-to-head, winner takes the pot"},
			{ID: "team", Name: "Team Battle", Emoji: "👥", EntryUSDC: 5, PrizeNAG: "90", Players: "4-8", Description: "Squad up and split the prize"},
			{ID: "tournament", Name: "Tournament", Emoji: "🏆", EntryUSDC: 50, PrizeNAG: "5000", Players: "16-64", Description: "Bracket elimination"},
			{ID: "propool", Name: "Pro Pool", Emoji: "💎", EntryUSDC: 100, PrizeNAG: "50K+", Players: "100+", Description: "High stakes leaderboard pool"},
		},
	}
}

// LoadCatalog reads a YAML catalog from path. An empty path returns the
// defaults. Sections missing from the file keep their defaults.
func LoadCatalog(path, nagMint string) (*Catalog, error) {
	cat := DefaultCatalog(nagMint)
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(data, cat)
}

func parseCatalog(data []byte, defaults *Catalog) (*Catalog, error) {
	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if len(file.Tokens) > 0 {
		defaults.Tokens = file.Tokens
	}
	if len(file.Games) > 0 {
		defaults.Games = file.Games
	}
	if len(file.BattleModes) > 0 {
		defaults.BattleModes = file.BattleModes
	}
	if err := defaults.validate(); err != nil {
		return nil, err
	}
	return defaults, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, t := range c.Tokens {
		if t.Symbol == "" || t.Mint == "" {
			return fmt.Errorf("catalog token %q: symbol and mint are required", t.Symbol)
		}
		if t.Decimals < 0 || t.Decimals > 18 {
			return fmt.Errorf("catalog token %s: decimals %d out of range", t.Symbol, t.Decimals)
		}
		if seen["t:"+t.Symbol] {
			return fmt.Errorf("catalog token %s: duplicate symbol", t.Symbol)
		}
		seen["t:"+t.Symbol] = true
	}
	for _, g := range c.Games {
		if g.ID == "" || seen["g:"+g.ID] {
			return fmt.Errorf("catalog game %q: empty or duplicate id", g.ID)
		}
		seen["g:"+g.ID] = true
	}
	for _, m := range c.BattleModes {
		if m.ID == "" || seen["m:"+m.ID] {
			return fmt.Errorf("catalog battle mode %q: empty or duplicate id", m.ID)
		}
		seen["m:"+m.ID] = true
	}
	return nil
}

// TokenBySymbol looks up a token by case-insensitive symbol.
func (c *Catalog) TokenBySymbol(symbol string) (domain.Token, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return domain.Token{}, false
}

// TokenByMint looks up a token by mint address.
func (c *Catalog) TokenByMint(mint string) (domain.Token, bool) {
	for _, t := range c.Tokens {
		if t.Mint == mint {
			return t, true
		}
	}
	return domain.Token{}, false
}

// ResolveToken accepts either a symbol or a mint address.
func (c *Catalog) ResolveToken(symbolOrMint string) (domain.Token, bool) {
	if t, ok := c.TokenBySymbol(symbolOrMint); ok {
		return t, true
	}
	return c.TokenByMint(symbolOrMint)
}

// Game looks up a game by id.
func (c *Catalog) Game(id string) (domain.Game, bool) {
	for _, g := range c.Games {
		if g.ID == id {
			return g, true
		}
	}
	return domain.Game{}, false
}

// BattleMode looks up a battle mode by id.
func (c *Catalog) BattleMode(id string) (domain.BattleMode, bool) {
	for _, m := range c.BattleModes {
		if m.ID == id {
			return m, true
		}
	}
	return domain.BattleMode{}, false
}
