package application

import (
	"sort"

	"github.com/bnema/condenser/internal/domain"
)

// LobbyRef identifies a lobby that lists a craving.
type LobbyRef struct {
	Name    string            `json:"name"`
	Info    *domain.LobbyInfo `json:"info,omitempty"`
	DnaHash domain.DnaHash    `json:"dna_hash"`
}

// LobbyRecipes is the recipe list one lobby returned.
type LobbyRecipes struct {
	Lobby   LobbyRef
	Recipes []domain.DnaRecipe
}

// CrossIndexEntry is the first recipe seen for a craving and every lobby listing it.
type CrossIndexEntry struct {
	Recipe  domain.DnaRecipe `json:"recipe"`
	Lobbies []LobbyRef       `json:"lobbies"`
}

// CrossIndex maps a craving dna hash (base64) to the lobbies referencing it.
type CrossIndex map[string]CrossIndexEntry

// BuildCrossIndex groups recipes by the craving they produce. A lobby listing the same
// recipe twice appears twice.
func BuildCrossIndex(lobbies []LobbyRecipes) CrossIndex {
	index := CrossIndex{}
	for _, lobby := range lobbies {
		for _, recipe := range lobby.Recipes {
			key := recipe.ResultingDnaHash.B64()
			entry, ok := index[key]
			if !ok {
				entry = CrossIndexEntry{Recipe: recipe}
			}
			entry.Lobbies = append(entry.Lobbies, lobby.Lobby)
			index[key] = entry
		}
	}
	return index
}

// Keys returns the craving keys sorted by recipe title, then key.
func (c CrossIndex) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := c[keys[i]].Recipe.Title, c[keys[j]].Recipe.Title
		if ti != tj {
			return ti < tj
		}
		return keys[i] < keys[j]
	})
	return keys
}
