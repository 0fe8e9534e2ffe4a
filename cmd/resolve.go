package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/domain"
)

var errAmbiguousRef = errors.New("matches more than one cell, use its dna hash")

// matches reports whether ref names the cell, by dna hash or case-insensitive name.
func matches(ref string, dna domain.DnaHash, name string) bool {
	ref = strings.TrimSpace(ref)
	return ref == dna.B64() || strings.EqualFold(ref, strings.TrimSpace(name))
}

func pickOne[T any](kind string, ref string, found []T) (T, error) {
	var zero T
	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%s %q: %w", kind, ref, domain.ErrCellNotFound)
	case 1:
		return found[0], nil
	default:
		return zero, fmt.Errorf("%s %q: %w", kind, ref, errAmbiguousRef)
	}
}

func findCraving(store *application.CondenserStore, ref string) (*application.CravingStore, error) {
	var found []*application.CravingStore
	for _, craving := range store.InstalledCravings() {
		if matches(ref, craving.CellID().DnaHash, craving.Craving().Title) {
			found = append(found, craving)
		}
	}
	return pickOne("craving", ref, found)
}

func findLobby(store *application.CondenserStore, ref string) (*application.LobbyStore, error) {
	var found []*application.LobbyStore
	for _, lobby := range store.Lobbies() {
		if matches(ref, lobby.CellID().DnaHash, lobby.Name()) {
			found = append(found, lobby)
		}
	}
	return pickOne("group", ref, found)
}

func findAvailableCraving(store *application.CondenserStore, ref string) (application.AvailableCraving, error) {
	var found []application.AvailableCraving
	for _, craving := range store.AvailableCravings() {
		if matches(ref, craving.DnaHash, craving.Recipe.Title) {
			found = append(found, craving)
		}
	}
	return pickOne("available craving", ref, found)
}

func findDisabled(kind string, cells []domain.ClonedCell, ref string) (domain.ClonedCell, error) {
	var found []domain.ClonedCell
	for _, cell := range cells {
		if matches(ref, cell.CellID.DnaHash, cell.Name) {
			found = append(found, cell)
		}
	}
	return pickOne("disabled "+kind, ref, found)
}

func parseActionHash(raw string) (domain.ActionHash, error) {
	return domain.ParseHashOfKind(raw, domain.HashKindAction)
}
