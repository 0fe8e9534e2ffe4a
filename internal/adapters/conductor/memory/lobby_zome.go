package memory

import (
	"github.com/bnema/condenser/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const lobbyInfoAnchor = "anchor:LOBBY_INFO"

var lobbyFns = map[string]zomeFn{
	"get_lobby_name": func(inv *invocation) (any, error) {
		var props domain.LobbyDnaProperties
		if err := msgpack.Unmarshal(inv.space.Modifiers.Properties, &props); err != nil {
			return nil, guest("Failed to read lobby dna properties from dna info: %s", err)
		}
		return props.Name, nil
	},

	"create_lobby_info": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.LobbyInfo](inv)
		if err != nil {
			return nil, err
		}
		if len(inv.links(lobbyInfoAnchor, "AnchorToLobbyInfo")) != 0 {
			return nil, guest("There is already a link from the LOBBY_INFO anchor. Only one link is allowed.")
		}
		record, err := inv.createEntry(domain.EntryTypeLobbyInfo, in)
		if err != nil {
			return nil, err
		}
		inv.createLink(lobbyInfoAnchor, record.ActionHash, "AnchorToLobbyInfo")
		return record, nil
	},
	"get_lobby_info": func(inv *invocation) (any, error) {
		links := inv.links(lobbyInfoAnchor, "AnchorToLobbyInfo")
		if len(links) == 0 {
			return nil, guest("There is no link pointing to the lobby info yet.")
		}
		return inv.latest(links[0].Target, "LobbyInfoUpdates"), nil
	},
	"update_lobby_info": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateLobbyInfoInput](inv)
		if err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeLobbyInfo, in.OriginalLobbyInfoHash, in.PreviousLobbyInfoHash, in.UpdatedLobbyInfo, "LobbyInfoUpdates")
	},

	"create_dna_recipe": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.DnaRecipe](inv)
		if err != nil {
			return nil, err
		}
		raw, err := msgpack.Marshal(in)
		if err != nil {
			return nil, guest("Failed to serialize DnaRecipe: %s", err)
		}
		if inv.getEntry(domain.NewHash(domain.HashKindEntry, raw)) != nil {
			return nil, guest("An entry for this DnaRecipe exists already.")
		}
		return inv.createListed(domain.EntryTypeDnaRecipe, in, "all_craving_recipes", "AllCravingRecipes")
	},
	"get_dna_recipe": func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.ActionHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.get(hash), nil
	},
	"get_all_craving_recipes": func(inv *invocation) (any, error) {
		return inv.linkedRecords(pathBase("all_craving_recipes"), "AllCravingRecipes"), nil
	},
}
