package domain

// DnaRecipe describes how to clone a craving cell. Lobbies register recipes so members can join.
type DnaRecipe struct {
	Title            string               `msgpack:"title" json:"title"`
	NetworkSeed      *string              `msgpack:"network_seed" json:"network_seed,omitempty"`
	Properties       CravingDnaProperties `msgpack:"properties" json:"properties"`
	OriginTime       *int64               `msgpack:"origin_time" json:"origin_time,omitempty"`
	MembraneProof    []byte               `msgpack:"membrane_proof" json:"membrane_proof,omitempty"`
	ResultingDnaHash DnaHash              `msgpack:"resulting_dna_hash" json:"resulting_dna_hash"`
}

func (r DnaRecipe) CloneRequest() CreateCloneCellRequest {
	modifiers := CloneModifiers{Properties: r.Properties}
	if r.NetworkSeed != nil {
		modifiers.NetworkSeed = *r.NetworkSeed
	}
	if r.OriginTime != nil {
		modifiers.OriginTime = *r.OriginTime
	}
	return CreateCloneCellRequest{
		RoleName:  RoleCraving,
		Modifiers: modifiers,
		Name:      r.Title,
	}
}

type LobbyInfo struct {
	Description     string  `msgpack:"description" json:"description"`
	UnenforcedRules *string `msgpack:"unenforced_rules" json:"unenforced_rules,omitempty"`
	LogoSrc         *string `msgpack:"logo_src" json:"logo_src,omitempty"`
	NetworkSeed     string  `msgpack:"network_seed" json:"network_seed"`
}

type UpdateLobbyInfoInput struct {
	OriginalLobbyInfoHash ActionHash `msgpack:"original_lobby_info_hash"`
	PreviousLobbyInfoHash ActionHash `msgpack:"previous_lobby_info_hash"`
	UpdatedLobbyInfo      LobbyInfo  `msgpack:"updated_lobby_info"`
}

type LobbyName = string

type LobbyDnaProperties struct {
	Name string `msgpack:"name" json:"name"`
}

func LobbyCloneRequest(name string, networkSeed string) CreateCloneCellRequest {
	return CreateCloneCellRequest{
		RoleName: RoleLobby,
		Modifiers: CloneModifiers{
			NetworkSeed: networkSeed,
			Properties:  LobbyDnaProperties{Name: name},
		},
		Name: name,
	}
}
