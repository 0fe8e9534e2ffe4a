package domain

import "hash/fnv"

var nicknameColors = []string{
	"amaranth", "amber", "aquamarine", "azure", "beige", "black", "blue", "bronze",
	"brown", "chocolate", "coffee", "copper", "coral", "crimson", "cyan", "emerald",
	"fuchsia", "gold", "gray", "green", "indigo", "ivory", "jade", "lavender",
	"lime", "magenta", "maroon", "olive", "orange", "peach", "pink", "plum",
	"purple", "red", "rose", "ruby", "salmon", "sapphire", "silver", "tan",
	"teal", "turquoise", "violet", "white", "yellow",
}

var nicknameAnimals = []string{
	"aardvark", "albatross", "alligator", "alpaca", "ant", "armadillo", "badger", "bat",
	"bear", "beaver", "bison", "buffalo", "camel", "cat", "chameleon", "cheetah",
	"crane", "crow", "deer", "dolphin", "dove", "eagle", "elephant", "falcon",
	"ferret", "flamingo", "fox", "frog", "gazelle", "gecko", "giraffe", "gorilla",
	"hawk", "hedgehog", "heron", "hippo", "hyena", "ibis", "jaguar", "kangaroo",
	"koala", "lemur", "leopard", "lion", "llama", "lynx", "meerkat", "mole",
	"moose", "narwhal", "octopus", "otter", "owl", "panda", "panther", "parrot",
	"pelican", "penguin", "puffin", "rabbit", "raccoon", "raven", "salamander", "seal",
	"shark", "sloth", "sparrow", "squirrel", "swan", "tiger", "toucan", "turtle",
	"walrus", "weasel", "whale", "wolf", "wombat", "yak", "zebra",
}

// Nickname derives a stable "colour animal" pseudonym for an agent within one craving.
func Nickname(agent AgentPubKey, cravingTitle string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(agent.B64() + cravingTitle))
	sum := h.Sum64()

	color := nicknameColors[sum%uint64(len(nicknameColors))]
	animal := nicknameAnimals[(sum/uint64(len(nicknameColors)))%uint64(len(nicknameAnimals))]
	return color + " " + animal
}
