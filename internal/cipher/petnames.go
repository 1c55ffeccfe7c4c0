package cipher

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

var petAdjectives = []string{
	"able", "agile", "airy", "ancient", "arid", "balmy", "blithe", "brave",
	"brisk", "bronze", "candid", "cheery", "chill", "civil", "cozy", "curly",
	"dapper", "daring", "dewy", "dizzy", "eager", "early", "earthy", "elder",
	"fabled", "fancy", "feral", "fickle", "frank", "frosty", "gentle", "giddy",
	"glossy", "grand", "hardy", "hasty", "hollow", "humble", "icy", "idle",
	"jolly", "jumpy", "lanky", "lively", "lucky", "lunar", "merry", "misty",
	"nimble", "noble", "peppy", "plucky", "polar", "rustic", "rusty", "sandy",
	"serene", "snowy", "solar", "sunny", "tidy", "vivid", "wary", "witty",
}

var petNouns = []string{
	"acorn", "alder", "anchor", "badger", "beacon", "beetle", "bison", "bobcat",
	"canyon", "comet", "cricket", "cypress", "delta", "falcon", "ferret", "fjord",
	"gecko", "geyser", "glacier", "gopher", "harbor", "hornet", "ibis", "iguana",
	"island", "jackal", "juniper", "kestrel", "koala", "lagoon", "lantern", "lemur",
	"lynx", "magpie", "maple", "meadow", "meteor", "minnow", "narwhal", "nebula",
	"orchid", "osprey", "otter", "panda", "pebble", "pelican", "prairie", "puffin",
	"quail", "quartz", "raven", "reef", "salmon", "sparrow", "spruce", "summit",
	"thistle", "tundra", "turtle", "valley", "walrus", "willow", "wombat", "yak",
}

// Petname is a short human label for a hex public key, shown beside the key
// and never used in place of it. Equal keys get equal names whatever their
// hex spelling.
func Petname(publicKey string) string {
	seed := []byte(publicKey)
	if pub, err := DecodePublicKey(publicKey); err == nil {
		seed = crypto.FromECDSAPub(pub)
	}
	sum := crypto.Keccak256(seed)
	adj := binary.BigEndian.Uint16(sum[0:2]) % uint16(len(petAdjectives))
	noun := binary.BigEndian.Uint16(sum[2:4]) % uint16(len(petNouns))
	return petAdjectives[adj] + "-" + petNouns[noun]
}
