package domain

import (
	"strings"

	"github.com/google/uuid"
)

var (
	labelAdjectives = []string{
		"amber", "brisk", "calm", "dusky", "eager", "faint", "gentle", "hazy",
		"icy", "jolly", "keen", "lucid", "misty", "nimble", "olive", "pale",
		"quiet", "rapid", "salty", "tidal", "umber", "vivid", "wary", "young",
		"zesty", "bold", "crisp", "deep", "early", "fleet", "grey", "hollow",
	}
	labelNouns = []string{
		"seal", "kelp", "tide", "reef", "gull", "wave", "shoal", "cove",
		"skerry", "otter", "puffin", "squid", "eddy", "spray", "dune", "fjord",
		"harbor", "inlet", "jetty", "krill", "lagoon", "mussel", "narrows", "orca",
		"plover", "quay", "rock", "swell", "tern", "urchin", "wrack", "bay",
	}
	labelVerbs = []string{
		"dives", "drifts", "glides", "hunts", "leaps", "naps", "rolls", "swims",
		"turns", "waits", "wades", "wanders", "basks", "bobs", "chases", "circles",
		"darts", "floats", "hides", "lingers", "lurks", "paddles", "rests", "roams",
		"sinks", "skims", "slides", "spins", "surfaces", "sweeps", "twists", "yawns",
	}
)

// HumanLabel derives a stable, readable label such as "calm-tidal-seal-dives"
// from a group UID.
func HumanLabel(uid uuid.UUID) string {
	words := []string{
		labelAdjectives[int(uid[0])%len(labelAdjectives)],
		labelAdjectives[int(uid[5])%len(labelAdjectives)],
		labelNouns[int(uid[10])%len(labelNouns)],
		labelVerbs[int(uid[15])%len(labelVerbs)],
	}
	return strings.Join(words, "-")
}
