package content

// Persona is the audience framing a visitor can pick when the widget opens.
type Persona struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Framing is appended to the instruction envelope so the model can
	// front-load what this audience cares about.
	Framing string `json:"-"`
}

var personas = map[string]Persona{
	"recruiter": {
		ID:      "recruiter",
		Label:   "I'm a recruiter",
		Framing: `The visitor identified as a recruiter. Lead with career facts, role history, and availability. Keep the existential commentary to a minimum.`,
	},
	"engineer": {
		ID:      "engineer",
		Label:   "I'm a fellow engineer",
		Framing: `The visitor identified as a fellow engineer. Skip the pleasantries; go deep on stack, architecture opinions, and trade-offs when asked.`,
	},
	"curious": {
		ID:      "curious",
		Label:   "Just browsing",
		Framing: `The visitor is just browsing with no agenda. Career facts, technical opinions, gaming habits, and the cat are all fair topics.`,
	},
}

// GetPersona returns the persona for the given id. The second return is
// false when the id is empty or unknown; persona framing is optional.
func GetPersona(id string) (Persona, bool) {
	p, ok := personas[id]
	return p, ok
}

// PersonaLabels returns display labels keyed by persona id.
func PersonaLabels() map[string]string {
	labels := make(map[string]string, len(personas))
	for id, p := range personas {
		labels[id] = p.Label
	}
	return labels
}
