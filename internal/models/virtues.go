package models

// AnchorCount is the fixed number of anchor nodes in the graph.
const AnchorCount = 19

// Virtue declares one anchor node. KeyRelations lists the 3 anchors this
// virtue is bootstrapped with edges to; the list is declarative configuration
// consumed by graph seeding and population initialization, not a runtime
// invariant.
type Virtue struct {
	ID           string
	Name         string
	KeyRelations [3]string
}

// Virtues is the static table of the 19 anchor nodes.
var Virtues = [AnchorCount]Virtue{
	{ID: "V1", Name: "courage", KeyRelations: [3]string{"V15", "V16", "V18"}},
	{ID: "V2", Name: "temperance", KeyRelations: [3]string{"V4", "V8", "V9"}},
	{ID: "V3", Name: "justice", KeyRelations: [3]string{"V5", "V16", "V17"}},
	{ID: "V4", Name: "prudence", KeyRelations: [3]string{"V2", "V12", "V19"}},
	{ID: "V5", Name: "honesty", KeyRelations: [3]string{"V3", "V16", "V19"}},
	{ID: "V6", Name: "compassion", KeyRelations: [3]string{"V10", "V13", "V14"}},
	{ID: "V7", Name: "gratitude", KeyRelations: [3]string{"V8", "V10", "V15"}},
	{ID: "V8", Name: "humility", KeyRelations: [3]string{"V2", "V7", "V17"}},
	{ID: "V9", Name: "patience", KeyRelations: [3]string{"V2", "V13", "V15"}},
	{ID: "V10", Name: "kindness", KeyRelations: [3]string{"V6", "V7", "V14"}},
	{ID: "V11", Name: "loyalty", KeyRelations: [3]string{"V3", "V17", "V18"}},
	{ID: "V12", Name: "diligence", KeyRelations: [3]string{"V1", "V4", "V18"}},
	{ID: "V13", Name: "forgiveness", KeyRelations: [3]string{"V6", "V9", "V10"}},
	{ID: "V14", Name: "generosity", KeyRelations: [3]string{"V6", "V7", "V10"}},
	{ID: "V15", Name: "hope", KeyRelations: [3]string{"V1", "V7", "V9"}},
	{ID: "V16", Name: "integrity", KeyRelations: [3]string{"V1", "V3", "V5"}},
	{ID: "V17", Name: "respect", KeyRelations: [3]string{"V3", "V8", "V11"}},
	{ID: "V18", Name: "responsibility", KeyRelations: [3]string{"V1", "V11", "V12"}},
	{ID: "V19", Name: "wisdom", KeyRelations: [3]string{"V4", "V5", "V8"}},
}

// VirtueIDs returns the anchor IDs in declaration order.
func VirtueIDs() []string {
	ids := make([]string, 0, AnchorCount)
	for _, v := range Virtues {
		ids = append(ids, v.ID)
	}
	return ids
}

// VirtueByID returns the virtue declaration for an anchor ID, if present.
func VirtueByID(id string) (Virtue, bool) {
	for _, v := range Virtues {
		if v.ID == id {
			return v, true
		}
	}
	return Virtue{}, false
}
