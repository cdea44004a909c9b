package config

// allKnownLocations はlocationDataから採取した既知の全拠点名（2025-04-19時点）。
var allKnownLocations = []string{
	"Bakers Basin - Real ID", "Bayonne - Real ID", "Camden - Real ID",
	"Cardiff  - Real ID", "Delanco - Real ID", "Eatontown - Real ID",
	"Edison - Real ID", "Elizabeth - Real ID", "Flemington - Real ID",
	"Freehold - Real ID", "Lodi - Real ID", "Manahawkin - Real ID",
	"Newark - Real ID", "Newton - Real ID", "North Bergen - Real ID",
	"Oakland - Real ID", "Paterson - Real ID", "Rahway - Real ID",
	"Randolph - Real ID", "Rio Grande - Real ID", "Runnemede - Real ID",
	"Salem - Real ID", "South Plainfield - Real ID", "Toms River - Real ID",
	"Vineland - Real ID", "Washington - Real ID", "Wayne - Real ID",
	"West Deptford - Real ID",
}

// defaultWatchLocations はWATCH_LOCATIONS未指定時の監視対象。
var defaultWatchLocations = []string{
	"Bayonne - Real ID",
	"North Bergen - Real ID",
	"Newark - Real ID",
}

// AllKnownLocations は既知の全拠点名のコピーを返す。
// 呼び出し側の変更がカタログ本体に波及しないようにする。
func AllKnownLocations() []string {
	out := make([]string, len(allKnownLocations))
	copy(out, allKnownLocations)
	return out
}

// DefaultWatchLocations はデフォルトの監視対象リストのコピーを返す。
func DefaultWatchLocations() []string {
	out := make([]string, len(defaultWatchLocations))
	copy(out, defaultWatchLocations)
	return out
}
