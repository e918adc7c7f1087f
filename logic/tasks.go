package logic

// TaskLocation is one of the fixed task stations on the map. The table
// is static and shared with clients at game start; the server does not
// track per-station completion.
type TaskLocation struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

var taskLocations = []TaskLocation{
	{ID: 1, Name: "Fix Wiring", X: 150, Y: 150},
	{ID: 2, Name: "Empty Trash", X: 650, Y: 200},
	{ID: 3, Name: "Fuel Engine", X: 500, Y: 450},
	{ID: 4, Name: "Calibrate Distributor", X: 300, Y: 400},
	{ID: 5, Name: "Scan Boarding Pass", X: 600, Y: 350},
	{ID: 6, Name: "Clean O2 Filter", X: 200, Y: 500},
	{ID: 7, Name: "Align Engine Output", X: 700, Y: 100},
	{ID: 8, Name: "Submit Scan", X: 100, Y: 300},
}

// TaskLocations returns the static station table.
func TaskLocations() []TaskLocation {
	out := make([]TaskLocation, len(taskLocations))
	copy(out, taskLocations)
	return out
}
