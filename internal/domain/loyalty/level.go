package loyalty

// Level is a loyalty tier unlocked at MinPoints.
type Level struct {
	Name      string
	MinPoints int
}

// Levels lists the tiers in ascending order.
var Levels = []Level{
	{Name: "Iniciante", MinPoints: 0},
	{Name: "Amante de Doces", MinPoints: 50},
	{Name: "Doce Expert", MinPoints: 200},
	{Name: "Mestre Confeiteiro", MinPoints: 500},
}

// LevelFor returns the highest tier reached with points.
func LevelFor(points int) Level {
	current := Levels[0]
	for _, l := range Levels {
		if points >= l.MinPoints {
			current = l
		}
	}
	return current
}

// NextLevel returns the first tier above points, or false at the top tier.
func NextLevel(points int) (Level, bool) {
	for _, l := range Levels {
		if points < l.MinPoints {
			return l, true
		}
	}
	return Level{}, false
}
