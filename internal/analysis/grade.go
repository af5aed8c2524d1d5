package analysis

var gradeFloors = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{85, "A"},
	{80, "B+"},
	{75, "B"},
	{70, "C+"},
	{65, "C"},
	{60, "D"},
}

// Grade maps a percentage to a letter grade.
func Grade(percentage float64) string {
	for _, g := range gradeFloors {
		if percentage >= g.min {
			return g.grade
		}
	}
	return "F"
}
