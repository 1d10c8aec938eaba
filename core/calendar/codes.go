package calendar

import "sort"

// Dictionary maps task codes used in calendar cells to their descriptions.
var Dictionary = map[string]string{
	"A":  "Morning assembly duty",
	"B":  "Bus arrival and departure supervision",
	"C":  "Canteen supervision",
	"D":  "Department meeting",
	"E":  "Examination invigilation",
	"F":  "Fire drill",
	"G":  "Gate duty",
	"H":  "Homework club supervision",
	"I":  "Inspection of classrooms",
	"J":  "Library duty",
	"K":  "Kitchen inventory check",
	"L":  "Lunch break supervision",
	"M":  "Staff meeting",
	"N":  "Newsletter submission",
	"O":  "Open day preparation",
	"P":  "Parents meeting",
	"Q":  "Quarterly report submission",
	"R":  "Report cards due",
	"S":  "Sports supervision",
	"T":  "Teacher training",
	"U":  "Uniform check",
	"V":  "Visitors reception",
	"W":  "Weekly planning submission",
	"X":  "Extra-curricular activities",
	"Y":  "Yard supervision",
	"Z":  "Zone safety walk",
	"A1": "Attendance registers review",
	"B1": "Budget review",
	"C1": "Curriculum planning",
	"D1": "Data entry of marks",
	"E1": "Exam papers submission",
	"F1": "First aid kit check",
	"G1": "Graduation rehearsal",
	"TB": "Timetable board update",
}

// Describe returns the description of code; lookups are case-sensitive.
func Describe(code string) (string, bool) {
	desc, ok := Dictionary[code]
	return desc, ok
}

// Codes returns the dictionary keys in lexical order.
func Codes() []string {
	codes := make([]string, 0, len(Dictionary))
	for code := range Dictionary {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LegendDescription is the description a legend entry gets when first observed.
func LegendDescription(code string) string {
	if desc, ok := Describe(code); ok {
		return desc
	}
	return code + " - Please update description"
}
