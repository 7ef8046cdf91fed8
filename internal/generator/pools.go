package generator

import "github.com/lernzeit/templatebank/internal/curriculum"

// Age-banded first-name pools. Band 1 covers grades 1-2, band 2 grades
// 3-4, band 3 everything above.
var namePools = map[int][]string{
	1: {"Mia", "Ben", "Emma", "Paul", "Lina", "Max", "Ella", "Finn"},
	2: {"Lena", "Jonas", "Sophie", "Lukas", "Marie", "Felix", "Clara", "Tim", "Anna", "Leon"},
	3: {"Johanna", "Sebastian", "Katharina", "Alexander", "Franziska", "Maximilian", "Charlotte", "Vincent"},
}

// nameBand maps a grade to its name-pool band.
func nameBand(grade int) int {
	switch {
	case grade <= 2:
		return 1
	case grade <= 4:
		return 2
	default:
		return 3
	}
}

// namePool returns the first-name pool for a grade.
func namePool(grade int) []string {
	return namePools[nameBand(grade)]
}

// Domain-appropriate object words for the context-object draw strategy.
var objectPools = map[curriculum.Domain][]string{
	curriculum.DomainArithmetic:  {"Äpfel", "Murmeln", "Sticker", "Bonbons", "Bälle", "Stifte", "Karten", "Münzen"},
	curriculum.DomainGeometry:    {"Dreiecke", "Quadrate", "Kreise", "Rechtecke", "Würfel", "Kugeln"},
	curriculum.DomainMeasurement: {"Bänder", "Seile", "Bretter", "Gläser", "Flaschen", "Pakete"},
	curriculum.DomainFractions:   {"Pizzen", "Kuchen", "Tafeln Schokolade", "Torten"},
	curriculum.DomainWordProblem: {"Äpfel", "Bücher", "Eintrittskarten", "Brötchen", "Blumen", "Luftballons"},
}

var fallbackObjects = []string{"Äpfel", "Bälle", "Stifte"}

// objectPool returns the object-word pool for a domain.
func objectPool(domain curriculum.Domain) []string {
	if pool, ok := objectPools[domain]; ok {
		return pool
	}
	return fallbackObjects
}
