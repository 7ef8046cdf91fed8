package mathcheck

import "testing"

func findIssue(issues []Issue, code IssueCode) *Issue {
	for i := range issues {
		if issues[i].Code == code {
			return &issues[i]
		}
	}
	return nil
}

func TestCheck_UnitPriceAdditionInsteadOfMultiplication(t *testing.T) {
	issues := Check("Lena kauft 3 Äpfel zu je 2 €. Wie viel bezahlt sie?", "5")
	issue := findIssue(issues, CodeAddInsteadOfMul)
	if issue == nil {
		t.Fatalf("expected addition-instead-of-multiplication, got %v", issues)
	}
	if issue.Expected != 6 || issue.Found != 5 {
		t.Fatalf("expected 6/found 5, got %+v", issue)
	}
}

func TestCheck_UnitPriceCorrect(t *testing.T) {
	issues := Check("Lena kauft 3 Äpfel zu je 2 €. Wie viel bezahlt sie?", "6")
	if len(issues) != 0 {
		t.Fatalf("correct unit price answer should pass, got %v", issues)
	}
}

func TestCheck_UnitPriceWithUnitSuffix(t *testing.T) {
	issues := Check("Tim kauft 4 Brötchen zu je 2 €.", "8 €")
	if len(issues) != 0 {
		t.Fatalf("declared value with unit suffix should parse, got %v", issues)
	}
}

func TestCheck_BundlePrice(t *testing.T) {
	// "für" phrasing: the stated price is the answer, not n × p.
	issues := Check("Ben kauft 3 Hefte für 5 €. Wie viel bezahlt er?", "5")
	if len(issues) != 0 {
		t.Fatalf("bundle price answer should pass, got %v", issues)
	}

	issues = Check("Ben kauft 3 Hefte für 5 €. Wie viel bezahlt er?", "15")
	if findIssue(issues, CodeWrongResult) == nil {
		t.Fatalf("recomputed bundle price should fail, got %v", issues)
	}
}

func TestCheck_WrongAddition(t *testing.T) {
	issues := Check("Wie viel ist 7 + 5?", "13")
	issue := findIssue(issues, CodeWrongResult)
	if issue == nil {
		t.Fatalf("expected wrong result, got %v", issues)
	}
	if issue.Expected != 12 {
		t.Fatalf("expected 12, got %+v", issue)
	}
}

func TestCheck_CorrectOperations(t *testing.T) {
	tests := []struct {
		prompt, solution string
	}{
		{"Wie viel ist 7 + 5?", "12"},
		{"Wie viel ist 9 - 4?", "5"},
		{"Wie viel ist 6 × 7?", "42"},
		{"Wie viel ist 12 : 3?", "4"},
		{"Addiere 14 und 3.", "17"},
		{"Was ist 8 minus 5?", "3"},
		{"12 Bonbons werden an 4 Kinder verteilt. Wie viele bekommt jedes Kind?", "3"},
	}
	for _, tc := range tests {
		if issues := Check(tc.prompt, tc.solution); len(issues) != 0 {
			t.Errorf("Check(%q, %q) = %v, want no issues", tc.prompt, tc.solution, issues)
		}
	}
}

func TestCheck_UnspacedOperators(t *testing.T) {
	tests := []struct {
		prompt, solution string
	}{
		{"Was ist 12-5?", "7"},
		{"Was ist 12+5?", "17"},
		{"Was ist 3×4?", "12"},
	}
	for _, tc := range tests {
		if issues := Check(tc.prompt, tc.solution); len(issues) != 0 {
			t.Errorf("Check(%q, %q) = %v, want no issues", tc.prompt, tc.solution, issues)
		}
	}

	issues := Check("Was ist 12-5?", "17")
	issue := findIssue(issues, CodeWrongResult)
	if issue == nil {
		t.Fatalf("expected wrong result, got %v", issues)
	}
	if issue.Expected != 7 {
		t.Fatalf("expected recomputed 7, got %+v", issue)
	}
}

func TestCheck_DivisionByZero(t *testing.T) {
	issues := Check("Wie viel ist 8 : 0?", "0")
	if findIssue(issues, CodeDivisionByZero) == nil {
		t.Fatalf("expected division-by-zero, got %v", issues)
	}
}

func TestCheck_NegativeResultUnjustified(t *testing.T) {
	issues := Check("Wie viel ist 3 - 8?", "-5")
	if findIssue(issues, CodeNegativeResult) == nil {
		t.Fatalf("expected negative-result issue, got %v", issues)
	}
}

func TestCheck_NegativeResultJustifiedByContext(t *testing.T) {
	issues := Check("Die Temperatur sinkt von 3 Grad um 8 Grad: 3 - 8 = ?", "-5")
	if findIssue(issues, CodeNegativeResult) != nil {
		t.Fatalf("temperature context justifies a negative result, got %v", issues)
	}
}

func TestCheck_UnparseableUnderFires(t *testing.T) {
	// No operation cue, no declared number: nothing to verify.
	tests := []struct {
		prompt, solution string
	}{
		{"Male ein Dreieck.", "Dreieck"},
		{"Welche Form hat ein Ball?", "Kugel"},
		{"Wie viel ist 7 + 5?", "zwölf"},
	}
	for _, tc := range tests {
		if issues := Check(tc.prompt, tc.solution); len(issues) != 0 {
			t.Errorf("Check(%q, %q) should under-fire, got %v", tc.prompt, tc.solution, issues)
		}
	}
}

func TestCheck_GermanDecimalComma(t *testing.T) {
	issues := Check("Wie viel ist 1,5 + 2,5?", "4")
	if len(issues) != 0 {
		t.Fatalf("decimal comma addition should pass, got %v", issues)
	}
}
